// internal/domain/payment.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Payment is the charge for one returned batch of a loan.
type Payment struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	LoanID   uuid.UUID       `json:"loan_id" db:"loan_id"`
	PaidAt   time.Time       `json:"paid_at" db:"paid_at"`
	Quantity int             `json:"quantity" db:"quantity"`
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	Status   PaymentStatus   `json:"status" db:"status"`
}

// Invoice aggregates the payments of a single return call. It is a receipt
// and is never persisted on its own.
type Invoice struct {
	BorrowerDNI string          `json:"borrower_dni"`
	IssuedAt    time.Time       `json:"issued_at"`
	Lines       []InvoiceLine   `json:"lines"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceLine joins a payment with the loan it settles.
type InvoiceLine struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	ISBN      string          `json:"isbn"`
	PaidAt    time.Time       `json:"paid_at"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
}

func NewInvoice(borrowerDNI string, issuedAt time.Time) *Invoice {
	return &Invoice{BorrowerDNI: borrowerDNI, IssuedAt: issuedAt, Total: decimal.Zero}
}

// Add appends a payment for loan and keeps the total in step.
func (inv *Invoice) Add(loan Loan, p Payment) {
	inv.Lines = append(inv.Lines, InvoiceLine{
		PaymentID: p.ID,
		LoanID:    loan.ID,
		ISBN:      loan.ISBN,
		PaidAt:    p.PaidAt,
		Quantity:  p.Quantity,
		Amount:    p.Amount,
		Status:    p.Status,
	})
	inv.Total = inv.Total.Add(p.Amount)
}

// MarkCompleted flips every line to completed.
func (inv *Invoice) MarkCompleted() {
	for i := range inv.Lines {
		inv.Lines[i].Status = PaymentCompleted
	}
}
