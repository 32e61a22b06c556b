// internal/circulation/domain.go
package circulation

import (
	"time"

	"libralend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnLine asks to return Quantity copies of one loan.
type ReturnLine struct {
	LoanID   uuid.UUID `json:"loan_id"`
	Quantity int       `json:"quantity"`
}

// LoansCommittedEvent is published after a checkout commits.
type LoansCommittedEvent struct {
	BorrowerDNI string        `json:"borrower_dni"`
	Loans       []domain.Loan `json:"loans"`
	CommittedAt time.Time     `json:"committed_at"`
}

// LoansReturnedEvent is published after a return commits.
type LoansReturnedEvent struct {
	BorrowerDNI string          `json:"borrower_dni"`
	Lines       []ReturnLine    `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	ReturnedAt  time.Time       `json:"returned_at"`
}
