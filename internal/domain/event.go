// internal/domain/event.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is an entry of the audit journal. Every mutation appends one in the
// same transaction that performs it.
type Event struct {
	ID            int64           `json:"id" db:"id"`
	AggregateID   string          `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

const (
	EventTitleAdded         = "TitleAdded"
	EventTitleUpdated       = "TitleUpdated"
	EventTitleRemoved       = "TitleRemoved"
	EventAuthorAdded        = "AuthorAdded"
	EventAuthorRemoved      = "AuthorRemoved"
	EventAuthorLinked       = "AuthorLinked"
	EventAuthorUnlinked     = "AuthorUnlinked"
	EventStockAdjusted      = "StockAdjusted"
	EventBorrowerRegistered = "BorrowerRegistered"
	EventBorrowerUpdated    = "BorrowerUpdated"
	EventBorrowerRemoved    = "BorrowerRemoved"
	EventLoanCommitted      = "LoanCommitted"
	EventLoanReturnRecorded = "LoanReturnRecorded"
	EventLoanRemoved        = "LoanRemoved"
	EventPaymentRegistered  = "PaymentRegistered"
	EventPaymentCompleted   = "PaymentCompleted"
)

// NewEvent marshals data into a journal entry.
func NewEvent(aggregateType, aggregateID, eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     raw,
	}, nil
}
