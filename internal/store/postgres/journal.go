// internal/store/postgres/journal.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"libralend/internal/domain"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// journal appends audit events on whatever transaction ctx carries, so an
// event is only visible if the mutation it describes committed.
type journal struct{ s *Store }

func (j journal) Append(ctx context.Context, events ...domain.Event) error {
	ctx, span := j.s.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(attribute.Int("event.count", len(events))),
	)
	defer span.End()

	ext := j.s.ext(ctx)
	for i, e := range events {
		var id int64
		err := sqlx.GetContext(ctx, ext, &id, `
			INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, created_at)
			VALUES ($1, $2, $3, $4::jsonb, $5)
			RETURNING id
		`, e.AggregateID, e.AggregateType, e.EventType, string(e.EventData), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, classify(err))
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", id),
			attribute.String("event.type", e.EventType),
			attribute.String("aggregate.id", e.AggregateID),
		))
	}
	return nil
}

type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     string    `db:"event_data"`
	CreatedAt     time.Time `db:"created_at"`
}

// Stream returns up to limit events with an id greater than afterID.
func (j journal) Stream(ctx context.Context, afterID int64, limit int) ([]domain.Event, error) {
	ctx, span := j.s.tracer.Start(ctx, "journal.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", afterID),
			attribute.Int("batch.size", limit),
		),
	)
	defer span.End()

	var rows []eventRow
	err := sqlx.SelectContext(ctx, j.s.ext(ctx), &rows, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data::text AS event_data, created_at
		FROM events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query event stream: %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, domain.Event{
			ID:            r.ID,
			AggregateID:   r.AggregateID,
			AggregateType: r.AggregateType,
			EventType:     r.EventType,
			EventData:     json.RawMessage(r.EventData),
			CreatedAt:     r.CreatedAt,
		})
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}
