// internal/store/memory/journal.go
package memory

import (
	"context"
	"time"

	"libralend/internal/domain"
)

type journal struct{ s *Store }

func (j journal) Append(ctx context.Context, events ...domain.Event) error {
	return j.s.run(ctx, func(st *state) error {
		now := time.Now().UTC()
		for _, e := range events {
			st.nextEventID++
			e.ID = st.nextEventID
			e.CreatedAt = now
			st.events = append(st.events, e)
		}
		return nil
	})
}

func (j journal) Stream(ctx context.Context, afterID int64, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := j.s.run(ctx, func(st *state) error {
		for _, e := range st.events {
			if e.ID <= afterID {
				continue
			}
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
