// internal/clients/membership_client.go
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"libralend/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// MembershipClient looks borrowers up in a remote membership service. It
// satisfies port.BorrowerDirectory.
type MembershipClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewMembershipClient(baseURL string, log zerolog.Logger) *MembershipClient {
	return &MembershipClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "membership",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// An unknown borrower is an answer, not an outage.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domain.ErrNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
			},
		}),
	}
}

func (c *MembershipClient) FindBorrower(ctx context.Context, dni string) (domain.Borrower, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getBorrower(ctx, dni)
	})
	if err != nil {
		return domain.Borrower{}, err
	}
	return res.(domain.Borrower), nil
}

func (c *MembershipClient) getBorrower(ctx context.Context, dni string) (domain.Borrower, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/borrowers/%s", c.baseURL, url.PathEscape(dni)), nil)
	if err != nil {
		return domain.Borrower{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Borrower{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Borrower{}, fmt.Errorf("borrower %s: %w", dni, domain.ErrNotFound)
	default:
		return domain.Borrower{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var b domain.Borrower
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return domain.Borrower{}, err
	}
	return b, nil
}
