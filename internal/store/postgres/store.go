// internal/store/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"libralend/internal/port"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	defaultMaxTries        = 5
	defaultMaxOpenConns    = 20
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
)

// Store is the PostgreSQL implementation of port.Store. It works with both
// the lib/pq ("postgres") and pgx ("pgx") database/sql drivers.
type Store struct {
	db       *sqlx.DB
	tracer   trace.Tracer
	log      zerolog.Logger
	maxTries uint
}

type Option func(*Store)

// WithMaxTries bounds how many times a transaction is attempted when it
// fails on a serialization conflict.
func WithMaxTries(n uint) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

var _ port.Store = (*Store)(nil)

// Open connects with the given driver name and applies pool settings.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	return New(db, opts...), nil
}

func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		tracer:   otel.Tracer("libralend/store"),
		log:      zerolog.Nop(),
		maxTries: defaultMaxTries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies every migration in file name order. Each one is written to
// be re-run safely.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, e := range entries {
		body, err := fs.ReadFile(migrations, "migrations/"+e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		s.log.Debug().Str("migration", e.Name()).Msg("migration applied")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txKey struct{}

// ext returns the transaction bound to ctx, or the pool.
func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// WithinTx runs fn in a read-committed transaction and retries the whole
// unit with exponential backoff while it fails with domain.ErrConflict.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	ctx, span := s.tracer.Start(ctx, "store.tx")
	defer span.End()

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := s.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isConflict(err) {
			s.log.Debug().Err(err).Int("attempt", attempts).Msg("transaction conflict, retrying")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(s.maxTries),
	)

	span.SetAttributes(
		attribute.Int("tx.attempts", attempts),
		attribute.Bool("tx.committed", err == nil),
	)
	return err
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Titles() port.TitleRepository       { return titleRepo{s} }
func (s *Store) Authors() port.AuthorRepository     { return authorRepo{s} }
func (s *Store) Borrowers() port.BorrowerRepository { return borrowerRepo{s} }
func (s *Store) Loans() port.LoanRepository         { return loanRepo{s} }
func (s *Store) Payments() port.PaymentRepository   { return paymentRepo{s} }
func (s *Store) Journal() port.Journal              { return journal{s} }
