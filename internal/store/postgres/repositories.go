// internal/store/postgres/repositories.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"libralend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type titleRepo struct{ s *Store }

const titleColumns = `isbn, name, publisher, edition, published_year, on_shelf, created_at, updated_at`

func (r titleRepo) Create(ctx context.Context, t domain.Title) error {
	query := `
		INSERT INTO titles (isbn, name, publisher, edition, published_year, on_shelf)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.s.ext(ctx).ExecContext(ctx, query, t.ISBN, t.Name, t.Publisher, t.Edition, t.PublishedYear, t.OnShelf)
	if err != nil {
		return fmt.Errorf("titles.Create %s: %w", t.ISBN, classify(err))
	}
	return nil
}

func (r titleRepo) Get(ctx context.Context, isbn string) (domain.Title, error) {
	var t domain.Title
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &t, `SELECT `+titleColumns+` FROM titles WHERE isbn = $1`, isbn)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("title %s: %w", isbn, domain.ErrNotFound)
	}
	if err != nil {
		return t, fmt.Errorf("titles.Get %s: %w", isbn, classify(err))
	}
	return t, nil
}

func (r titleRepo) List(ctx context.Context) ([]domain.Title, error) {
	var out []domain.Title
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, `SELECT `+titleColumns+` FROM titles ORDER BY isbn`); err != nil {
		return nil, fmt.Errorf("titles.List: %w", classify(err))
	}
	return out, nil
}

func (r titleRepo) Update(ctx context.Context, t domain.Title) error {
	query := `
		UPDATE titles
		SET name = $1, publisher = $2, edition = $3, published_year = $4, updated_at = NOW()
		WHERE isbn = $5
	`
	res, err := r.s.ext(ctx).ExecContext(ctx, query, t.Name, t.Publisher, t.Edition, t.PublishedYear, t.ISBN)
	if err != nil {
		return fmt.Errorf("titles.Update %s: %w", t.ISBN, classify(err))
	}
	return expectRow(res, "title", t.ISBN)
}

func (r titleRepo) Delete(ctx context.Context, isbn string) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `DELETE FROM titles WHERE isbn = $1`, isbn)
	if err != nil {
		return fmt.Errorf("titles.Delete %s: %w", isbn, classify(err))
	}
	return expectRow(res, "title", isbn)
}

// AdjustOnShelf relies on the row lock taken by the conditional UPDATE, so
// concurrent adjustments of one title are serialized by the database.
func (r titleRepo) AdjustOnShelf(ctx context.Context, isbn string, delta int) (int, error) {
	var onShelf int
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &onShelf, `
		UPDATE titles
		SET on_shelf = on_shelf + $1, updated_at = NOW()
		WHERE isbn = $2 AND on_shelf + $1 >= 0
		RETURNING on_shelf
	`, delta, isbn)
	if err == nil {
		return onShelf, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("titles.AdjustOnShelf %s: %w", isbn, classify(err))
	}

	current, err := r.Get(ctx, isbn)
	if err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("title %s: %d on shelf, %d requested: %w", isbn, current.OnShelf, -delta, domain.ErrInsufficientStock)
}

type authorRepo struct{ s *Store }

const authorColumns = `id, name, created_at`

func (r authorRepo) Create(ctx context.Context, a domain.Author) error {
	_, err := r.s.ext(ctx).ExecContext(ctx, `INSERT INTO authors (id, name) VALUES ($1, $2)`, a.ID, a.Name)
	if err != nil {
		return fmt.Errorf("authors.Create %q: %w", a.Name, classify(err))
	}
	return nil
}

func (r authorRepo) get(ctx context.Context, key, where string, arg any) (domain.Author, error) {
	var a domain.Author
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &a, `SELECT `+authorColumns+` FROM authors WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("author %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("authors.Get %s: %w", key, classify(err))
	}
	return a, nil
}

func (r authorRepo) Get(ctx context.Context, id uuid.UUID) (domain.Author, error) {
	return r.get(ctx, id.String(), `id = $1`, id)
}

func (r authorRepo) FindByName(ctx context.Context, name string) (domain.Author, error) {
	return r.get(ctx, fmt.Sprintf("%q", name), `lower(name) = lower($1)`, name)
}

func (r authorRepo) List(ctx context.Context) ([]domain.Author, error) {
	var out []domain.Author
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, `SELECT `+authorColumns+` FROM authors ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("authors.List: %w", classify(err))
	}
	return out, nil
}

func (r authorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("authors.Delete %s: %w", id, classify(err))
	}
	return expectRow(res, "author", id.String())
}

// Link leans on the foreign keys: a missing title or author surfaces as
// domain.ErrNotFound through classify.
func (r authorRepo) Link(ctx context.Context, isbn string, authorID uuid.UUID) error {
	_, err := r.s.ext(ctx).ExecContext(ctx, `INSERT INTO title_authors (isbn, author_id) VALUES ($1, $2)`, isbn, authorID)
	if err != nil {
		return fmt.Errorf("authors.Link %s %s: %w", isbn, authorID, classify(err))
	}
	return nil
}

func (r authorRepo) Unlink(ctx context.Context, isbn string, authorID uuid.UUID) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `DELETE FROM title_authors WHERE isbn = $1 AND author_id = $2`, isbn, authorID)
	if err != nil {
		return fmt.Errorf("authors.Unlink %s %s: %w", isbn, authorID, classify(err))
	}
	return expectRow(res, "author on title", isbn)
}

func (r authorRepo) ListByTitle(ctx context.Context, isbn string) ([]domain.Author, error) {
	out := []domain.Author{}
	query := `
		SELECT a.id, a.name, a.created_at
		FROM authors a JOIN title_authors ta ON ta.author_id = a.id
		WHERE ta.isbn = $1
		ORDER BY a.name, a.id
	`
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, query, isbn); err != nil {
		return nil, fmt.Errorf("authors.ListByTitle %s: %w", isbn, classify(err))
	}
	return out, nil
}

func (r authorRepo) ListTitles(ctx context.Context, authorID uuid.UUID) ([]domain.Title, error) {
	out := []domain.Title{}
	query := `
		SELECT t.isbn, t.name, t.publisher, t.edition, t.published_year, t.on_shelf, t.created_at, t.updated_at
		FROM titles t JOIN title_authors ta ON ta.isbn = t.isbn
		WHERE ta.author_id = $1
		ORDER BY t.isbn
	`
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, query, authorID); err != nil {
		return nil, fmt.Errorf("authors.ListTitles %s: %w", authorID, classify(err))
	}
	return out, nil
}

type borrowerRepo struct{ s *Store }

const borrowerColumns = `dni, first_name, last_name, phone, address, email, created_at`

func (r borrowerRepo) Create(ctx context.Context, b domain.Borrower) error {
	query := `
		INSERT INTO borrowers (dni, first_name, last_name, phone, address, email)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.s.ext(ctx).ExecContext(ctx, query, b.DNI, b.FirstName, b.LastName, b.Phone, b.Address, b.Email)
	if err != nil {
		return fmt.Errorf("borrowers.Create %s: %w", b.DNI, classify(err))
	}
	return nil
}

func (r borrowerRepo) Get(ctx context.Context, dni string) (domain.Borrower, error) {
	var b domain.Borrower
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &b, `SELECT `+borrowerColumns+` FROM borrowers WHERE dni = $1`, dni)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("borrower %s: %w", dni, domain.ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("borrowers.Get %s: %w", dni, classify(err))
	}
	return b, nil
}

func (r borrowerRepo) List(ctx context.Context) ([]domain.Borrower, error) {
	var out []domain.Borrower
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, `SELECT `+borrowerColumns+` FROM borrowers ORDER BY dni`); err != nil {
		return nil, fmt.Errorf("borrowers.List: %w", classify(err))
	}
	return out, nil
}

func (r borrowerRepo) Update(ctx context.Context, b domain.Borrower) error {
	query := `
		UPDATE borrowers
		SET first_name = $1, last_name = $2, phone = $3, address = $4, email = $5
		WHERE dni = $6
	`
	res, err := r.s.ext(ctx).ExecContext(ctx, query, b.FirstName, b.LastName, b.Phone, b.Address, b.Email, b.DNI)
	if err != nil {
		return fmt.Errorf("borrowers.Update %s: %w", b.DNI, classify(err))
	}
	return expectRow(res, "borrower", b.DNI)
}

func (r borrowerRepo) Delete(ctx context.Context, dni string) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `DELETE FROM borrowers WHERE dni = $1`, dni)
	if err != nil {
		return fmt.Errorf("borrowers.Delete %s: %w", dni, classify(err))
	}
	return expectRow(res, "borrower", dni)
}

type loanRepo struct{ s *Store }

const loanColumns = `id, isbn, borrower_dni, quantity, quantity_returned, start_date, end_date, status, version`

func (r loanRepo) Create(ctx context.Context, l domain.Loan) error {
	query := `
		INSERT INTO loans (id, isbn, borrower_dni, quantity, quantity_returned, start_date, end_date, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.s.ext(ctx).ExecContext(ctx, query,
		l.ID, l.ISBN, l.BorrowerDNI, l.Quantity, l.QuantityReturned, l.StartDate, l.EndDate, string(l.Status), l.Version)
	if err != nil {
		return fmt.Errorf("loans.Create %s: %w", l.ID, classify(err))
	}
	return nil
}

func (r loanRepo) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	var l domain.Loan
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &l, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return l, fmt.Errorf("loans.Get %s: %w", id, classify(err))
	}
	return l, nil
}

func (r loanRepo) selectLoans(ctx context.Context, where string, args ...any) ([]domain.Loan, error) {
	var out []domain.Loan
	query := `SELECT ` + loanColumns + ` FROM loans ` + where + ` ORDER BY start_date, id`
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, query, args...); err != nil {
		return nil, fmt.Errorf("loans.List: %w", classify(err))
	}
	return out, nil
}

func (r loanRepo) List(ctx context.Context) ([]domain.Loan, error) {
	return r.selectLoans(ctx, "")
}

func (r loanRepo) ListByTitle(ctx context.Context, isbn string) ([]domain.Loan, error) {
	return r.selectLoans(ctx, "WHERE isbn = $1", isbn)
}

func (r loanRepo) ListByBorrower(ctx context.Context, dni string) ([]domain.Loan, error) {
	return r.selectLoans(ctx, "WHERE borrower_dni = $1", dni)
}

func (r loanRepo) Update(ctx context.Context, l *domain.Loan) error {
	query := `
		UPDATE loans
		SET quantity_returned = $1, status = $2, end_date = $3, version = version + 1
		WHERE id = $4 AND version = $5
	`
	res, err := r.s.ext(ctx).ExecContext(ctx, query, l.QuantityReturned, string(l.Status), l.EndDate, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("loans.Update %s: %w", l.ID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("loans.Update %s: %w", l.ID, err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, l.ID); err != nil {
			return err
		}
		return fmt.Errorf("loan %s at version %d: %w", l.ID, l.Version, domain.ErrConflict)
	}
	l.Version++
	return nil
}

func (r loanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("loans.Delete %s: %w", id, classify(err))
	}
	return expectRow(res, "loan", id.String())
}

func (r loanRepo) countActive(ctx context.Context, column, value string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM loans WHERE status = $1 AND ` + column + ` = $2`
	if err := sqlx.GetContext(ctx, r.s.ext(ctx), &n, query, string(domain.LoanActive), value); err != nil {
		return 0, fmt.Errorf("loans.CountActive: %w", classify(err))
	}
	return n, nil
}

func (r loanRepo) CountActiveByTitle(ctx context.Context, isbn string) (int, error) {
	return r.countActive(ctx, "isbn", isbn)
}

func (r loanRepo) CountActiveByBorrower(ctx context.Context, dni string) (int, error) {
	return r.countActive(ctx, "borrower_dni", dni)
}

type paymentRepo struct{ s *Store }

const paymentColumns = `id, loan_id, paid_at, quantity, amount, status`

func (r paymentRepo) Create(ctx context.Context, p domain.Payment) error {
	query := `
		INSERT INTO payments (id, loan_id, paid_at, quantity, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.s.ext(ctx).ExecContext(ctx, query, p.ID, p.LoanID, p.PaidAt, p.Quantity, p.Amount, string(p.Status))
	if err != nil {
		return fmt.Errorf("payments.Create %s: %w", p.ID, classify(err))
	}
	return nil
}

func (r paymentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	var p domain.Payment
	err := sqlx.GetContext(ctx, r.s.ext(ctx), &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("payments.Get %s: %w", id, classify(err))
	}
	return p, nil
}

func (r paymentRepo) List(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	if err := sqlx.SelectContext(ctx, r.s.ext(ctx), &out, `SELECT `+paymentColumns+` FROM payments ORDER BY paid_at, id`); err != nil {
		return nil, fmt.Errorf("payments.List: %w", classify(err))
	}
	return out, nil
}

func (r paymentRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	res, err := r.s.ext(ctx).ExecContext(ctx, `UPDATE payments SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("payments.SetStatus %s: %w", id, classify(err))
	}
	return expectRow(res, "payment", id.String())
}

func expectRow(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", kind, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, key, domain.ErrNotFound)
	}
	return nil
}
