// internal/store/memory/repositories.go
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"libralend/internal/domain"

	"github.com/google/uuid"
)

type titleRepo struct{ s *Store }

func (r titleRepo) Create(ctx context.Context, t domain.Title) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.titles[t.ISBN]; ok {
			return fmt.Errorf("title %s: %w", t.ISBN, domain.ErrAlreadyExists)
		}
		now := time.Now().UTC()
		t.CreatedAt, t.UpdatedAt = now, now
		st.titles[t.ISBN] = t
		return nil
	})
}

func (r titleRepo) Get(ctx context.Context, isbn string) (domain.Title, error) {
	var t domain.Title
	err := r.s.run(ctx, func(st *state) error {
		found, ok := st.titles[isbn]
		if !ok {
			return fmt.Errorf("title %s: %w", isbn, domain.ErrNotFound)
		}
		t = found
		return nil
	})
	return t, err
}

func (r titleRepo) List(ctx context.Context) ([]domain.Title, error) {
	var out []domain.Title
	err := r.s.run(ctx, func(st *state) error {
		out = sortedValues(st.titles, func(a, b domain.Title) int { return cmp.Compare(a.ISBN, b.ISBN) })
		return nil
	})
	return out, err
}

func (r titleRepo) Update(ctx context.Context, t domain.Title) error {
	return r.s.run(ctx, func(st *state) error {
		cur, ok := st.titles[t.ISBN]
		if !ok {
			return fmt.Errorf("title %s: %w", t.ISBN, domain.ErrNotFound)
		}
		cur.Name = t.Name
		cur.Publisher = t.Publisher
		cur.Edition = t.Edition
		cur.PublishedYear = t.PublishedYear
		cur.UpdatedAt = time.Now().UTC()
		st.titles[t.ISBN] = cur
		return nil
	})
}

func (r titleRepo) Delete(ctx context.Context, isbn string) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.titles[isbn]; !ok {
			return fmt.Errorf("title %s: %w", isbn, domain.ErrNotFound)
		}
		delete(st.titles, isbn)
		maps.DeleteFunc(st.credits, func(c credit, _ struct{}) bool { return c.isbn == isbn })
		return nil
	})
}

func (r titleRepo) AdjustOnShelf(ctx context.Context, isbn string, delta int) (int, error) {
	var onShelf int
	err := r.s.run(ctx, func(st *state) error {
		t, ok := st.titles[isbn]
		if !ok {
			return fmt.Errorf("title %s: %w", isbn, domain.ErrNotFound)
		}
		if t.OnShelf+delta < 0 {
			return fmt.Errorf("title %s: %d on shelf, %d requested: %w", isbn, t.OnShelf, -delta, domain.ErrInsufficientStock)
		}
		t.OnShelf += delta
		t.UpdatedAt = time.Now().UTC()
		st.titles[isbn] = t
		onShelf = t.OnShelf
		return nil
	})
	return onShelf, err
}

type authorRepo struct{ s *Store }

func compareAuthors(a, b domain.Author) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func (r authorRepo) Create(ctx context.Context, a domain.Author) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.authors[a.ID]; ok {
			return fmt.Errorf("author %s: %w", a.ID, domain.ErrAlreadyExists)
		}
		for _, other := range st.authors {
			if strings.EqualFold(other.Name, a.Name) {
				return fmt.Errorf("author %q: %w", a.Name, domain.ErrAlreadyExists)
			}
		}
		a.CreatedAt = time.Now().UTC()
		st.authors[a.ID] = a
		return nil
	})
}

func (r authorRepo) Get(ctx context.Context, id uuid.UUID) (domain.Author, error) {
	var a domain.Author
	err := r.s.run(ctx, func(st *state) error {
		found, ok := st.authors[id]
		if !ok {
			return fmt.Errorf("author %s: %w", id, domain.ErrNotFound)
		}
		a = found
		return nil
	})
	return a, err
}

func (r authorRepo) FindByName(ctx context.Context, name string) (domain.Author, error) {
	var a domain.Author
	err := r.s.run(ctx, func(st *state) error {
		for _, found := range st.authors {
			if strings.EqualFold(found.Name, name) {
				a = found
				return nil
			}
		}
		return fmt.Errorf("author %q: %w", name, domain.ErrNotFound)
	})
	return a, err
}

func (r authorRepo) List(ctx context.Context) ([]domain.Author, error) {
	var out []domain.Author
	err := r.s.run(ctx, func(st *state) error {
		out = sortedValues(st.authors, compareAuthors)
		return nil
	})
	return out, err
}

func (r authorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.authors[id]; !ok {
			return fmt.Errorf("author %s: %w", id, domain.ErrNotFound)
		}
		delete(st.authors, id)
		maps.DeleteFunc(st.credits, func(c credit, _ struct{}) bool { return c.author == id })
		return nil
	})
}

func (r authorRepo) Link(ctx context.Context, isbn string, authorID uuid.UUID) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.titles[isbn]; !ok {
			return fmt.Errorf("title %s: %w", isbn, domain.ErrNotFound)
		}
		if _, ok := st.authors[authorID]; !ok {
			return fmt.Errorf("author %s: %w", authorID, domain.ErrNotFound)
		}
		c := credit{isbn: isbn, author: authorID}
		if _, ok := st.credits[c]; ok {
			return fmt.Errorf("author %s on title %s: %w", authorID, isbn, domain.ErrAlreadyExists)
		}
		st.credits[c] = struct{}{}
		return nil
	})
}

func (r authorRepo) Unlink(ctx context.Context, isbn string, authorID uuid.UUID) error {
	return r.s.run(ctx, func(st *state) error {
		c := credit{isbn: isbn, author: authorID}
		if _, ok := st.credits[c]; !ok {
			return fmt.Errorf("author %s on title %s: %w", authorID, isbn, domain.ErrNotFound)
		}
		delete(st.credits, c)
		return nil
	})
}

func (r authorRepo) ListByTitle(ctx context.Context, isbn string) ([]domain.Author, error) {
	out := []domain.Author{}
	err := r.s.run(ctx, func(st *state) error {
		for c := range st.credits {
			if c.isbn == isbn {
				out = append(out, st.authors[c.author])
			}
		}
		slices.SortFunc(out, compareAuthors)
		return nil
	})
	return out, err
}

func (r authorRepo) ListTitles(ctx context.Context, authorID uuid.UUID) ([]domain.Title, error) {
	out := []domain.Title{}
	err := r.s.run(ctx, func(st *state) error {
		for c := range st.credits {
			if c.author == authorID {
				out = append(out, st.titles[c.isbn])
			}
		}
		slices.SortFunc(out, func(a, b domain.Title) int { return cmp.Compare(a.ISBN, b.ISBN) })
		return nil
	})
	return out, err
}

type borrowerRepo struct{ s *Store }

func (r borrowerRepo) Create(ctx context.Context, b domain.Borrower) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.borrowers[b.DNI]; ok {
			return fmt.Errorf("borrower %s: %w", b.DNI, domain.ErrAlreadyExists)
		}
		b.CreatedAt = time.Now().UTC()
		st.borrowers[b.DNI] = b
		return nil
	})
}

func (r borrowerRepo) Get(ctx context.Context, dni string) (domain.Borrower, error) {
	var b domain.Borrower
	err := r.s.run(ctx, func(st *state) error {
		found, ok := st.borrowers[dni]
		if !ok {
			return fmt.Errorf("borrower %s: %w", dni, domain.ErrNotFound)
		}
		b = found
		return nil
	})
	return b, err
}

func (r borrowerRepo) List(ctx context.Context) ([]domain.Borrower, error) {
	var out []domain.Borrower
	err := r.s.run(ctx, func(st *state) error {
		out = sortedValues(st.borrowers, func(a, b domain.Borrower) int { return cmp.Compare(a.DNI, b.DNI) })
		return nil
	})
	return out, err
}

func (r borrowerRepo) Update(ctx context.Context, b domain.Borrower) error {
	return r.s.run(ctx, func(st *state) error {
		cur, ok := st.borrowers[b.DNI]
		if !ok {
			return fmt.Errorf("borrower %s: %w", b.DNI, domain.ErrNotFound)
		}
		cur.FirstName = b.FirstName
		cur.LastName = b.LastName
		cur.Phone = b.Phone
		cur.Address = b.Address
		cur.Email = b.Email
		st.borrowers[b.DNI] = cur
		return nil
	})
}

func (r borrowerRepo) Delete(ctx context.Context, dni string) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.borrowers[dni]; !ok {
			return fmt.Errorf("borrower %s: %w", dni, domain.ErrNotFound)
		}
		delete(st.borrowers, dni)
		return nil
	})
}

type loanRepo struct{ s *Store }

func compareLoans(a, b domain.Loan) int {
	if c := a.StartDate.Compare(b.StartDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func (r loanRepo) Create(ctx context.Context, l domain.Loan) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.loans[l.ID]; ok {
			return fmt.Errorf("loan %s: %w", l.ID, domain.ErrAlreadyExists)
		}
		st.loans[l.ID] = l
		return nil
	})
}

func (r loanRepo) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	var l domain.Loan
	err := r.s.run(ctx, func(st *state) error {
		found, ok := st.loans[id]
		if !ok {
			return fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
		}
		l = found
		return nil
	})
	return l, err
}

func (r loanRepo) list(ctx context.Context, keep func(domain.Loan) bool) ([]domain.Loan, error) {
	var out []domain.Loan
	err := r.s.run(ctx, func(st *state) error {
		for _, l := range st.loans {
			if keep(l) {
				out = append(out, l)
			}
		}
		slices.SortFunc(out, compareLoans)
		return nil
	})
	return out, err
}

func (r loanRepo) List(ctx context.Context) ([]domain.Loan, error) {
	return r.list(ctx, func(domain.Loan) bool { return true })
}

func (r loanRepo) ListByTitle(ctx context.Context, isbn string) ([]domain.Loan, error) {
	return r.list(ctx, func(l domain.Loan) bool { return l.ISBN == isbn })
}

func (r loanRepo) ListByBorrower(ctx context.Context, dni string) ([]domain.Loan, error) {
	return r.list(ctx, func(l domain.Loan) bool { return l.BorrowerDNI == dni })
}

func (r loanRepo) Update(ctx context.Context, l *domain.Loan) error {
	return r.s.run(ctx, func(st *state) error {
		cur, ok := st.loans[l.ID]
		if !ok {
			return fmt.Errorf("loan %s: %w", l.ID, domain.ErrNotFound)
		}
		if cur.Version != l.Version {
			return fmt.Errorf("loan %s at version %d, stored %d: %w", l.ID, l.Version, cur.Version, domain.ErrConflict)
		}
		l.Version++
		st.loans[l.ID] = *l
		return nil
	})
}

func (r loanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.loans[id]; !ok {
			return fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
		}
		delete(st.loans, id)
		return nil
	})
}

func (r loanRepo) countActive(ctx context.Context, keep func(domain.Loan) bool) (int, error) {
	n := 0
	err := r.s.run(ctx, func(st *state) error {
		for _, l := range st.loans {
			if l.Status == domain.LoanActive && keep(l) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r loanRepo) CountActiveByTitle(ctx context.Context, isbn string) (int, error) {
	return r.countActive(ctx, func(l domain.Loan) bool { return l.ISBN == isbn })
}

func (r loanRepo) CountActiveByBorrower(ctx context.Context, dni string) (int, error) {
	return r.countActive(ctx, func(l domain.Loan) bool { return l.BorrowerDNI == dni })
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(ctx context.Context, p domain.Payment) error {
	return r.s.run(ctx, func(st *state) error {
		if _, ok := st.payments[p.ID]; ok {
			return fmt.Errorf("payment %s: %w", p.ID, domain.ErrAlreadyExists)
		}
		st.payments[p.ID] = p
		return nil
	})
}

func (r paymentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	var p domain.Payment
	err := r.s.run(ctx, func(st *state) error {
		found, ok := st.payments[id]
		if !ok {
			return fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
		}
		p = found
		return nil
	})
	return p, err
}

func (r paymentRepo) List(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.s.run(ctx, func(st *state) error {
		out = sortedValues(st.payments, func(a, b domain.Payment) int {
			if c := a.PaidAt.Compare(b.PaidAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID.String(), b.ID.String())
		})
		return nil
	})
	return out, err
}

func (r paymentRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	return r.s.run(ctx, func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
		}
		p.Status = status
		st.payments[id] = p
		return nil
	})
}

func sortedValues[K comparable, V any](m map[K]V, compare func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, compare)
	return out
}
