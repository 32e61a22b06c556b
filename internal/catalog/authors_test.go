package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"libralend/internal/catalog"
	"libralend/internal/domain"
	"libralend/internal/httpapi"
	"libralend/internal/store/memory"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherISBN = "9780201633610"

func eventTypes(t *testing.T, s *memory.Store) []string {
	t.Helper()
	events, err := s.Journal().Stream(t.Context(), 0, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func isbns(titles []domain.Title) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		out = append(out, t.ISBN)
	}
	return out
}

func TestAddAuthor(t *testing.T) {
	svc := catalog.NewService(memory.New(), zerolog.Nop())

	a, err := svc.AddAuthor(t.Context(), "  Donald Knuth ")
	require.NoError(t, err)
	assert.Equal(t, "Donald Knuth", a.Name)
	assert.NotEqual(t, uuid.Nil, a.ID)

	_, err = svc.AddAuthor(t.Context(), "donald knuth")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists, "names are unique regardless of case")

	for _, name := range []string{"", "K", strings.Repeat("x", 101)} {
		_, err = svc.AddAuthor(t.Context(), name)
		assert.ErrorIs(t, err, catalog.ErrInvalidAuthor, "name %q", name)
	}
	_, err = svc.AddAuthor(t.Context(), strings.Repeat("é", 100))
	assert.NoError(t, err, "length counts characters, not bytes")

	authors, err := svc.ListAuthors(t.Context())
	require.NoError(t, err)
	assert.Len(t, authors, 2)
}

func TestAddTitleByAuthorFindsOrCreatesAuthor(t *testing.T) {
	s := memory.New()
	svc := catalog.NewService(s, zerolog.Nop())

	_, err := svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: isbn, Name: "Introduction to Algorithms", OnShelf: 2}, "Thomas Cormen")
	require.NoError(t, err)
	_, err = svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: otherISBN, Name: "Algorithms Unlocked", OnShelf: 1}, "thomas cormen")
	require.NoError(t, err)

	authors, err := svc.ListAuthors(t.Context())
	require.NoError(t, err)
	require.Len(t, authors, 1, "the second title reuses the existing author")

	titles, err := svc.ListTitlesByAuthor(t.Context(), "THOMAS CORMEN")
	require.NoError(t, err)
	assert.Equal(t, []string{otherISBN, isbn}, isbns(titles))

	assert.Equal(t, []string{
		domain.EventAuthorAdded, domain.EventTitleAdded, domain.EventAuthorLinked,
		domain.EventTitleAdded, domain.EventAuthorLinked,
	}, eventTypes(t, s))
}

func TestAddTitleByAuthorIsAllOrNothing(t *testing.T) {
	s := memory.New()
	svc := catalog.NewService(s, zerolog.Nop())
	_, err := svc.AddTitle(t.Context(), domain.Title{ISBN: isbn, Name: "CLRS", OnShelf: 1})
	require.NoError(t, err)

	_, err = svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: isbn, Name: "CLRS", OnShelf: 1}, "Thomas Cormen")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	authors, err := svc.ListAuthors(t.Context())
	require.NoError(t, err)
	assert.Empty(t, authors, "the author created for a rejected title is rolled back")

	_, err = svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: otherISBN, Name: "x", OnShelf: 1}, "K")
	assert.ErrorIs(t, err, catalog.ErrInvalidAuthor)
}

func TestLinkAndUnlinkAuthor(t *testing.T) {
	s := memory.New()
	svc := catalog.NewService(s, zerolog.Nop())
	_, err := svc.AddTitle(t.Context(), domain.Title{ISBN: isbn, Name: "CLRS", OnShelf: 1})
	require.NoError(t, err)
	cormen, err := svc.AddAuthor(t.Context(), "Thomas Cormen")
	require.NoError(t, err)
	leiserson, err := svc.AddAuthor(t.Context(), "Charles Leiserson")
	require.NoError(t, err)

	require.NoError(t, svc.LinkAuthor(t.Context(), isbn, cormen.ID))
	require.NoError(t, svc.LinkAuthor(t.Context(), isbn, leiserson.ID))
	assert.ErrorIs(t, svc.LinkAuthor(t.Context(), isbn, cormen.ID), domain.ErrAlreadyExists)
	assert.ErrorIs(t, svc.LinkAuthor(t.Context(), otherISBN, cormen.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.LinkAuthor(t.Context(), isbn, uuid.New()), domain.ErrNotFound)

	authors, err := svc.TitleAuthors(t.Context(), isbn)
	require.NoError(t, err)
	assert.Equal(t, []domain.Author{*leiserson, *cormen}, authors)

	require.NoError(t, svc.UnlinkAuthor(t.Context(), isbn, cormen.ID))
	assert.ErrorIs(t, svc.UnlinkAuthor(t.Context(), isbn, cormen.ID), domain.ErrNotFound)

	titles, err := svc.ListTitlesByAuthor(t.Context(), "Thomas Cormen")
	require.NoError(t, err)
	assert.Empty(t, titles)

	_, err = svc.TitleAuthors(t.Context(), otherISBN)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemovingTitleOrAuthorDropsCredits(t *testing.T) {
	s := memory.New()
	svc := catalog.NewService(s, zerolog.Nop())
	_, err := svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: isbn, Name: "CLRS", OnShelf: 1}, "Thomas Cormen")
	require.NoError(t, err)
	_, err = svc.AddTitleByAuthor(t.Context(), domain.Title{ISBN: otherISBN, Name: "Design Patterns", OnShelf: 1}, "Erich Gamma")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveTitle(t.Context(), isbn))
	titles, err := svc.ListTitlesByAuthor(t.Context(), "Thomas Cormen")
	require.NoError(t, err)
	assert.Empty(t, titles)

	gamma, err := s.Authors().FindByName(t.Context(), "Erich Gamma")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveAuthor(t.Context(), gamma.ID))
	assert.ErrorIs(t, svc.RemoveAuthor(t.Context(), gamma.ID), domain.ErrNotFound)

	authors, err := svc.TitleAuthors(t.Context(), otherISBN)
	require.NoError(t, err)
	assert.Empty(t, authors)

	titles, err = svc.ListTitlesByAuthor(t.Context(), "Erich Gamma")
	require.NoError(t, err)
	assert.Empty(t, titles, "an unknown author has no titles")
}

func TestAuthorHandler(t *testing.T) {
	svc := catalog.NewService(memory.New(), zerolog.Nop())
	router := httpapi.NewRouter(zerolog.Nop(), catalog.NewHandler(svc))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/titles?author="+url.QueryEscape("Thomas Cormen"), `{"isbn":"`+isbn+`","name":"CLRS","on_shelf":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(http.MethodGet, "/titles/author/"+url.PathEscape("thomas cormen"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var titles []domain.Title
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &titles))
	assert.Equal(t, []string{isbn}, isbns(titles))

	rec = do(http.MethodPost, "/authors", `{"name":"Ronald Rivest"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rivest domain.Author
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rivest))

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/authors", `{"name":"R"}`).Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/authors", `{"name":"ronald rivest"}`).Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/authors/"+rivest.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/authors/not-a-uuid", "").Code)

	assert.Equal(t, http.StatusNoContent, do(http.MethodPut, "/titles/"+isbn+"/authors/"+rivest.ID.String(), "").Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodPut, "/titles/"+isbn+"/authors/"+rivest.ID.String(), "").Code)

	rec = do(http.MethodGet, "/titles/"+isbn+"/authors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var authors []domain.Author
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authors))
	assert.Len(t, authors, 2)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/titles/"+isbn+"/authors/"+rivest.ID.String(), "").Code)
	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/authors/"+rivest.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/authors/"+rivest.ID.String(), "").Code)

	rec = do(http.MethodGet, "/authors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Thomas Cormen"`)
}
