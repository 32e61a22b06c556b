// internal/catalog/domain.go
package catalog

import (
	"net/http"

	"libralend/internal/httpapi"
)

var (
	ErrInvalidTitle  = httpapi.NewStatusError(http.StatusBadRequest, "title needs an ISBN-13 starting with 978 or 979, a name and a non-negative copy count")
	ErrTitleOnLoan   = httpapi.NewStatusError(http.StatusConflict, "title has copies on loan")
	ErrInvalidAuthor = httpapi.NewStatusError(http.StatusBadRequest, "author name must be 2 to 100 characters")
)

// TitleAddedEvent is journaled when a title enters the catalog.
type TitleAddedEvent struct {
	ISBN    string `json:"isbn"`
	Name    string `json:"name"`
	OnShelf int    `json:"on_shelf"`
}

// TitleUpdatedEvent is journaled when descriptive fields change.
type TitleUpdatedEvent struct {
	ISBN          string `json:"isbn"`
	Name          string `json:"name"`
	Publisher     string `json:"publisher,omitempty"`
	Edition       string `json:"edition,omitempty"`
	PublishedYear int    `json:"published_year,omitempty"`
}

// TitleRemovedEvent is journaled when a title is retired from the catalog.
type TitleRemovedEvent struct {
	ISBN    string `json:"isbn"`
	OnShelf int    `json:"on_shelf"`
}

// AuthorAddedEvent is journaled when an author enters the catalog.
type AuthorAddedEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorRemovedEvent is journaled when an author and their credits go away.
type AuthorRemovedEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorCreditEvent is journaled when an author is credited on a title or
// the credit is withdrawn.
type AuthorCreditEvent struct {
	ISBN     string `json:"isbn"`
	AuthorID string `json:"author_id"`
}
