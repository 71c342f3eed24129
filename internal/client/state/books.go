// Package state holds the client-side collection and session state as plain
// values with pure transition functions. Nothing here performs I/O.
package state

import (
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// State is the user's collection plus the derived filtered view.
// Filtered is always Derive(All, SearchTerm, CategoryFilter).
type State struct {
	All            []types.Book
	Filtered       []types.Book
	SearchTerm     string
	CategoryFilter string
	Selected       *types.Book
	Loading        bool
	Err            error
}

// Action is one state transition request.
type Action interface{ isAction() }

type (
	// Request marks an operation as in flight.
	Request struct{}
	// Failure ends an operation with an error. The collection is left as is.
	Failure struct{ Err error }

	FetchSuccess  struct{ Books []types.Book }
	CreateSuccess struct{ Book types.Book }
	UpdateSuccess struct{ Book types.Book }
	DeleteSuccess struct{ ID uuid.UUID }

	SetSearchTerm     struct{ Term string }
	SetCategoryFilter struct{ Category string }
	// Select sets the current book. A nil Book clears it.
	Select struct{ Book *types.Book }
)

func (Request) isAction()           {}
func (Failure) isAction()           {}
func (FetchSuccess) isAction()      {}
func (CreateSuccess) isAction()     {}
func (UpdateSuccess) isAction()     {}
func (DeleteSuccess) isAction()     {}
func (SetSearchTerm) isAction()     {}
func (SetCategoryFilter) isAction() {}
func (Select) isAction()            {}

// Derive returns the books matching searchTerm and categoryFilter. An empty
// term matches everything, otherwise it must be a case-insensitive substring
// of the title, author or description. An empty filter matches every
// category, otherwise the category must be equal.
func Derive(all []types.Book, searchTerm, categoryFilter string) []types.Book {
	term := strings.ToLower(searchTerm)
	out := make([]types.Book, 0, len(all))
	for _, b := range all {
		if categoryFilter != "" && b.Category != categoryFilter {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(b.Title), term) &&
			!strings.Contains(strings.ToLower(b.Author), term) &&
			!strings.Contains(strings.ToLower(b.Description), term) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Categories lists the distinct categories present in all, in first-seen order.
func Categories(all []types.Book) []string {
	seen := make(map[string]struct{}, len(all))
	out := []string{}
	for _, b := range all {
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	return out
}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	next := s
	next.All = append([]types.Book(nil), s.All...)

	switch a := a.(type) {
	case Request:
		next.Loading = true
		next.Err = nil
	case Failure:
		next.Loading = false
		next.Err = a.Err
	case FetchSuccess:
		next.Loading = false
		next.Err = nil
		next.All = append([]types.Book(nil), a.Books...)
		if next.Selected != nil && indexOf(next.All, next.Selected.ID) < 0 {
			next.Selected = nil
		}
	case CreateSuccess:
		next.Loading = false
		next.Err = nil
		next.All = append(next.All, a.Book)
	case UpdateSuccess:
		next.Loading = false
		next.Err = nil
		if i := indexOf(next.All, a.Book.ID); i >= 0 {
			next.All[i] = a.Book
		}
		if next.Selected != nil && next.Selected.ID == a.Book.ID {
			b := a.Book
			next.Selected = &b
		}
	case DeleteSuccess:
		next.Loading = false
		next.Err = nil
		if i := indexOf(next.All, a.ID); i >= 0 {
			next.All = append(next.All[:i], next.All[i+1:]...)
		}
		if next.Selected != nil && next.Selected.ID == a.ID {
			next.Selected = nil
		}
	case SetSearchTerm:
		next.SearchTerm = a.Term
	case SetCategoryFilter:
		next.CategoryFilter = a.Category
	case Select:
		if a.Book == nil {
			next.Selected = nil
		} else {
			b := *a.Book
			next.Selected = &b
		}
	}

	next.Filtered = Derive(next.All, next.SearchTerm, next.CategoryFilter)
	return next
}

func indexOf(books []types.Book, id uuid.UUID) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}
