package types

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const CategoryOther = "Other"

// Categories is the fixed set a book category must belong to.
var Categories = []string{
	"Fiction",
	"Non-Fiction",
	"Mystery",
	"Science-Fiction",
	"Fantasy",
	"Romance",
	"Thriller",
	"Biography",
	"History",
	"Self-Development",
	"Business",
	CategoryOther,
}

// IsCategory reports whether c is one of Categories.
func IsCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Book is a catalog record owned by exactly one user.
type Book struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Cover         string    `json:"cover"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	ISBN          string    `json:"isbn"`
	PublishedYear int       `json:"published_year"`
	UserID        uuid.UUID `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const coverPlaceholderFmt = "https://picsum.photos/seed/%s/300/400"

// CoverURL returns the stored cover when it is a URL, otherwise a placeholder
// seeded by the first character of the title.
func (b *Book) CoverURL() string {
	if strings.HasPrefix(b.Cover, "http") {
		return b.Cover
	}
	seed := "book"
	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(b.Title)); r != utf8.RuneError {
		seed = string(unicode.ToLower(r))
	}
	return fmt.Sprintf(coverPlaceholderFmt, seed)
}

// BookView is the JSON shape returned by the book endpoints.
type BookView struct {
	Book
	ResolvedCover string `json:"cover_url"`
}

func NewBookView(b Book) BookView {
	return BookView{Book: b, ResolvedCover: b.CoverURL()}
}

// BookInput carries the caller-supplied fields of a new book.
type BookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Cover         string `json:"cover"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	ISBN          string `json:"isbn"`
	PublishedYear int    `json:"published_year"`
}

// UpdateBookParams holds the mutable fields of a book. Nil means "leave as is".
// Identity, owner and creation time are deliberately absent.
type UpdateBookParams struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	Cover         *string `json:"cover,omitempty"`
	Description   *string `json:"description,omitempty"`
	Category      *string `json:"category,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	PublishedYear *int    `json:"published_year,omitempty"`
}

// UpdateBookRequest is the body accepted by the update endpoint. Clients often
// send back the whole record, so the immutable fields are accepted and dropped.
type UpdateBookRequest struct {
	UpdateBookParams
	ID        any `json:"id,omitempty"`
	UserID    any `json:"user_id,omitempty"`
	CreatedAt any `json:"created_at,omitempty"`
	UpdatedAt any `json:"updated_at,omitempty"`
	CoverURL  any `json:"cover_url,omitempty"`
}
