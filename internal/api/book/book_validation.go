package book

import (
	"strings"
	"time"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// ValidateISBN accepts exactly 10 or 13 digits once hyphens are removed.
func ValidateISBN(isbn string) bool {
	digits := strings.ReplaceAll(isbn, "-", "")
	if len(digits) != 10 && len(digits) != 13 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidateYear accepts positive years up to and including the year of now.
func ValidateYear(year int, now time.Time) bool {
	return year > 0 && year <= now.Year()
}

// ValidateBook checks a complete record and reports every failing field.
func ValidateBook(b *types.Book, now time.Time) error {
	v := &api.ValidationError{}
	if b.Title == "" {
		v.Add("title", "is required")
	}
	if b.Author == "" {
		v.Add("author", "is required")
	}
	if b.Description == "" {
		v.Add("description", "is required")
	}
	switch {
	case b.Category == "":
		v.Add("category", "is required")
	case !types.IsCategory(b.Category):
		v.Add("category", "must be one of: "+strings.Join(types.Categories, ", "))
	}
	if b.ISBN != "" && !ValidateISBN(b.ISBN) {
		v.Add("isbn", "must contain 10 or 13 digits")
	}
	if !ValidateYear(b.PublishedYear, now) {
		v.Add("published_year", "must be between 1 and the current year")
	}
	return v.OrNil()
}

func normalize(b *types.Book) {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Cover = strings.TrimSpace(b.Cover)
	b.Description = strings.TrimSpace(b.Description)
	b.Category = strings.TrimSpace(b.Category)
	b.ISBN = strings.TrimSpace(b.ISBN)
}

// applyUpdate copies the supplied fields onto b. Identity, owner and
// timestamps are not part of params and so cannot change here.
func applyUpdate(b *types.Book, params types.UpdateBookParams) {
	if params.Title != nil {
		b.Title = *params.Title
	}
	if params.Author != nil {
		b.Author = *params.Author
	}
	if params.Cover != nil {
		b.Cover = *params.Cover
	}
	if params.Description != nil {
		b.Description = *params.Description
	}
	if params.Category != nil {
		b.Category = *params.Category
	}
	if params.ISBN != nil {
		b.ISBN = *params.ISBN
	}
	if params.PublishedYear != nil {
		b.PublishedYear = *params.PublishedYear
	}
	normalize(b)
}
