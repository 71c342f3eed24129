package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_CoverURL(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want string
	}{
		{"stored url", Book{Title: "Dune", Cover: "https://covers.example/dune.jpg"}, "https://covers.example/dune.jpg"},
		{"placeholder from title", Book{Title: "Dune"}, "https://picsum.photos/seed/d/300/400"},
		{"non-url cover ignored", Book{Title: "emma", Cover: "emma.jpg"}, "https://picsum.photos/seed/e/300/400"},
		{"leading space", Book{Title: "  Rebecca"}, "https://picsum.photos/seed/r/300/400"},
		{"empty title", Book{}, "https://picsum.photos/seed/book/300/400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.book.CoverURL())
		})
	}
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("Fiction"))
	assert.True(t, IsCategory(CategoryOther))
	assert.False(t, IsCategory("fiction"))
	assert.False(t, IsCategory(""))
}

func TestNewBookView(t *testing.T) {
	v := NewBookView(Book{Title: "Dune"})
	assert.Equal(t, "Dune", v.Title)
	assert.Equal(t, "https://picsum.photos/seed/d/300/400", v.ResolvedCover)
}

func TestUserAuth_View(t *testing.T) {
	u := &UserAuth{Username: "alice", Email: "alice@example.com", Password: "$2a$digest"}
	v := u.View()
	assert.Equal(t, "alice", v.Username)
	assert.Equal(t, "alice@example.com", v.Email)
}
