package types

import (
	"time"

	"github.com/google/uuid"
)

// Genres is the fixed, ordered genre enumeration shared by validation,
// filtering and the presentation layer. Changing it is a data-model
// migration, not a runtime operation.
var Genres = []string{"Roman", "SF", "Fantasy", "Policier", "Biographie", "Jeunesse"}

// ValidGenre reports whether genre belongs to the fixed enumeration.
func ValidGenre(genre string) bool {
	for _, g := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}

// Book is a catalogue record. Slug is unique across all records and
// recomputed whenever the title changes. CoverImage is either nil or the
// name of a file that exists in the asset store.
type Book struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description *string    `json:"description,omitempty"`
	Genre       string     `json:"genre"`
	Slug        string     `json:"slug"`
	CoverImage  *string    `json:"cover_image,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CreateBookParams carries the validated form input for a new record.
type CreateBookParams struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description *string `json:"description,omitempty"`
	Genre       string  `json:"genre"`
}

// UpdateBookParams carries the mutable fields for an edit. Pointers
// distinguish "not provided" from an explicit empty value.
type UpdateBookParams struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	Genre       *string `json:"genre,omitempty"`
}

// BookFilter restricts catalogue listings. Genre is an exact match,
// Query a case-insensitive substring over title OR author. Both combine
// with logical AND.
type BookFilter struct {
	Genre string
	Query string
}

// FileUpload is the opaque upload input handed to the asset store:
// raw bytes plus the client-supplied filename (used for the extension).
type FileUpload struct {
	Data     []byte
	Filename string
}
