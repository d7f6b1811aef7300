package book

import "github.com/Phelioume11/SymfonProject/internal/types"

// ListBooksResponse is the catalogue index payload: the records plus the
// fixed genre enumeration and the active filter values, so the
// presentation layer can render the filter controls.
type ListBooksResponse struct {
	Books  []types.Book `json:"books"`
	Genres []string     `json:"genres"`
	Genre  string       `json:"genre,omitempty"`
	Query  string       `json:"query,omitempty"`
}

// BookResponse is the detail payload. CanEdit tells the presentation
// layer whether the current actor may edit or delete the record.
type BookResponse struct {
	Book    types.Book `json:"book"`
	CanEdit bool       `json:"can_edit"`
}

// GenresResponse carries the fixed genre enumeration.
type GenresResponse struct {
	Genres []string `json:"genres"`
}
