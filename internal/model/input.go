package model

import "github.com/gofrs/uuid/v5"

// Nullable carries either an explicit value or an explicit null.
// Fields typed *Nullable[T] distinguish three states: nil (absent, leave as is),
// &Nullable{Value: nil} (clear) and &Nullable{Value: &v} (set).
type Nullable[T any] struct {
	Value *T
}

// Null returns an explicit null.
func Null[T any]() *Nullable[T] { return &Nullable[T]{} }

// Set returns an explicit value.
func Set[T any](v T) *Nullable[T] { return &Nullable[T]{Value: &v} }

// CreateNoteInput is the payload for creating a note.
type CreateNoteInput struct {
	Title      string
	Content    string
	FolderID   *uuid.UUID
	Tags       []string
	Privacy    Privacy // empty = PRIVATE
	Password   *string
	Icon       string
	Color      string
	CoverImage string
}

// UpdateNoteInput is a partial update; nil fields are left unchanged.
type UpdateNoteInput struct {
	Title      *string
	Content    *string
	FolderID   *Nullable[uuid.UUID]
	Tags       *[]string // replaces the whole set when present
	Privacy    *Privacy
	Password   *Nullable[string]
	Icon       *string
	Color      *string
	CoverImage *string
	IsPinned   *bool
	IsArchived *bool

	// IfVersion, when set, must equal the note's current version count or the update fails
	// with a version conflict.
	IfVersion *int
}

// SortField selects the ordering of search and list results.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortCreated   SortField = "created"
	SortUpdated   SortField = "updated"
	SortTitle     SortField = "title"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Paging limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// SearchOptions scopes a full-text search to the caller's notes.
type SearchOptions struct {
	CallerID uuid.UUID
	Query    string
	Tags     []string
	FolderID *uuid.UUID
	Privacy  *Privacy
	Archived bool
	Limit    int
	Offset   int
	SortBy   SortField
	Order    SortOrder
}

// SearchHit is one resolved search result.
type SearchHit struct {
	Note       Note                `json:"note"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// FacetCount is a bucket of an aggregation.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResult is the page returned by a search.
type SearchResult struct {
	Hits    []SearchHit  `json:"hits"`
	Total   int          `json:"total"`
	Tags    []FacetCount `json:"tags"`
	Folders []FacetCount `json:"folders"`
}

// ListOptions selects a page of the owner's notes.
type ListOptions struct {
	FolderID *uuid.UUID
	Archived bool
	Limit    int
	Offset   int
	SortBy   SortField
	Order    SortOrder
}

// NotePage is a page of notes with the unpaged total.
type NotePage struct {
	Notes []Note `json:"notes"`
	Total int    `json:"total"`
}
