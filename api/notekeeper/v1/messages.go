// Package notekeeperv1 is the wire contract of the notekeeper.v1.Notes gRPC service.
// Messages travel as JSON through the codec registered by this package.
package notekeeperv1

import "time"

// Note is the public shape of a note. The password hash never leaves the server.
type Note struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	ContentHTML  string     `json:"contentHtml"`
	Excerpt      string     `json:"excerpt"`
	Privacy      string     `json:"privacy"`
	HasPassword  bool       `json:"hasPassword"`
	FolderID     string     `json:"folderId,omitempty"`
	Icon         string     `json:"icon,omitempty"`
	Color        string     `json:"color,omitempty"`
	CoverImage   string     `json:"coverImage,omitempty"`
	WordCount    int        `json:"wordCount"`
	ReadingTime  int        `json:"readingTime"`
	IsPinned     bool       `json:"isPinned"`
	PinnedAt     *time.Time `json:"pinnedAt,omitempty"`
	IsArchived   bool       `json:"isArchived"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
	IsDeleted    bool       `json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	ViewCount    int64      `json:"viewCount"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
	Tags         []Tag      `json:"tags"`
	VersionCount int        `json:"versionCount"`
}

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Version struct {
	Number         int        `json:"versionNumber"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	AuthorID       string     `json:"authorId"`
	ChangesSummary string     `json:"changesSummary"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

type Folder struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parentId,omitempty"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type ShareLink struct {
	ID        string     `json:"id"`
	NoteID    string     `json:"noteId"`
	Token     string     `json:"token"`
	IsActive  bool       `json:"isActive"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type Enrichment struct {
	NoteID    string     `json:"noteId"`
	Keywords  []string   `json:"keywords"`
	Summary   string     `json:"summary"`
	Sentiment string     `json:"sentiment"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type SearchHit struct {
	Note       Note                `json:"note"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// Empty is the response of calls that return nothing.
type Empty struct{}

type CreateNoteRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	FolderID   string   `json:"folderId,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Privacy    string   `json:"privacy,omitempty"`
	Password   *string  `json:"password,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Color      string   `json:"color,omitempty"`
	CoverImage string   `json:"coverImage,omitempty"`
}

// UpdateNoteRequest is a partial update. Absent fields are left unchanged;
// ClearFolder and ClearPassword remove the folder and password.
type UpdateNoteRequest struct {
	ID            string    `json:"id"`
	Title         *string   `json:"title,omitempty"`
	Content       *string   `json:"content,omitempty"`
	FolderID      *string   `json:"folderId,omitempty"`
	ClearFolder   bool      `json:"clearFolder,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Privacy       *string   `json:"privacy,omitempty"`
	Password      *string   `json:"password,omitempty"`
	ClearPassword bool      `json:"clearPassword,omitempty"`
	Icon          *string   `json:"icon,omitempty"`
	Color         *string   `json:"color,omitempty"`
	CoverImage    *string   `json:"coverImage,omitempty"`
	IsPinned      *bool     `json:"isPinned,omitempty"`
	IsArchived    *bool     `json:"isArchived,omitempty"`
	IfVersion     *int      `json:"ifVersion,omitempty"`
}

type NoteResponse struct {
	Note Note `json:"note"`
}

// NoteRequest addresses one note; Password is only checked on reads.
type NoteRequest struct {
	ID       string  `json:"id"`
	Password *string `json:"password,omitempty"`
}

type GetSharedRequest struct {
	Token    string  `json:"token"`
	Password *string `json:"password,omitempty"`
}

type ListNotesRequest struct {
	FolderID string `json:"folderId,omitempty"`
	Archived bool   `json:"archived,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
	Order    string `json:"order,omitempty"`
}

type ListNotesResponse struct {
	Notes []Note `json:"notes"`
	Total int    `json:"total"`
}

type SearchRequest struct {
	Query    string   `json:"query"`
	Tags     []string `json:"tags,omitempty"`
	FolderID string   `json:"folderId,omitempty"`
	Privacy  string   `json:"privacy,omitempty"`
	Archived bool     `json:"archived,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
	SortBy   string   `json:"sortBy,omitempty"`
	Order    string   `json:"order,omitempty"`
}

type SearchResponse struct {
	Hits    []SearchHit  `json:"hits"`
	Total   int          `json:"total"`
	Tags    []FacetCount `json:"tags"`
	Folders []FacetCount `json:"folders"`
}

type ListVersionsResponse struct {
	Versions []Version `json:"versions"`
}

type RestoreVersionRequest struct {
	ID      string `json:"id"`
	Version int    `json:"versionNumber"`
}

type ReindexResponse struct {
	Count int `json:"count"`
}

type EnrichmentResponse struct {
	Enrichment Enrichment `json:"enrichment"`
}

type CreateShareLinkRequest struct {
	NoteID     string `json:"noteId"`
	TTLSeconds int64  `json:"ttlSeconds,omitempty"`
}

type ShareLinkResponse struct {
	Link ShareLink `json:"link"`
}

type RevokeShareLinkRequest struct {
	NoteID string `json:"noteId"`
	LinkID string `json:"linkId"`
}

type CollaboratorRequest struct {
	NoteID     string `json:"noteId"`
	UserID     string `json:"userId"`
	Permission string `json:"permission,omitempty"`
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

type FolderResponse struct {
	Folder Folder `json:"folder"`
}

type ListFoldersResponse struct {
	Folders []Folder `json:"folders"`
}
