// Package convert maps domain models to and from the notekeeper.v1 wire messages.
package convert

import (
	"fmt"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"

	pb "github.com/and161185/notekeeper/api/notekeeper/v1"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// --- helpers ---

func ts(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func tsPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func idString(id *u.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// ParseID parses a required UUID field.
func ParseID(field, s string) (u.UUID, error) {
	id, err := u.FromString(strings.TrimSpace(s))
	if err != nil || id == u.Nil {
		return u.Nil, fmt.Errorf("invalid %s %q: %w", field, s, errs.ErrInvalid)
	}
	return id, nil
}

// parseOptionalID treats an empty string as absent.
func parseOptionalID(field, s string) (*u.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := ParseID(field, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// --- notes (server -> client) ---

// ToWireNote converts a domain note. The password hash is reduced to a flag.
func ToWireNote(n model.Note) pb.Note {
	tags := make([]pb.Tag, 0, len(n.Tags))
	for _, t := range n.Tags {
		tags = append(tags, pb.Tag{ID: t.ID.String(), Name: t.Name, Color: t.Color})
	}
	return pb.Note{
		ID:           n.ID.String(),
		OwnerID:      n.OwnerID.String(),
		Title:        n.Title,
		Content:      n.Content,
		ContentHTML:  n.ContentHTML,
		Excerpt:      n.Excerpt,
		Privacy:      string(n.Privacy),
		HasPassword:  n.HasPassword(),
		FolderID:     idString(n.FolderID),
		Icon:         n.Icon,
		Color:        n.Color,
		CoverImage:   n.CoverImage,
		WordCount:    n.WordCount,
		ReadingTime:  n.ReadingTime,
		IsPinned:     n.IsPinned,
		PinnedAt:     tsPtr(n.PinnedAt),
		IsArchived:   n.IsArchived,
		ArchivedAt:   tsPtr(n.ArchivedAt),
		IsDeleted:    n.IsDeleted,
		DeletedAt:    tsPtr(n.DeletedAt),
		ViewCount:    n.ViewCount,
		CreatedAt:    ts(n.CreatedAt),
		UpdatedAt:    ts(n.UpdatedAt),
		LastEditedAt: ts(n.LastEditedAt),
		Tags:         tags,
		VersionCount: n.VersionCount,
	}
}

// ToWireNotes converts a slice of notes; nil maps to empty.
func ToWireNotes(ns []model.Note) []pb.Note {
	out := make([]pb.Note, 0, len(ns))
	for _, n := range ns {
		out = append(out, ToWireNote(n))
	}
	return out
}

// ToWireVersions converts version history.
func ToWireVersions(vs []model.NoteVersion) []pb.Version {
	out := make([]pb.Version, 0, len(vs))
	for _, v := range vs {
		out = append(out, pb.Version{
			Number:         v.Number,
			Title:          v.Title,
			Content:        v.Content,
			AuthorID:       v.AuthorID.String(),
			ChangesSummary: v.ChangesSummary,
			CreatedAt:      ts(v.CreatedAt),
		})
	}
	return out
}

// ToWireFolder converts a folder.
func ToWireFolder(f model.Folder) pb.Folder {
	return pb.Folder{ID: f.ID.String(), ParentID: idString(f.ParentID), Name: f.Name, CreatedAt: ts(f.CreatedAt)}
}

// ToWireFolders converts a slice of folders.
func ToWireFolders(fs []model.Folder) []pb.Folder {
	out := make([]pb.Folder, 0, len(fs))
	for _, f := range fs {
		out = append(out, ToWireFolder(f))
	}
	return out
}

// ToWireShareLink converts a share link.
func ToWireShareLink(l model.ShareLink) pb.ShareLink {
	return pb.ShareLink{
		ID: l.ID.String(), NoteID: l.NoteID.String(), Token: l.Token, IsActive: l.IsActive,
		ExpiresAt: tsPtr(l.ExpiresAt), CreatedAt: ts(l.CreatedAt),
	}
}

// ToWireEnrichment converts an enrichment result.
func ToWireEnrichment(e model.Enrichment) pb.Enrichment {
	kw := e.Keywords
	if kw == nil {
		kw = []string{}
	}
	return pb.Enrichment{NoteID: e.NoteID.String(), Keywords: kw, Summary: e.Summary, Sentiment: e.Sentiment, UpdatedAt: ts(e.UpdatedAt)}
}

func toWireFacets(fs []model.FacetCount) []pb.FacetCount {
	out := make([]pb.FacetCount, 0, len(fs))
	for _, f := range fs {
		out = append(out, pb.FacetCount{Value: f.Value, Count: f.Count})
	}
	return out
}

// ToWireSearch converts a resolved search page.
func ToWireSearch(r model.SearchResult) *pb.SearchResponse {
	hits := make([]pb.SearchHit, 0, len(r.Hits))
	for _, h := range r.Hits {
		hits = append(hits, pb.SearchHit{Note: ToWireNote(h.Note), Score: h.Score, Highlights: h.Highlights})
	}
	return &pb.SearchResponse{Hits: hits, Total: r.Total, Tags: toWireFacets(r.Tags), Folders: toWireFacets(r.Folders)}
}

// --- requests (client -> server) ---

// FromWireCreate converts a create request.
func FromWireCreate(in *pb.CreateNoteRequest) (model.CreateNoteInput, error) {
	if in == nil {
		return model.CreateNoteInput{}, fmt.Errorf("nil create request: %w", errs.ErrInvalid)
	}
	folder, err := parseOptionalID("folderId", in.FolderID)
	if err != nil {
		return model.CreateNoteInput{}, err
	}
	return model.CreateNoteInput{
		Title:      in.Title,
		Content:    in.Content,
		FolderID:   folder,
		Tags:       in.Tags,
		Privacy:    model.Privacy(strings.ToUpper(in.Privacy)),
		Password:   in.Password,
		Icon:       in.Icon,
		Color:      in.Color,
		CoverImage: in.CoverImage,
	}, nil
}

// FromWireUpdate converts an update request into the note id and partial input.
// A clear flag wins over a value for the same field.
func FromWireUpdate(in *pb.UpdateNoteRequest) (u.UUID, model.UpdateNoteInput, error) {
	if in == nil {
		return u.Nil, model.UpdateNoteInput{}, fmt.Errorf("nil update request: %w", errs.ErrInvalid)
	}
	id, err := ParseID("id", in.ID)
	if err != nil {
		return u.Nil, model.UpdateNoteInput{}, err
	}
	out := model.UpdateNoteInput{
		Title:      in.Title,
		Content:    in.Content,
		Tags:       in.Tags,
		Icon:       in.Icon,
		Color:      in.Color,
		CoverImage: in.CoverImage,
		IsPinned:   in.IsPinned,
		IsArchived: in.IsArchived,
		IfVersion:  in.IfVersion,
	}
	switch {
	case in.ClearFolder:
		out.FolderID = model.Null[u.UUID]()
	case in.FolderID != nil:
		folder, err := ParseID("folderId", *in.FolderID)
		if err != nil {
			return u.Nil, model.UpdateNoteInput{}, err
		}
		out.FolderID = model.Set(folder)
	}
	switch {
	case in.ClearPassword:
		out.Password = model.Null[string]()
	case in.Password != nil:
		out.Password = model.Set(*in.Password)
	}
	if in.Privacy != nil {
		p := model.Privacy(strings.ToUpper(*in.Privacy))
		out.Privacy = &p
	}
	return id, out, nil
}

// FromWireList converts list paging options.
func FromWireList(in *pb.ListNotesRequest) (model.ListOptions, error) {
	if in == nil {
		return model.ListOptions{}, nil
	}
	folder, err := parseOptionalID("folderId", in.FolderID)
	if err != nil {
		return model.ListOptions{}, err
	}
	return model.ListOptions{
		FolderID: folder,
		Archived: in.Archived,
		Limit:    in.Limit,
		Offset:   in.Offset,
		SortBy:   model.SortField(strings.ToLower(in.SortBy)),
		Order:    model.SortOrder(strings.ToLower(in.Order)),
	}, nil
}

// FromWireSearch converts a search request scoped to caller.
func FromWireSearch(caller u.UUID, in *pb.SearchRequest) (model.SearchOptions, error) {
	if in == nil {
		return model.SearchOptions{}, fmt.Errorf("nil search request: %w", errs.ErrInvalid)
	}
	folder, err := parseOptionalID("folderId", in.FolderID)
	if err != nil {
		return model.SearchOptions{}, err
	}
	out := model.SearchOptions{
		CallerID: caller,
		Query:    in.Query,
		Tags:     in.Tags,
		FolderID: folder,
		Archived: in.Archived,
		Limit:    in.Limit,
		Offset:   in.Offset,
		SortBy:   model.SortField(strings.ToLower(in.SortBy)),
		Order:    model.SortOrder(strings.ToLower(in.Order)),
	}
	if in.Privacy != "" {
		p := model.Privacy(strings.ToUpper(in.Privacy))
		if !p.Valid() {
			return model.SearchOptions{}, fmt.Errorf("privacy %q: %w", in.Privacy, errs.ErrInvalid)
		}
		out.Privacy = &p
	}
	return out, nil
}
