// Package search maintains the full-text index of live notes.
//
// The index is eventually consistent with the record store: callers resolve
// hit ids against the store and drop anything that no longer exists.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/notekeeper/internal/model"
)

// Field boosts for free-text matching.
const (
	titleBoost   = 3.0
	tagsBoost    = 2.0
	contentBoost = 1.0
	fuzziness    = 1
	facetSize    = 25
)

// Hit is one ranked match.
type Hit struct {
	ID         uuid.UUID
	Score      float64
	Highlights map[string][]string
}

// Result is a page of ranked ids with aggregations.
type Result struct {
	Hits    []Hit
	Total   int
	Tags    []model.FacetCount
	Folders []model.FacetCount
}

// Index is the search index used by the note service.
type Index interface {
	// Index stores or replaces a document. Deleted notes are removed instead.
	Index(ctx context.Context, doc Document) error
	// IndexBatch stores many documents at once.
	IndexBatch(ctx context.Context, docs []Document) error
	// Delete removes a document; a missing id is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// Search runs an owner-scoped query.
	Search(ctx context.Context, opts model.SearchOptions) (Result, error)
	// OwnedIDs lists every document id indexed for owner.
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// Document is the indexed shape of a note.
type Document struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Content    string
	Excerpt    string
	FolderID   *uuid.UUID
	FolderName string
	Tags       []model.Tag
	Privacy    model.Privacy
	IsPinned   bool
	IsArchived bool
	IsDeleted  bool
	WordCount  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument builds the indexed shape of n.
func NewDocument(n *model.Note, folderName string) Document {
	return Document{
		ID: n.ID, OwnerID: n.OwnerID,
		Title: n.Title, Content: n.ContentCanonical, Excerpt: n.Excerpt,
		FolderID: n.FolderID, FolderName: folderName,
		Tags: n.Tags, Privacy: n.Privacy,
		IsPinned: n.IsPinned, IsArchived: n.IsArchived, IsDeleted: n.IsDeleted,
		WordCount: n.WordCount, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

func (d Document) fields() map[string]any {
	names := make([]string, 0, len(d.Tags))
	ids := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, strings.ToLower(t.Name))
		ids = append(ids, t.ID.String())
	}
	folderID := ""
	if d.FolderID != nil {
		folderID = d.FolderID.String()
	}
	return map[string]any{
		"ownerId":    d.OwnerID.String(),
		"title":      d.Title,
		"titleSort":  strings.ToLower(d.Title),
		"content":    d.Content,
		"excerpt":    d.Excerpt,
		"folderId":   folderID,
		"folderName": d.FolderName,
		"tags":       names,
		"tagIds":     ids,
		"tagText":    strings.Join(names, " "),
		"privacy":    string(d.Privacy),
		"isPinned":   d.IsPinned,
		"isArchived": d.IsArchived,
		"isDeleted":  d.IsDeleted,
		"wordCount":  float64(d.WordCount),
		"createdAt":  d.CreatedAt,
		"updatedAt":  d.UpdatedAt,
	}
}

func newMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	stored := bleve.NewTextFieldMapping()
	stored.Index = false

	keyword := bleve.NewKeywordFieldMapping()
	boolean := bleve.NewBooleanFieldMapping()
	numeric := bleve.NewNumericFieldMapping()
	datetime := bleve.NewDateTimeFieldMapping()

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range []string{"ownerId", "titleSort", "folderId", "tags", "tagIds", "privacy"} {
		doc.AddFieldMappingsAt(f, keyword)
	}
	for _, f := range []string{"title", "content", "tagText", "folderName"} {
		doc.AddFieldMappingsAt(f, text)
	}
	doc.AddFieldMappingsAt("excerpt", stored)
	for _, f := range []string{"isPinned", "isArchived", "isDeleted"} {
		doc.AddFieldMappingsAt(f, boolean)
	}
	doc.AddFieldMappingsAt("wordCount", numeric)
	doc.AddFieldMappingsAt("createdAt", datetime)
	doc.AddFieldMappingsAt("updatedAt", datetime)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = standard.Name
	return im
}

// Bleve implements Index with a bleve index.
type Bleve struct {
	idx bleve.Index
}

var _ Index = (*Bleve)(nil)

// NewMemory creates a non-persistent index.
func NewMemory() (*Bleve, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, err
	}
	return &Bleve{idx: idx}, nil
}

// Open opens the index at path, creating it when missing.
func Open(path string) (*Bleve, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Bleve{idx: idx}, nil
}

// Close releases the index.
func (b *Bleve) Close() error { return b.idx.Close() }

// Index stores a document, or removes it when the note is deleted.
func (b *Bleve) Index(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.IsDeleted {
		return b.idx.Delete(doc.ID.String())
	}
	return b.idx.Index(doc.ID.String(), doc.fields())
}

// IndexBatch stores many documents in one batch.
func (b *Bleve) IndexBatch(ctx context.Context, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := b.idx.NewBatch()
	for _, d := range docs {
		if d.IsDeleted {
			batch.Delete(d.ID.String())
			continue
		}
		if err := batch.Index(d.ID.String(), d.fields()); err != nil {
			return err
		}
	}
	return b.idx.Batch(batch)
}

// Delete removes a document.
func (b *Bleve) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.idx.Delete(id.String())
}

func term(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func flag(field string, v bool) query.Query {
	q := bleve.NewBoolFieldQuery(v)
	q.SetField(field)
	return q
}

func match(field, text string, boost float64) query.Query {
	q := bleve.NewMatchQuery(text)
	q.SetField(field)
	q.SetBoost(boost)
	q.SetFuzziness(fuzziness)
	return q
}

func buildQuery(opts model.SearchOptions) query.Query {
	must := []query.Query{
		term("ownerId", opts.CallerID.String()),
		flag("isDeleted", false),
		flag("isArchived", opts.Archived),
	}
	if len(opts.Tags) > 0 {
		anyTag := make([]query.Query, 0, len(opts.Tags))
		for _, t := range opts.Tags {
			anyTag = append(anyTag, term("tags", strings.ToLower(strings.TrimSpace(t))))
		}
		must = append(must, bleve.NewDisjunctionQuery(anyTag...))
	}
	if opts.FolderID != nil {
		must = append(must, term("folderId", opts.FolderID.String()))
	}
	if opts.Privacy != nil {
		must = append(must, term("privacy", string(*opts.Privacy)))
	}

	text := strings.TrimSpace(opts.Query)
	if text == "" {
		return bleve.NewConjunctionQuery(must...)
	}
	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	bq.AddShould(
		match("title", text, titleBoost),
		match("tagText", text, tagsBoost),
		match("content", text, contentBoost),
	)
	bq.SetMinShould(1)
	return bq
}

func sortOrder(opts model.SearchOptions) []string {
	desc := opts.Order != model.OrderAsc
	field := ""
	switch opts.SortBy {
	case model.SortCreated:
		field = "createdAt"
	case model.SortUpdated:
		field = "updatedAt"
	case model.SortTitle:
		field = "titleSort"
		desc = opts.Order == model.OrderDesc
	default:
		if strings.TrimSpace(opts.Query) == "" {
			return []string{"-updatedAt", "_id"}
		}
		return []string{"-_score", "_id"}
	}
	if desc {
		field = "-" + field
	}
	return []string{field, "_id"}
}

// Search runs an owner-scoped query with highlights and facets.
func (b *Bleve) Search(ctx context.Context, opts model.SearchOptions) (Result, error) {
	req := bleve.NewSearchRequestOptions(buildQuery(opts), model.ClampLimit(opts.Limit), max(opts.Offset, 0), false)
	req.SortBy(sortOrder(opts))
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("title")
	req.Highlight.AddField("content")
	req.AddFacet("tags", bleve.NewFacetRequest("tags", facetSize))
	req.AddFacet("folders", bleve.NewFacetRequest("folderId", facetSize))

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	out := Result{Total: int(res.Total), Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		id, err := uuid.FromString(h.ID)
		if err != nil {
			continue
		}
		out.Hits = append(out.Hits, Hit{ID: id, Score: h.Score, Highlights: h.Fragments})
	}
	out.Tags = facetCounts(res, "tags")
	out.Folders = facetCounts(res, "folders")
	return out, nil
}

const idPageSize = 500

// OwnedIDs pages through the owner's documents regardless of state.
func (b *Bleve) OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for from := 0; ; from += idPageSize {
		req := bleve.NewSearchRequestOptions(term("ownerId", ownerID.String()), idPageSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := b.idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("owned ids: %w", err)
		}
		for _, h := range res.Hits {
			if id, err := uuid.FromString(h.ID); err == nil {
				out = append(out, id)
			}
		}
		if len(res.Hits) < idPageSize {
			return out, nil
		}
	}
}

func facetCounts(res *bleve.SearchResult, name string) []model.FacetCount {
	out := []model.FacetCount{}
	fr, ok := res.Facets[name]
	if !ok || fr.Terms == nil {
		return out
	}
	for _, tf := range fr.Terms.Terms() {
		if tf.Term == "" {
			continue
		}
		out = append(out, model.FacetCount{Value: tf.Term, Count: tf.Count})
	}
	return out
}
