package service

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/and161185/notekeeper/internal/model"
)

const initialSummary = "Initial version"

// tagPalette is the fixed set of colors assigned to new tags.
var tagPalette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#14b8a6", "#3b82f6", "#8b5cf6", "#ec4899",
}

// tagColor picks a palette color from the tag name, so the same name always
// gets the same color.
func tagColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}

// normalizeTags lowercases, trims and de-duplicates names, keeping first-seen order.
func normalizeTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		n := strings.ToLower(strings.TrimSpace(raw))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// newTags builds tag rows for names. Existing rows keep their id and color on upsert.
func newTags(ownerID uuid.UUID, names []string, now time.Time) []model.Tag {
	norm := normalizeTags(names)
	out := make([]model.Tag, 0, len(norm))
	for _, n := range norm {
		out = append(out, model.Tag{
			ID:        uuid.Must(uuid.NewV4()),
			OwnerID:   ownerID,
			Name:      n,
			Color:     tagColor(n),
			CreatedAt: now,
		})
	}
	return out
}

// lineDelta counts added and removed lines between two texts.
func lineDelta(before, after string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if d.Text != "" && !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func sameFolder(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// changeSummary names the top-level fields that differ between two states of a note,
// e.g. "Changed content (+2/-1 lines), title".
func changeSummary(before, after *model.Note) string {
	var parts []string
	if before.Content != after.Content {
		add, del := lineDelta(before.Content, after.Content)
		parts = append(parts, fmt.Sprintf("content (+%d/-%d lines)", add, del))
	}
	if before.Title != after.Title {
		parts = append(parts, "title")
	}
	if !sameFolder(before.FolderID, after.FolderID) {
		parts = append(parts, "folder")
	}
	if before.Privacy != after.Privacy {
		parts = append(parts, "privacy")
	}
	if len(parts) == 0 {
		return "No changes"
	}
	return "Changed " + strings.Join(parts, ", ")
}
