package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	pb "github.com/and161185/notekeeper/api/notekeeper/v1"
)

var errUnknownCommand = errors.New("unknown command")

// none clears an optional field on edit.
const none = "none"

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// setFlags reports which flags were given explicitly.
func setFlags(fs *flag.FlagSet) map[string]bool {
	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	return seen
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func requireID(id string) error {
	if id == "" {
		return errors.New("need -id")
	}
	return nil
}

// run executes one command against cli and writes the result as JSON to out.
func run(ctx context.Context, cli pb.NotesClient, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "create":
		return cmdCreate(ctx, cli, args, out)
	case "get":
		fs := newFlags(cmd)
		id := fs.String("id", "", "note id")
		pw := fs.String("password", "", "note password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		resp, err := cli.GetNote(ctx, &pb.NoteRequest{ID: *id, Password: optional(*pw)})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Note)
	case "shared":
		fs := newFlags(cmd)
		tok := fs.String("token", "", "share token")
		pw := fs.String("password", "", "note password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *tok == "" {
			return errors.New("need -token")
		}
		resp, err := cli.GetSharedNote(ctx, &pb.GetSharedRequest{Token: *tok, Password: optional(*pw)})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Note)
	case "edit":
		return cmdEdit(ctx, cli, args, out)
	case "ls":
		fs := newFlags(cmd)
		folder := fs.String("folder", "", "folder id")
		archived := fs.Bool("archived", false, "list archived notes")
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "page offset")
		sortBy := fs.String("sort", "", "createdAt|updatedAt|title")
		order := fs.String("order", "", "asc|desc")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := cli.ListNotes(ctx, &pb.ListNotesRequest{FolderID: *folder, Archived: *archived,
			Limit: *limit, Offset: *offset, SortBy: *sortBy, Order: *order})
		if err != nil {
			return err
		}
		return printJSON(out, summarize(resp.Notes, resp.Total))
	case "search":
		fs := newFlags(cmd)
		q := fs.String("q", "", "query text")
		tags := fs.String("tags", "", "comma separated tags")
		folder := fs.String("folder", "", "folder id")
		privacy := fs.String("privacy", "", "PRIVATE|SHARED|PUBLIC")
		archived := fs.Bool("archived", false, "search archived notes")
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "page offset")
		sortBy := fs.String("sort", "", "relevance|createdAt|updatedAt|title")
		order := fs.String("order", "", "asc|desc")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := cli.SearchNotes(ctx, &pb.SearchRequest{Query: *q, Tags: splitTags(*tags), FolderID: *folder,
			Privacy: *privacy, Archived: *archived, Limit: *limit, Offset: *offset, SortBy: *sortBy, Order: *order})
		if err != nil {
			return err
		}
		return printJSON(out, resp)
	case "rm", "purge":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		call := cli.DeleteNote
		if cmd == "purge" {
			call = cli.PurgeNote
		}
		if _, err := call(ctx, &pb.NoteRequest{ID: id}); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, "ok")
		return err
	case "restore", "dup":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		call := cli.RestoreNote
		if cmd == "dup" {
			call = cli.DuplicateNote
		}
		resp, err := call(ctx, &pb.NoteRequest{ID: id})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Note)
	case "versions":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		resp, err := cli.ListVersions(ctx, &pb.NoteRequest{ID: id})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Versions)
	case "revert":
		fs := newFlags(cmd)
		id := fs.String("id", "", "note id")
		v := fs.Int("v", 0, "version number")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		if *v < 1 {
			return errors.New("need -v >= 1")
		}
		resp, err := cli.RestoreVersion(ctx, &pb.RestoreVersionRequest{ID: *id, Version: *v})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Note)
	case "enrichment":
		id, err := parseID(cmd, args)
		if err != nil {
			return err
		}
		resp, err := cli.GetEnrichment(ctx, &pb.NoteRequest{ID: id})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Enrichment)
	case "share":
		fs := newFlags(cmd)
		id := fs.String("id", "", "note id")
		ttl := fs.Duration("ttl", 0, "link lifetime (0 = no expiry)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		resp, err := cli.CreateShareLink(ctx, &pb.CreateShareLinkRequest{NoteID: *id, TTLSeconds: int64(*ttl / time.Second)})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Link)
	case "unshare":
		fs := newFlags(cmd)
		id := fs.String("id", "", "note id")
		link := fs.String("link", "", "share link id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		if _, err := cli.RevokeShareLink(ctx, &pb.RevokeShareLinkRequest{NoteID: *id, LinkID: *link}); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "ok")
		return err
	case "collab":
		fs := newFlags(cmd)
		id := fs.String("id", "", "note id")
		user := fs.String("user", "", "collaborator user id")
		perm := fs.String("perm", "READ", "READ|WRITE")
		remove := fs.Bool("rm", false, "remove the collaborator")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := requireID(*id); err != nil {
			return err
		}
		req := &pb.CollaboratorRequest{NoteID: *id, UserID: *user, Permission: strings.ToUpper(*perm)}
		call := cli.AddCollaborator
		if *remove {
			call = cli.RemoveCollaborator
		}
		if _, err := call(ctx, req); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "ok")
		return err
	case "folders":
		resp, err := cli.ListFolders(ctx, &pb.Empty{})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Folders)
	case "mkdir":
		fs := newFlags(cmd)
		name := fs.String("name", "", "folder name")
		parent := fs.String("parent", "", "parent folder id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := cli.CreateFolder(ctx, &pb.CreateFolderRequest{Name: *name, ParentID: *parent})
		if err != nil {
			return err
		}
		return printJSON(out, resp.Folder)
	case "reindex":
		resp, err := cli.Reindex(ctx, &pb.Empty{})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "indexed %d notes\n", resp.Count)
		return err
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func parseID(cmd string, args []string) (string, error) {
	fs := newFlags(cmd)
	id := fs.String("id", "", "note id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *id, requireID(*id)
}

func cmdCreate(ctx context.Context, cli pb.NotesClient, args []string, out io.Writer) error {
	fs := newFlags("create")
	title := fs.String("title", "", "title")
	file := fs.String("file", "", "content file (- for stdin)")
	tags := fs.String("tags", "", "comma separated tags")
	privacy := fs.String("privacy", "", "PRIVATE|SHARED|PUBLIC")
	folder := fs.String("folder", "", "folder id")
	pw := fs.String("password", "", "note password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := &pb.CreateNoteRequest{Title: *title, Tags: splitTags(*tags), Privacy: *privacy,
		FolderID: *folder, Password: optional(*pw)}
	if *file != "" {
		b, err := readAll(*file)
		if err != nil {
			return err
		}
		req.Content = string(b)
	}
	resp, err := cli.CreateNote(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(out, resp.Note)
}

func cmdEdit(ctx context.Context, cli pb.NotesClient, args []string, out io.Writer) error {
	fs := newFlags("edit")
	id := fs.String("id", "", "note id")
	title := fs.String("title", "", "title")
	file := fs.String("file", "", "content file (- for stdin)")
	tags := fs.String("tags", "", "comma separated tags (replaces all)")
	privacy := fs.String("privacy", "", "PRIVATE|SHARED|PUBLIC")
	folder := fs.String("folder", "", "folder id, or none")
	pw := fs.String("password", "", "note password, or none")
	pin := fs.String("pin", "", "true|false")
	archive := fs.String("archive", "", "true|false")
	ifVersion := fs.Int("if-version", 0, "expected current version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}

	seen := setFlags(fs)
	req := &pb.UpdateNoteRequest{ID: *id}
	if seen["title"] {
		req.Title = title
	}
	if seen["file"] {
		b, err := readAll(*file)
		if err != nil {
			return err
		}
		s := string(b)
		req.Content = &s
	}
	if seen["tags"] {
		t := splitTags(*tags)
		req.Tags = &t
	}
	if seen["privacy"] {
		req.Privacy = privacy
	}
	switch {
	case !seen["folder"]:
	case *folder == none:
		req.ClearFolder = true
	default:
		req.FolderID = folder
	}
	switch {
	case !seen["password"]:
	case *pw == none:
		req.ClearPassword = true
	default:
		req.Password = pw
	}
	var err error
	if req.IsPinned, err = optionalBool("pin", *pin, seen); err != nil {
		return err
	}
	if req.IsArchived, err = optionalBool("archive", *archive, seen); err != nil {
		return err
	}
	if seen["if-version"] {
		req.IfVersion = ifVersion
	}

	resp, err := cli.UpdateNote(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(out, resp.Note)
}

func optionalBool(name, v string, seen map[string]bool) (*bool, error) {
	if !seen[name] {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &b, nil
}

type listRow struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Privacy   string     `json:"privacy"`
	Pinned    bool       `json:"pinned,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type listPage struct {
	Total int       `json:"total"`
	Notes []listRow `json:"notes"`
}

func summarize(notes []pb.Note, total int) listPage {
	rows := make([]listRow, 0, len(notes))
	for _, n := range notes {
		tags := make([]string, 0, len(n.Tags))
		for _, t := range n.Tags {
			tags = append(tags, t.Name)
		}
		rows = append(rows, listRow{ID: n.ID, Title: n.Title, Privacy: n.Privacy,
			Pinned: n.IsPinned, Tags: tags, UpdatedAt: n.UpdatedAt})
	}
	return listPage{Total: total, Notes: rows}
}
