// Package grpcserver exposes the notekeeper.v1.Notes gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/and161185/notekeeper/api/notekeeper/v1"
	"github.com/and161185/notekeeper/internal/convert"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/service"
)

// Server wires the note service into gRPC handlers.
type Server struct {
	pb.UnimplementedNotesServer
	notes   service.NoteService
	signKey []byte
}

// New constructs a gRPC server with injected services.
func New(notes service.NoteService, signKey []byte) *Server {
	return &Server{notes: notes, signKey: signKey}
}

var _ pb.NotesServer = (*Server)(nil)

// toStatus maps domain errors to gRPC codes. Invalid is checked first so that
// a foreign folder reference reports InvalidArgument.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrInvalid):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "password required or wrong")
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, "owner only")
	case errors.Is(err, errs.ErrVersionConflict):
		return status.Error(codes.FailedPrecondition, "version conflict")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Errorf(codes.ResourceExhausted, "%v", err)
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "%s: internal", op)
	}
}

// caller returns the authenticated user, preferring the one stored by AuthUnary.
func (s *Server) caller(ctx context.Context) (uuid.UUID, error) {
	if id, ok := UserIDFromCtx(ctx); ok {
		return id, nil
	}
	id, err := s.userIDFromCtx(ctx)
	if err != nil {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

// --- Notes ---

// CreateNote stores a new note.
func (s *Server) CreateNote(ctx context.Context, req *pb.CreateNoteRequest) (*pb.NoteResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	in, err := convert.FromWireCreate(req)
	if err != nil {
		return nil, toStatus("create", err)
	}
	n, err := s.notes.Create(ctx, userID, in)
	if err != nil {
		return nil, toStatus("create", err)
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// UpdateNote applies a partial update.
func (s *Server) UpdateNote(ctx context.Context, req *pb.UpdateNoteRequest) (*pb.NoteResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, in, err := convert.FromWireUpdate(req)
	if err != nil {
		return nil, toStatus("update", err)
	}
	n, err := s.notes.Update(ctx, userID, id, in)
	if err != nil {
		return nil, toStatus("update", err)
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// GetNote returns a readable note.
func (s *Server) GetNote(ctx context.Context, req *pb.NoteRequest) (*pb.NoteResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus("get", err)
	}
	n, err := s.notes.Get(ctx, userID, id, req.Password)
	if err != nil {
		return nil, toStatus("get", err)
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// GetSharedNote reads a note through a share link token.
func (s *Server) GetSharedNote(ctx context.Context, req *pb.GetSharedRequest) (*pb.NoteResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.notes.GetShared(ctx, userID, req.Token, req.Password)
	if err != nil {
		return nil, toStatus("get shared", err)
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// ListNotes returns a page of the caller's notes.
func (s *Server) ListNotes(ctx context.Context, req *pb.ListNotesRequest) (*pb.ListNotesResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := convert.FromWireList(req)
	if err != nil {
		return nil, toStatus("list", err)
	}
	page, err := s.notes.List(ctx, userID, opts)
	if err != nil {
		return nil, toStatus("list", err)
	}
	return &pb.ListNotesResponse{Notes: convert.ToWireNotes(page.Notes), Total: page.Total}, nil
}

// SearchNotes runs a full-text search over the caller's notes.
func (s *Server) SearchNotes(ctx context.Context, req *pb.SearchRequest) (*pb.SearchResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := convert.FromWireSearch(userID, req)
	if err != nil {
		return nil, toStatus("search", err)
	}
	res, err := s.notes.Search(ctx, opts)
	if err != nil {
		return nil, toStatus("search", err)
	}
	return convert.ToWireSearch(res), nil
}

// --- Lifecycle ---

// noteOp runs an owner operation addressed by note id.
func (s *Server) noteOp(ctx context.Context, op, rawID string, fn func(userID, noteID uuid.UUID) error) error {
	userID, err := s.caller(ctx)
	if err != nil {
		return err
	}
	id, err := convert.ParseID("id", rawID)
	if err != nil {
		return toStatus(op, err)
	}
	if err := fn(userID, id); err != nil {
		return toStatus(op, err)
	}
	return nil
}

// DeleteNote moves a note to the trash.
func (s *Server) DeleteNote(ctx context.Context, req *pb.NoteRequest) (*pb.Empty, error) {
	err := s.noteOp(ctx, "delete", req.ID, func(userID, noteID uuid.UUID) error {
		return s.notes.Delete(ctx, userID, noteID)
	})
	if err != nil {
		return nil, err
	}
	return &pb.Empty{}, nil
}

// RestoreNote takes a note out of the trash.
func (s *Server) RestoreNote(ctx context.Context, req *pb.NoteRequest) (*pb.NoteResponse, error) {
	var n *model.Note
	err := s.noteOp(ctx, "restore", req.ID, func(userID, noteID uuid.UUID) (err error) {
		n, err = s.notes.Restore(ctx, userID, noteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// PurgeNote permanently removes a trashed note.
func (s *Server) PurgeNote(ctx context.Context, req *pb.NoteRequest) (*pb.Empty, error) {
	err := s.noteOp(ctx, "purge", req.ID, func(userID, noteID uuid.UUID) error {
		return s.notes.PermanentDelete(ctx, userID, noteID)
	})
	if err != nil {
		return nil, err
	}
	return &pb.Empty{}, nil
}

// ListVersions returns the version history, newest first.
func (s *Server) ListVersions(ctx context.Context, req *pb.NoteRequest) (*pb.ListVersionsResponse, error) {
	var vs []model.NoteVersion
	err := s.noteOp(ctx, "list versions", req.ID, func(userID, noteID uuid.UUID) (err error) {
		vs, err = s.notes.ListVersions(ctx, userID, noteID, req.Password)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.ListVersionsResponse{Versions: convert.ToWireVersions(vs)}, nil
}

// RestoreVersion re-applies an old version as a new one.
func (s *Server) RestoreVersion(ctx context.Context, req *pb.RestoreVersionRequest) (*pb.NoteResponse, error) {
	if req.Version < 1 {
		return nil, status.Error(codes.InvalidArgument, "version number must be positive")
	}
	var n *model.Note
	err := s.noteOp(ctx, "restore version", req.ID, func(userID, noteID uuid.UUID) (err error) {
		n, err = s.notes.RestoreVersion(ctx, userID, noteID, req.Version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// DuplicateNote copies a readable note into a new private note.
func (s *Server) DuplicateNote(ctx context.Context, req *pb.NoteRequest) (*pb.NoteResponse, error) {
	var n *model.Note
	err := s.noteOp(ctx, "duplicate", req.ID, func(userID, noteID uuid.UUID) (err error) {
		n, err = s.notes.Duplicate(ctx, userID, noteID, req.Password)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.NoteResponse{Note: convert.ToWireNote(*n)}, nil
}

// Reindex rebuilds the caller's search documents.
func (s *Server) Reindex(ctx context.Context, _ *pb.Empty) (*pb.ReindexResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.notes.ReindexOwner(ctx, userID)
	if err != nil {
		return nil, toStatus("reindex", err)
	}
	return &pb.ReindexResponse{Count: count}, nil
}

// GetEnrichment returns the stored analysis of a readable note.
func (s *Server) GetEnrichment(ctx context.Context, req *pb.NoteRequest) (*pb.EnrichmentResponse, error) {
	var e *model.Enrichment
	err := s.noteOp(ctx, "get enrichment", req.ID, func(userID, noteID uuid.UUID) (err error) {
		e, err = s.notes.GetEnrichment(ctx, userID, noteID, req.Password)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.EnrichmentResponse{Enrichment: convert.ToWireEnrichment(*e)}, nil
}

// --- Sharing ---

// CreateShareLink issues a share token; ttlSeconds <= 0 never expires.
func (s *Server) CreateShareLink(ctx context.Context, req *pb.CreateShareLinkRequest) (*pb.ShareLinkResponse, error) {
	var l *model.ShareLink
	err := s.noteOp(ctx, "share", req.NoteID, func(userID, noteID uuid.UUID) (err error) {
		l, err = s.notes.CreateShareLink(ctx, userID, noteID, time.Duration(req.TTLSeconds)*time.Second)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pb.ShareLinkResponse{Link: convert.ToWireShareLink(*l)}, nil
}

// RevokeShareLink deactivates a share link.
func (s *Server) RevokeShareLink(ctx context.Context, req *pb.RevokeShareLinkRequest) (*pb.Empty, error) {
	linkID, err := convert.ParseID("linkId", req.LinkID)
	if err != nil {
		return nil, toStatus("revoke", err)
	}
	err = s.noteOp(ctx, "revoke", req.NoteID, func(userID, noteID uuid.UUID) error {
		return s.notes.RevokeShareLink(ctx, userID, noteID, linkID)
	})
	if err != nil {
		return nil, err
	}
	return &pb.Empty{}, nil
}

// AddCollaborator grants another user access.
func (s *Server) AddCollaborator(ctx context.Context, req *pb.CollaboratorRequest) (*pb.Empty, error) {
	other, err := convert.ParseID("userId", req.UserID)
	if err != nil {
		return nil, toStatus("add collaborator", err)
	}
	perm := model.Permission(strings.ToUpper(req.Permission))
	err = s.noteOp(ctx, "add collaborator", req.NoteID, func(userID, noteID uuid.UUID) error {
		return s.notes.AddCollaborator(ctx, userID, noteID, other, perm)
	})
	if err != nil {
		return nil, err
	}
	return &pb.Empty{}, nil
}

// RemoveCollaborator revokes a collaborator.
func (s *Server) RemoveCollaborator(ctx context.Context, req *pb.CollaboratorRequest) (*pb.Empty, error) {
	other, err := convert.ParseID("userId", req.UserID)
	if err != nil {
		return nil, toStatus("remove collaborator", err)
	}
	err = s.noteOp(ctx, "remove collaborator", req.NoteID, func(userID, noteID uuid.UUID) error {
		return s.notes.RemoveCollaborator(ctx, userID, noteID, other)
	})
	if err != nil {
		return nil, err
	}
	return &pb.Empty{}, nil
}

// --- Folders ---

// CreateFolder adds a folder for the caller.
func (s *Server) CreateFolder(ctx context.Context, req *pb.CreateFolderRequest) (*pb.FolderResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	var parent *uuid.UUID
	if req.ParentID != "" {
		id, err := convert.ParseID("parentId", req.ParentID)
		if err != nil {
			return nil, toStatus("create folder", err)
		}
		parent = &id
	}
	f, err := s.notes.CreateFolder(ctx, userID, req.Name, parent)
	if err != nil {
		return nil, toStatus("create folder", err)
	}
	return &pb.FolderResponse{Folder: convert.ToWireFolder(*f)}, nil
}

// ListFolders returns the caller's folders.
func (s *Server) ListFolders(ctx context.Context, _ *pb.Empty) (*pb.ListFoldersResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := s.notes.ListFolders(ctx, userID)
	if err != nil {
		return nil, toStatus("list folders", err)
	}
	return &pb.ListFoldersResponse{Folders: convert.ToWireFolders(fs)}, nil
}

// --- Auth ---

// userIDFromCtx: extract "authorization: Bearer <JWT>", verify HS256, return sub as UUID.
func (s *Server) userIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	return verifyBearer(ctx, s.signKey)
}

func verifyBearer(ctx context.Context, signKey []byte) (uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errors.New("token expired or not valid yet")
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("bad subject")
	}
	return id, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
