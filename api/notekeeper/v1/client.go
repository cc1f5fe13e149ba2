package notekeeperv1

import (
	"context"

	"google.golang.org/grpc"
)

// NotesClient is the client API of notekeeper.v1.Notes.
type NotesClient interface {
	CreateNote(ctx context.Context, in *CreateNoteRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	UpdateNote(ctx context.Context, in *UpdateNoteRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	GetNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	GetSharedNote(ctx context.Context, in *GetSharedRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	ListNotes(ctx context.Context, in *ListNotesRequest, opts ...grpc.CallOption) (*ListNotesResponse, error)
	SearchNotes(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	DeleteNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*Empty, error)
	RestoreNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	PurgeNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*Empty, error)
	ListVersions(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error)
	RestoreVersion(ctx context.Context, in *RestoreVersionRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	DuplicateNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	Reindex(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ReindexResponse, error)
	GetEnrichment(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*EnrichmentResponse, error)
	CreateShareLink(ctx context.Context, in *CreateShareLinkRequest, opts ...grpc.CallOption) (*ShareLinkResponse, error)
	RevokeShareLink(ctx context.Context, in *RevokeShareLinkRequest, opts ...grpc.CallOption) (*Empty, error)
	AddCollaborator(ctx context.Context, in *CollaboratorRequest, opts ...grpc.CallOption) (*Empty, error)
	RemoveCollaborator(ctx context.Context, in *CollaboratorRequest, opts ...grpc.CallOption) (*Empty, error)
	CreateFolder(ctx context.Context, in *CreateFolderRequest, opts ...grpc.CallOption) (*FolderResponse, error)
	ListFolders(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListFoldersResponse, error)
}

type notesClient struct {
	cc grpc.ClientConnInterface
}

// NewNotesClient returns a client that speaks the JSON codec over cc.
func NewNotesClient(cc grpc.ClientConnInterface) NotesClient {
	return &notesClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notesClient) CreateNote(ctx context.Context, in *CreateNoteRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "CreateNote", in, opts)
}

func (c *notesClient) UpdateNote(ctx context.Context, in *UpdateNoteRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "UpdateNote", in, opts)
}

func (c *notesClient) GetNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "GetNote", in, opts)
}

func (c *notesClient) GetSharedNote(ctx context.Context, in *GetSharedRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "GetSharedNote", in, opts)
}

func (c *notesClient) ListNotes(ctx context.Context, in *ListNotesRequest, opts ...grpc.CallOption) (*ListNotesResponse, error) {
	return invoke[ListNotesResponse](ctx, c.cc, "ListNotes", in, opts)
}

func (c *notesClient) SearchNotes(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, "SearchNotes", in, opts)
}

func (c *notesClient) DeleteNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteNote", in, opts)
}

func (c *notesClient) RestoreNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "RestoreNote", in, opts)
}

func (c *notesClient) PurgeNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "PurgeNote", in, opts)
}

func (c *notesClient) ListVersions(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*ListVersionsResponse, error) {
	return invoke[ListVersionsResponse](ctx, c.cc, "ListVersions", in, opts)
}

func (c *notesClient) RestoreVersion(ctx context.Context, in *RestoreVersionRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "RestoreVersion", in, opts)
}

func (c *notesClient) DuplicateNote(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, "DuplicateNote", in, opts)
}

func (c *notesClient) Reindex(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ReindexResponse, error) {
	return invoke[ReindexResponse](ctx, c.cc, "Reindex", in, opts)
}

func (c *notesClient) GetEnrichment(ctx context.Context, in *NoteRequest, opts ...grpc.CallOption) (*EnrichmentResponse, error) {
	return invoke[EnrichmentResponse](ctx, c.cc, "GetEnrichment", in, opts)
}

func (c *notesClient) CreateShareLink(ctx context.Context, in *CreateShareLinkRequest, opts ...grpc.CallOption) (*ShareLinkResponse, error) {
	return invoke[ShareLinkResponse](ctx, c.cc, "CreateShareLink", in, opts)
}

func (c *notesClient) RevokeShareLink(ctx context.Context, in *RevokeShareLinkRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RevokeShareLink", in, opts)
}

func (c *notesClient) AddCollaborator(ctx context.Context, in *CollaboratorRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "AddCollaborator", in, opts)
}

func (c *notesClient) RemoveCollaborator(ctx context.Context, in *CollaboratorRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RemoveCollaborator", in, opts)
}

func (c *notesClient) CreateFolder(ctx context.Context, in *CreateFolderRequest, opts ...grpc.CallOption) (*FolderResponse, error) {
	return invoke[FolderResponse](ctx, c.cc, "CreateFolder", in, opts)
}

func (c *notesClient) ListFolders(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListFoldersResponse, error) {
	return invoke[ListFoldersResponse](ctx, c.cc, "ListFolders", in, opts)
}
