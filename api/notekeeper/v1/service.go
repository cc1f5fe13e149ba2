package notekeeperv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "notekeeper.v1.Notes"

// NotesServer is the server API of notekeeper.v1.Notes.
type NotesServer interface {
	CreateNote(context.Context, *CreateNoteRequest) (*NoteResponse, error)
	UpdateNote(context.Context, *UpdateNoteRequest) (*NoteResponse, error)
	GetNote(context.Context, *NoteRequest) (*NoteResponse, error)
	GetSharedNote(context.Context, *GetSharedRequest) (*NoteResponse, error)
	ListNotes(context.Context, *ListNotesRequest) (*ListNotesResponse, error)
	SearchNotes(context.Context, *SearchRequest) (*SearchResponse, error)
	DeleteNote(context.Context, *NoteRequest) (*Empty, error)
	RestoreNote(context.Context, *NoteRequest) (*NoteResponse, error)
	PurgeNote(context.Context, *NoteRequest) (*Empty, error)
	ListVersions(context.Context, *NoteRequest) (*ListVersionsResponse, error)
	RestoreVersion(context.Context, *RestoreVersionRequest) (*NoteResponse, error)
	DuplicateNote(context.Context, *NoteRequest) (*NoteResponse, error)
	Reindex(context.Context, *Empty) (*ReindexResponse, error)
	GetEnrichment(context.Context, *NoteRequest) (*EnrichmentResponse, error)
	CreateShareLink(context.Context, *CreateShareLinkRequest) (*ShareLinkResponse, error)
	RevokeShareLink(context.Context, *RevokeShareLinkRequest) (*Empty, error)
	AddCollaborator(context.Context, *CollaboratorRequest) (*Empty, error)
	RemoveCollaborator(context.Context, *CollaboratorRequest) (*Empty, error)
	CreateFolder(context.Context, *CreateFolderRequest) (*FolderResponse, error)
	ListFolders(context.Context, *Empty) (*ListFoldersResponse, error)
}

// UnimplementedNotesServer answers every call with codes.Unimplemented.
// Embed it to stay forward compatible.
type UnimplementedNotesServer struct{}

func (UnimplementedNotesServer) CreateNote(context.Context, *CreateNoteRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateNote not implemented")
}
func (UnimplementedNotesServer) UpdateNote(context.Context, *UpdateNoteRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateNote not implemented")
}
func (UnimplementedNotesServer) GetNote(context.Context, *NoteRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNote not implemented")
}
func (UnimplementedNotesServer) GetSharedNote(context.Context, *GetSharedRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSharedNote not implemented")
}
func (UnimplementedNotesServer) ListNotes(context.Context, *ListNotesRequest) (*ListNotesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNotes not implemented")
}
func (UnimplementedNotesServer) SearchNotes(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SearchNotes not implemented")
}
func (UnimplementedNotesServer) DeleteNote(context.Context, *NoteRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteNote not implemented")
}
func (UnimplementedNotesServer) RestoreNote(context.Context, *NoteRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RestoreNote not implemented")
}
func (UnimplementedNotesServer) PurgeNote(context.Context, *NoteRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method PurgeNote not implemented")
}
func (UnimplementedNotesServer) ListVersions(context.Context, *NoteRequest) (*ListVersionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListVersions not implemented")
}
func (UnimplementedNotesServer) RestoreVersion(context.Context, *RestoreVersionRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RestoreVersion not implemented")
}
func (UnimplementedNotesServer) DuplicateNote(context.Context, *NoteRequest) (*NoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DuplicateNote not implemented")
}
func (UnimplementedNotesServer) Reindex(context.Context, *Empty) (*ReindexResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Reindex not implemented")
}
func (UnimplementedNotesServer) GetEnrichment(context.Context, *NoteRequest) (*EnrichmentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEnrichment not implemented")
}
func (UnimplementedNotesServer) CreateShareLink(context.Context, *CreateShareLinkRequest) (*ShareLinkResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateShareLink not implemented")
}
func (UnimplementedNotesServer) RevokeShareLink(context.Context, *RevokeShareLinkRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeShareLink not implemented")
}
func (UnimplementedNotesServer) AddCollaborator(context.Context, *CollaboratorRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AddCollaborator not implemented")
}
func (UnimplementedNotesServer) RemoveCollaborator(context.Context, *CollaboratorRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveCollaborator not implemented")
}
func (UnimplementedNotesServer) CreateFolder(context.Context, *CreateFolderRequest) (*FolderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateFolder not implemented")
}
func (UnimplementedNotesServer) ListFolders(context.Context, *Empty) (*ListFoldersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListFolders not implemented")
}

var _ NotesServer = UnimplementedNotesServer{}

// unary builds the method descriptor that decodes Req and dispatches to call.
func unary[Req, Resp any](method string, call func(NotesServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NotesServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(NotesServer), ctx, req.(*Req))
			})
		},
	}
}

// NotesServiceDesc describes notekeeper.v1.Notes for grpc.ServiceRegistrar.
var NotesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotesServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateNote", NotesServer.CreateNote),
		unary("UpdateNote", NotesServer.UpdateNote),
		unary("GetNote", NotesServer.GetNote),
		unary("GetSharedNote", NotesServer.GetSharedNote),
		unary("ListNotes", NotesServer.ListNotes),
		unary("SearchNotes", NotesServer.SearchNotes),
		unary("DeleteNote", NotesServer.DeleteNote),
		unary("RestoreNote", NotesServer.RestoreNote),
		unary("PurgeNote", NotesServer.PurgeNote),
		unary("ListVersions", NotesServer.ListVersions),
		unary("RestoreVersion", NotesServer.RestoreVersion),
		unary("DuplicateNote", NotesServer.DuplicateNote),
		unary("Reindex", NotesServer.Reindex),
		unary("GetEnrichment", NotesServer.GetEnrichment),
		unary("CreateShareLink", NotesServer.CreateShareLink),
		unary("RevokeShareLink", NotesServer.RevokeShareLink),
		unary("AddCollaborator", NotesServer.AddCollaborator),
		unary("RemoveCollaborator", NotesServer.RemoveCollaborator),
		unary("CreateFolder", NotesServer.CreateFolder),
		unary("ListFolders", NotesServer.ListFolders),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notekeeper/v1/notes",
}

// RegisterNotesServer registers srv on s.
func RegisterNotesServer(s grpc.ServiceRegistrar, srv NotesServer) {
	s.RegisterService(&NotesServiceDesc, srv)
}
