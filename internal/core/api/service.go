// Package api provides the gRPC SmartPlaylists service.
//
// Requests and responses are google.protobuf.Struct messages, so clients in
// any language can call the service with the well-known types alone.
package api

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/smartlist/internal/metrics"
	"github.com/solatis/smartlist/internal/playlist"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "smartlist.v1.SmartPlaylists"

// Catalog supplies the entries playlists are evaluated against.
// Implemented by *library.Index.
type Catalog interface {
	ListEntries(limit int) ([]playlist.Entry, error)
	MetadataSnapshot() (playlist.MetadataProvider, error)
}

// PlaylistLoader returns the current playlist definitions.
type PlaylistLoader func() []playlist.SmartPlaylist

// FileLoader reads playlists from path on every call, so edits are picked up
// without a restart.
func FileLoader(path string) PlaylistLoader {
	return func() []playlist.SmartPlaylist { return playlist.Load(path) }
}

// SmartPlaylistsServer is the server API for the SmartPlaylists service.
type SmartPlaylistsServer interface {
	ListPlaylists(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluatePlaylist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidatePlaylist(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Service implements SmartPlaylistsServer.
// Thin orchestration layer delegating to the playlist and library packages.
type Service struct {
	catalog    Catalog
	playlists  PlaylistLoader
	metrics    *metrics.Metrics
	maxResults int
	log        zerolog.Logger
}

// NewService creates service instance with dependencies. m may be nil.
func NewService(catalog Catalog, playlists PlaylistLoader, maxResults int, m *metrics.Metrics, logger zerolog.Logger) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if playlists == nil {
		return nil, fmt.Errorf("playlists cannot be nil")
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("maxResults must be positive, got %d", maxResults)
	}
	return &Service{
		catalog:    catalog,
		playlists:  playlists,
		metrics:    m,
		maxResults: maxResults,
		log:        logger.With().Str("component", "api").Logger(),
	}, nil
}

// Register adds the service to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv SmartPlaylistsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(SmartPlaylistsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SmartPlaylistsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(SmartPlaylistsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the SmartPlaylists service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SmartPlaylistsServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListPlaylists", SmartPlaylistsServer.ListPlaylists),
		unaryHandler("EvaluatePlaylist", SmartPlaylistsServer.EvaluatePlaylist),
		unaryHandler("ValidatePlaylist", SmartPlaylistsServer.ValidatePlaylist),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "smartlist/v1/playlists.proto",
}

// Client calls the SmartPlaylists service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPlaylists calls SmartPlaylists.ListPlaylists.
func (c *Client) ListPlaylists(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListPlaylists", req, opts...)
}

// EvaluatePlaylist calls SmartPlaylists.EvaluatePlaylist.
func (c *Client) EvaluatePlaylist(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "EvaluatePlaylist", req, opts...)
}

// ValidatePlaylist calls SmartPlaylists.ValidatePlaylist.
func (c *Client) ValidatePlaylist(ctx context.Context, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ValidatePlaylist", req, opts...)
}
