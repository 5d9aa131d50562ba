package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/solatis/smartlist/internal/core/api"
	"github.com/solatis/smartlist/internal/core/auth"
	"github.com/solatis/smartlist/internal/core/config"
	"github.com/solatis/smartlist/internal/core/db"
	"github.com/solatis/smartlist/internal/library"
	"github.com/solatis/smartlist/internal/metrics"
	"github.com/solatis/smartlist/internal/playlist"
	"github.com/solatis/smartlist/internal/rules"
)

func TestOpsRouter(t *testing.T) {
	m := metrics.New()
	m.ScannedFiles.Inc()

	healthy := NewOpsRouter(m.Handler(), func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smartlist_scanned_files_total 1")

	sick := NewOpsRouter(m.Handler(), func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	sick.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTimeoutInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/x/y"}

	var deadline time.Time
	var hasDeadline bool
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		deadline, hasDeadline = ctx.Deadline()
		return nil, nil
	}

	_, err := TimeoutInterceptor(time.Second)(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)

	_, err = TimeoutInterceptor(0)(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.False(t, hasDeadline)
}

type staticCatalog []playlist.Entry

func (c staticCatalog) ListEntries(int) ([]playlist.Entry, error) { return c, nil }

func (c staticCatalog) MetadataSnapshot() (playlist.MetadataProvider, error) {
	return playlist.MetadataFunc(func(string) rules.FieldResolver { return nil }), nil
}

func TestGRPCServer_EndToEnd(t *testing.T) {
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(conn))
	q, err := db.LoadQueries(conn)
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(map[string][]byte{
		"0123456789abcdef0123456789abcdef": []byte("0123456789abcdef0123456789abcdef"),
	}, q)
	_, key, err := authenticator.CreateKey("test")
	require.NoError(t, err)

	pl := playlist.New("video")
	pl.Rules = []rules.Rule{rules.NewRule(rules.FieldKind, rules.OpEq, library.KindVideo)}
	catalog := staticCatalog{
		{Media: library.MediaFile{Path: "a.mkv", Kind: library.KindVideo}, Source: "/lib"},
		{Media: library.MediaFile{Path: "b.mp3", Kind: library.KindAudio}, Source: "/lib"},
	}
	svc, err := api.NewService(catalog, func() []playlist.SmartPlaylist { return []playlist.SmartPlaylist{pl} }, 10, nil, zerolog.Nop())
	require.NoError(t, err)

	cfg := config.Default().Server
	srv, err := NewGRPCServer(cfg, svc, authenticator, zerolog.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	client := api.NewClient(cc)

	_, err = client.EvaluatePlaylist(context.Background(), map[string]any{"name": "video"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", key)
	resp, err := client.EvaluatePlaylist(ctx, map[string]any{"name": "video"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp.GetFields()["count"].GetNumberValue())

	// Health checks go through the same interceptor chain
	health, err := grpc_health_v1.NewHealthClient(cc).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, health.GetStatus())
}

func TestNewGRPCServer_RequiresDependencies(t *testing.T) {
	cfg := config.Default().Server
	if _, err := NewGRPCServer(cfg, nil, &auth.Authenticator{}, zerolog.Nop()); err == nil {
		t.Error("NewGRPCServer() accepted nil service")
	}
}
