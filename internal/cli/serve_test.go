package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStore(t *testing.T) {
	store, closeFn, err := BuildStore(StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.NoError(t, closeFn())

	store, _, err = BuildStore(StoreConfig{Driver: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	_, _, err = BuildStore(StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestBuildStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, closeFn, err := BuildStore(StoreConfig{
		Driver: "redis",
		Redis:  RedisConfig{Addr: mr.Addr(), Prefix: "cli:"},
	})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &redis.Store{}, store)

	require.NoError(t, store.Save(context.Background(), "acme", codec.Encode(greetingFlow())))
	assert.True(t, mr.Exists("cli:acme"))
}

func TestNewServer_Routes(t *testing.T) {
	cfg := DefaultServeConfig()
	cfg.Preview.Delay = 0

	srv, cleanup, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	data, err := ExportFlow(greetingFlow(), "json")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/flows/acme", strings.NewReader(string(data)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Less(t, resp.StatusCode, 300)

	resp, err = http.Post(ts.URL+"/previews", "application/json", strings.NewReader(`{"owner":"acme"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "chatflow_node_visits_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := DefaultServeConfig()
	cfg.Addr = "127.0.0.1:0"
	prev := stderr
	stderr = io.Discard
	t.Cleanup(func() { stderr = prev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg) }()
	cancel()

	assert.NoError(t, <-done)
}

func TestNewServer_EncryptsAtRest(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultServeConfig()
	cfg.Store = StoreConfig{
		Driver:        "file",
		Path:          dir,
		EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32)),
	}

	srv, cleanup, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	data, err := ExportFlow(greetingFlow(), "json")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/flows/acme", bytes.NewReader(data))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Less(t, resp.StatusCode, 300)

	raw, err := file.New(dir).Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw.Nodes[1].Text, "enc:v1:"))

	resp, err = http.Get(ts.URL + "/flows/acme")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Hello")
}

func TestNewServer_RejectsBadKey(t *testing.T) {
	cfg := DefaultServeConfig()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	_, _, err := NewServer(cfg, logging.NewNop())
	assert.Error(t, err)
}
