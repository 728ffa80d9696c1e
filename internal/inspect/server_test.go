package inspect

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/internal/core/scene"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one equals want.
func readUntil(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if string(msg) == want {
			return
		}
	}
}

func TestBroadcast(t *testing.T) {
	s := NewServer("", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Publish([]byte("first"))
	a := dial(t, srv)
	readUntil(t, a, "first")

	b := dial(t, srv)
	readUntil(t, b, "first")
	require.Eventually(t, func() bool { return s.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	s.Publish([]byte("second"))
	readUntil(t, a, "second")
	readUntil(t, b, "second")
}

func TestClientDisconnect(t *testing.T) {
	s := NewServer("", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start(context.Background()))
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Zero(t, s.ClientCount())
}

func TestSnapshot(t *testing.T) {
	sc := scene.New("demo", reflection.NewRegistry())
	_, err := sc.CreateEntity("Camera", models.RootHandle)
	require.NoError(t, err)

	data, err := Snapshot(sc, 42)
	require.NoError(t, err)

	var got struct {
		Frame uint64 `json:"frame"`
		Scene struct {
			Name     string
			Entities []struct{ Name string }
		} `json:"scene"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(42), got.Frame)
	assert.Equal(t, "demo", got.Scene.Name)
	require.Len(t, got.Scene.Entities, 2)
	assert.Equal(t, "Camera", got.Scene.Entities[1].Name)
}
