package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/factory"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "typerace-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/typerace")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	url      string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		SessionHandler: app.SessionHandler,
		WSServer:       app.WSServer,
	})

	addr := freeAddr(t)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		url: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("server at %s did not become ready", url)
}

// gameClient is a raw WebSocket participant
type gameClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func dialGame(t *testing.T, serverURL string) *gameClient {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &gameClient{t: t, conn: conn}
	data := c.await(model.EventPlayerID)
	require.NoError(t, json.Unmarshal(data, &c.id))
	return c
}

func (c *gameClient) send(event model.EventName, payload any) {
	c.t.Helper()

	frame, err := protocol.Encode(event, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, frame))
}

func (c *gameClient) await(event model.EventName) json.RawMessage {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, frame, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", event)
		env, err := protocol.Decode(frame)
		require.NoError(c.t, err)
		if env.Event == event {
			return env.Data
		}
	}
}

func TestCLIAgainstLiveRoom(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	ts := startTestServer(t)
	defer ts.shutdown()
	cli := newCLIRunner(t, ts.url)

	host := dialGame(t, ts.url)
	host.send(model.EventCreateRoom, nil)
	var code string
	require.NoError(t, json.Unmarshal(host.await(model.EventRoomCreated), &code))

	host.send(model.EventJoinRoom, protocol.JoinRoomRequest{RoomCode: code, PlayerName: "Alice", PlayerID: host.id})
	host.await(model.EventPlayerList)

	guest := dialGame(t, ts.url)
	guest.send(model.EventJoinRoom, protocol.JoinRoomRequest{RoomCode: strings.ToLower(code), PlayerName: "Bob", PlayerID: guest.id})
	guest.await(model.EventPlayerList)

	t.Run("health", func(t *testing.T) {
		out, err := cli.run("health")
		require.NoError(t, err, out)

		var health map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &health))
		assert.Equal(t, "ok", health["status"])
		assert.EqualValues(t, 1, health["rooms"])
		assert.EqualValues(t, 2, health["players"])
	})

	t.Run("room get", func(t *testing.T) {
		out, err := cli.run("room", "get", code)
		require.NoError(t, err, out)

		var room struct {
			Code    string `json:"code"`
			HostID  string `json:"host_id"`
			Status  string `json:"status"`
			Players []struct {
				Name string `json:"name"`
			} `json:"players"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &room))
		assert.Equal(t, code, room.Code)
		assert.Equal(t, host.id, room.HostID)
		assert.Equal(t, "waiting", room.Status)
		require.Len(t, room.Players, 2)
		assert.Equal(t, "Alice", room.Players[0].Name)
		assert.Equal(t, "Bob", room.Players[1].Name)
	})

	t.Run("room find", func(t *testing.T) {
		out, err := cli.run("room", "find", guest.id)
		require.NoError(t, err, out)
		assert.Contains(t, out, fmt.Sprintf(`"room_code": %q`, code))
	})

	t.Run("room get after start", func(t *testing.T) {
		host.send(model.EventStartGame, code)
		guest.await(model.EventGameStarted)

		out, err := cli.run("room", "get", code)
		require.NoError(t, err, out)
		assert.Contains(t, out, `"status": "playing"`)
	})

	t.Run("unknown room fails", func(t *testing.T) {
		out, err := cli.run("room", "get", "ZZZZZZ")
		require.Error(t, err)
		assert.Contains(t, out, "ROOM_NOT_FOUND")
	})
}

func TestServeCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	addr := freeAddr(t)
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	serverURL := "http://" + addr
	cli := newCLIRunner(t, serverURL)

	cmd := exec.Command(cli.binaryPath, "serve")
	cmd.Env = append(os.Environ(),
		"TYPERACE_SERVER_HOST=127.0.0.1",
		"TYPERACE_SERVER_PORT="+port,
		"TYPERACE_LOGGING_LEVEL=error",
	)
	require.NoError(t, cmd.Start())

	waitForServer(t, serverURL+"/api/v1/health")

	out, err := cli.run("health")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"status": "ok"`)

	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()
	select {
	case err := <-waitErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("serve did not exit after SIGTERM")
	}
}
