package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
	"github.com/mcoot/typerace/internal/services/registry"
	"github.com/mcoot/typerace/internal/services/session"
	"github.com/mcoot/typerace/internal/storage/memory"
	"github.com/mcoot/typerace/internal/testutil"
)

type ServerSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	hubs    *HubManager
	handler *session.Handler
	server  *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	logger := testutil.NopLogger()
	clock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ids := mocks.NewMockIdentity()
	s.random = mocks.NewMockRandom()
	s.hubs = NewHubManager(logger)
	reg := registry.New(memory.New(), s.random, clock, logger)
	s.handler = session.NewHandler(reg, s.hubs, nil, ids, clock, logger)

	opts := DefaultOptions()
	opts.AllowedOrigins = []string{"http://allowed.example"}
	wsServer := NewServer(s.handler, s.hubs, ids, opts, logger)
	s.server = httptest.NewServer(http.HandlerFunc(wsServer.ServeWS))
}

func (s *ServerSuite) TearDownTest() {
	s.server.Close()
	s.hubs.Shutdown()
}

// Helper methods

func (s *ServerSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *ServerSuite) send(conn *websocket.Conn, event model.EventName, payload any) {
	frame, err := protocol.Encode(event, payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, frame))
}

// await reads frames until one with the given event arrives
func (s *ServerSuite) await(conn *websocket.Conn, event model.EventName) json.RawMessage {
	return awaitEvent(s.T(), conn, event)
}

func awaitEvent(t *testing.T, conn *websocket.Conn, event model.EventName) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		env, err := protocol.Decode(frame)
		require.NoError(t, err)
		if env.Event == event {
			return env.Data
		}
	}
}

func (s *ServerSuite) connectAndJoin(code model.RoomCode, name string) (*websocket.Conn, string) {
	conn := s.dial()
	var id string
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventPlayerID), &id))
	s.send(conn, model.EventJoinRoom, protocol.JoinRoomRequest{RoomCode: string(code), PlayerName: name, PlayerID: id})
	s.await(conn, model.EventPlayerList)
	return conn, id
}

func (s *ServerSuite) players(raw json.RawMessage) []string {
	var players []protocol.PlayerPayload
	s.Require().NoError(json.Unmarshal(raw, &players))
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

// Tests

func (s *ServerSuite) TestConnectIssuesPlayerID() {
	conn := s.dial()

	var id string
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventPlayerID), &id))
	s.NotEmpty(id)
}

func (s *ServerSuite) TestCreateAndJoinRoom() {
	s.random.QueueString("ABC123")
	conn := s.dial()
	s.await(conn, model.EventPlayerID)

	s.send(conn, model.EventCreateRoom, nil)
	var code string
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventRoomCreated), &code))
	s.Equal("ABC123", code)

	// Room codes are case-insensitive on input
	s.send(conn, model.EventJoinRoom, map[string]string{"roomCode": "abc123", "playerName": "Alice"})
	s.Equal([]string{"Alice"}, s.players(s.await(conn, model.EventPlayerList)))

	s.send(conn, model.EventRequestRoomInfo, "ABC123")
	var info protocol.RoomInfoPayload
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventRoomInfo), &info))
	s.Equal(model.RoomCode("ABC123"), info.RoomCode)
	s.Equal(model.RoomStatusWaiting, info.Status)
	s.Require().Len(info.Players, 1)
	s.Equal(info.Players[0].ID, info.HostID)
}

func (s *ServerSuite) TestBroadcastReachesWholeRoom() {
	s.random.QueueString("ABC123")
	_, err := s.handler.CreateRoom(context.Background(), "setup", "nobody")
	s.Require().NoError(err)

	alice, _ := s.connectAndJoin("ABC123", "Alice")
	_, bobID := s.connectAndJoin("ABC123", "Bob")
	s.Equal([]string{"Alice", "Bob"}, s.players(s.await(alice, model.EventPlayerList)))

	s.send(alice, model.EventUpdateWPM, map[string]any{"roomCode": "ABC123", "playerId": bobID, "wpm": 88})
	var players []protocol.PlayerPayload
	s.Require().NoError(json.Unmarshal(s.await(alice, model.EventPlayerList), &players))
	s.Require().Len(players, 2)
	s.Equal(88.0, players[1].WPM)
}

func (s *ServerSuite) TestHostDisconnectMigratesHost() {
	s.random.QueueString("ABC123")
	_, err := s.handler.CreateRoom(context.Background(), "setup", "nobody")
	s.Require().NoError(err)

	alice, _ := s.connectAndJoin("ABC123", "Alice")
	bob, bobID := s.connectAndJoin("ABC123", "Bob")

	s.Require().NoError(alice.Close())

	var host string
	s.Require().NoError(json.Unmarshal(s.await(bob, model.EventHostChanged), &host))
	s.Equal(bobID, host)
	s.Equal([]string{"Bob"}, s.players(s.await(bob, model.EventPlayerList)))
}

func (s *ServerSuite) TestStartGameBroadcastsTimestamp() {
	s.random.QueueString("ABC123")
	_, err := s.handler.CreateRoom(context.Background(), "setup", "nobody")
	s.Require().NoError(err)
	alice, _ := s.connectAndJoin("ABC123", "Alice")

	s.send(alice, model.EventStartGame, map[string]string{"roomCode": "ABC123"})

	var started protocol.GameStartedPayload
	s.Require().NoError(json.Unmarshal(s.await(alice, model.EventGameStarted), &started))
	s.Equal(model.RoomStatusPlaying, started.Status)
	s.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), started.StartTimestamp)
}

func (s *ServerSuite) TestRoomFullEvent() {
	s.random.QueueString("ABC123")
	_, err := s.handler.CreateRoom(context.Background(), "setup", "nobody")
	s.Require().NoError(err)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		s.connectAndJoin("ABC123", name)
	}

	late := s.dial()
	s.await(late, model.EventPlayerID)
	s.send(late, model.EventJoinRoom, map[string]string{"roomCode": "ABC123", "playerName": "F"})

	var payload protocol.ErrorPayload
	s.Require().NoError(json.Unmarshal(s.await(late, model.EventRoomFull), &payload))
	s.Equal(model.CodeRoomFull, payload.Code)
}

func (s *ServerSuite) TestMalformedFrameYieldsInvalidRequest() {
	conn := s.dial()
	s.await(conn, model.EventPlayerID)

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var payload protocol.ErrorPayload
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventError), &payload))
	s.Equal(model.CodeInvalidRequest, payload.Code)

	s.send(conn, model.EventJoinRoom, map[string]string{"roomCode": "ABC123"})
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventError), &payload))
	s.Equal(model.CodeInvalidRequest, payload.Code)
}

func (s *ServerSuite) TestUnknownEventIsIgnored() {
	conn := s.dial()
	s.await(conn, model.EventPlayerID)

	s.send(conn, "danceParty", nil)
	s.send(conn, model.EventGetGameStatus, "NOPE00")

	var status protocol.GameStatusPayload
	s.Require().NoError(json.Unmarshal(s.await(conn, model.EventGameStatus), &status))
	s.Nil(status.Status)
}

func (s *ServerSuite) TestDisallowedOriginIsRejected() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}
