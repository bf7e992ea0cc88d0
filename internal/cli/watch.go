package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
)

func newWatchCmd() *cobra.Command {
	var (
		name     string
		playerID string
	)

	cmd := &cobra.Command{
		Use:   "watch <code>",
		Short: "Join a room and stream its events",
		Long: `Join a room over the WebSocket channel and print every event it
receives in real-time.

Events include:
  - playerList: Roster changed or a player's WPM was updated
  - hostChanged: Host role moved to another player
  - gameStarted: Race started (payload is the start timestamp)
  - roomFull: The room has no free seats
  - error: A request was rejected

Press Ctrl+C to leave the room and disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := protocol.NormalizeRoomCode(args[0])
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			return watchRoom(cmd.Context(), out, code, name, model.PlayerID(playerID))
		},
	}

	cmd.Flags().StringVar(&name, "name", "watcher", "Display name used when joining")
	cmd.Flags().StringVar(&playerID, "player-id", "", "Identity token to reconnect with (default: the one issued by the server)")

	return cmd
}

func watchRoom(ctx context.Context, out *Output, code model.RoomCode, name string, id model.PlayerID) error {
	wsURL, err := client.WebSocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan protocol.Envelope)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			env, err := protocol.Decode(frame)
			if err != nil {
				continue
			}
			select {
			case frames <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	joined := false
	for {
		select {
		case env := <-frames:
			if env.Event == model.EventPlayerID && !joined {
				if id == "" {
					if err := json.Unmarshal(env.Data, &id); err != nil {
						return fmt.Errorf("invalid identity frame: %w", err)
					}
				}
				if err := send(conn, model.EventJoinRoom, protocol.JoinRoomRequest{
					RoomCode:   string(code),
					PlayerName: name,
					PlayerID:   string(id),
				}); err != nil {
					return err
				}
				joined = true
				if cfg.Output != "json" {
					out.PrintMessage(fmt.Sprintf("Joined room %s as %s (%s)", code, name, id))
				}
				continue
			}
			out.Print(WatchEvent{Time: time.Now(), Event: string(env.Event), Data: env.Data})
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		case <-ctx.Done():
			if joined {
				_ = send(conn, model.EventLeaveRoom, protocol.LeaveRoomRequest{RoomCode: string(code), PlayerID: string(id)})
			}
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return fmt.Errorf("closing connection: %w", err)
			}
			if cfg.Output != "json" {
				out.PrintMessage("Disconnected")
			}
			return nil
		}
	}
}

func send(conn *websocket.Conn, event model.EventName, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("sending %s: %w", event, err)
	}
	return nil
}
