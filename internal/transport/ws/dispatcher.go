package ws

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/protocol"
	"github.com/mcoot/typerace/internal/services/session"
)

// Dispatcher routes decoded frames to session handler operations
type Dispatcher struct {
	handler  *session.Handler
	notifier session.Notifier
	logger   *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(handler *session.Handler, notifier session.Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handler:  handler,
		notifier: notifier,
		logger:   logger,
	}
}

// Dispatch handles a single inbound frame from conn.
// Malformed frames are answered with an invalid-request error; unknown events are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, conn model.ConnID, frame []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic handling event",
				slog.String("conn", string(conn)),
				slog.Any("panic", rec))
			d.notifier.Send(conn, model.EventError, protocol.ErrorFromModel(errors.New("internal error")))
		}
	}()

	env, err := protocol.Decode(frame)
	if err != nil {
		d.reject(conn, err)
		return
	}

	if err := d.route(ctx, conn, env); err != nil {
		d.reject(conn, err)
	}
}

// route decodes the payload and invokes the handler. It returns only
// decoding errors; handler errors are already reported to the requester.
func (d *Dispatcher) route(ctx context.Context, conn model.ConnID, env protocol.Envelope) error {
	switch env.Event {
	case model.EventCreateRoom:
		req, err := protocol.DecodeCreateRoom(env.Data)
		if err != nil {
			return err
		}
		_, _ = d.handler.CreateRoom(ctx, conn, model.PlayerID(req.PlayerID))

	case model.EventJoinRoom:
		req, err := protocol.DecodeJoinRoom(env.Data)
		if err != nil {
			return err
		}
		_, _ = d.handler.JoinRoom(ctx, conn, protocol.NormalizeRoomCode(req.RoomCode), req.PlayerName, model.PlayerID(req.PlayerID))

	case model.EventLeaveRoom:
		req, err := protocol.DecodeLeaveRoom(env.Data)
		if err != nil {
			return err
		}
		_ = d.handler.LeaveRoom(ctx, conn, protocol.NormalizeRoomCode(req.RoomCode), model.PlayerID(req.PlayerID))

	case model.EventStartGame:
		code, err := protocol.DecodeRoomCode(env.Data)
		if err != nil {
			return err
		}
		_ = d.handler.StartGame(ctx, conn, code)

	case model.EventUpdateWPM:
		req, err := protocol.DecodeUpdateWPM(env.Data)
		if err != nil {
			return err
		}
		_ = d.handler.UpdateWPM(ctx, conn, protocol.NormalizeRoomCode(req.RoomCode), model.PlayerID(req.PlayerID), *req.WPM)

	case model.EventRequestPlayerList:
		code, err := protocol.DecodeRoomCode(env.Data)
		if err != nil {
			return err
		}
		d.handler.PlayerList(ctx, conn, code)

	case model.EventRequestRoomInfo:
		code, err := protocol.DecodeRoomCode(env.Data)
		if err != nil {
			return err
		}
		_ = d.handler.RoomInfo(ctx, conn, code)

	case model.EventGetRoomIDByPlayerID:
		id, err := protocol.DecodePlayerID(env.Data)
		if err != nil {
			return err
		}
		d.handler.RoomByPlayer(ctx, conn, id)

	case model.EventGetGameStatus:
		code, err := protocol.DecodeRoomCode(env.Data)
		if err != nil {
			return err
		}
		d.handler.GameStatus(ctx, conn, code)

	case model.EventGetStartTimestamp:
		code, err := protocol.DecodeRoomCode(env.Data)
		if err != nil {
			return err
		}
		d.handler.StartTimestamp(ctx, conn, code)

	default:
		d.logger.Warn("unknown event", slog.String("conn", string(conn)), slog.String("event", string(env.Event)))
	}
	return nil
}

func (d *Dispatcher) reject(conn model.ConnID, err error) {
	d.logger.Debug("rejected frame", slog.String("conn", string(conn)), slog.Any("error", err))
	d.notifier.Send(conn, model.EventError, protocol.ErrorFromModel(err))
}
