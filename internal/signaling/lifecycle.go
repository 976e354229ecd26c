package signaling

import (
	"context"
	"strings"

	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/mossy-p/flowsync-signaling/internal/room"
	"github.com/mossy-p/flowsync-signaling/internal/session"
	"github.com/rs/zerolog/log"
)

const defaultDisplayName = "Guest"

func (c *Controller) join(ctx context.Context, connID string, req models.JoinRoomRequest) {
	if req.RoomCode == "" || req.Token == "" {
		c.sendError(connID, models.ErrCodeInvalidRequest, "Missing room_code or token")
		return
	}

	if !c.checkToken(ctx, connID, req.RoomCode, req.Token) {
		c.sendError(connID, models.ErrCodeInvalidToken, "Invalid or expired room token")
		c.emitter.Close(connID)
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName
	}

	if prev, ok := c.sessions.Detach(connID); ok && prev.Joined() {
		c.leaveRoom(prev)
	}

	r, created := c.rooms.Acquire(req.RoomCode)
	defer func() {
		// a room created for a join that did not complete is discarded
		if r.Empty() {
			c.rooms.Destroy(r)
		}
		r.Unlock()
	}()

	now := c.clock.Now()
	r.AddParticipant(room.Participant{
		ID:          connID,
		DisplayName: displayName,
		JoinedAt:    now,
	})
	c.sessions.Attach(connID, req.RoomCode, displayName)

	c.emitter.Send(connID, models.SignalMessage{
		Type: models.SignalTypeRoomJoined,
		Payload: models.RoomJoinedPayload{
			Participants: r.Participants(),
			TimerState:   r.Timer().State(now),
			Presenter:    r.PresenterRef(),
		},
	})
	c.broadcast(r, connID, models.SignalMessage{
		Type: models.SignalTypeUserJoined,
		Payload: models.UserJoinedPayload{
			SocketID:    connID,
			DisplayName: displayName,
		},
	})

	if created {
		c.publish(models.PresenceRoomOpened, req.RoomCode, "", "")
	}
	c.publish(models.PresenceParticipantJoined, req.RoomCode, connID, displayName)

	log.Info().
		Str("conn_id", connID).
		Str("room_code", req.RoomCode).
		Str("display_name", displayName).
		Int("participants", r.Len()).
		Msg("participant joined room")
}

// checkToken fails closed: lookup errors and timeouts deny the join
func (c *Controller) checkToken(ctx context.Context, connID, roomCode, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.TokenCheckTimeout)
	defer cancel()

	ok, err := c.tokens.TokenValid(ctx, roomCode, token)
	if err != nil {
		log.Warn().
			Err(err).
			Str("conn_id", connID).
			Str("room_code", roomCode).
			Msg("token check failed")
		return false
	}
	return ok
}

// Disconnect runs the leave path for connID and forgets the connection.
// Calling it again for the same id has no further effect.
func (c *Controller) Disconnect(connID string) {
	conn, ok := c.sessions.Remove(connID)
	if !ok {
		return
	}
	if !conn.Joined() {
		log.Debug().Str("conn_id", connID).Msg("connection removed")
		return
	}
	c.leaveRoom(conn)
}

// leave handles an explicit leave-room. The connection stays registered and
// may join again.
func (c *Controller) leave(connID string) {
	if prev, ok := c.sessions.Detach(connID); ok && prev.Joined() {
		c.leaveRoom(prev)
	}
}

// leaveRoom removes conn from its room, notifies the remaining members and
// discards the room if it is now empty
func (c *Controller) leaveRoom(conn session.Connection) {
	r, ok := c.rooms.AcquireExisting(conn.RoomCode)
	if !ok {
		return
	}
	defer r.Unlock()

	removed, clearedPresenter := r.RemoveParticipant(conn.ID)
	if !removed {
		return
	}

	if clearedPresenter {
		c.broadcast(r, conn.ID, models.SignalMessage{
			Type:    models.SignalTypePresenterChanged,
			Payload: models.PresenterChangedPayload{},
		})
	}
	c.broadcast(r, conn.ID, models.SignalMessage{
		Type:    models.SignalTypeUserLeft,
		Payload: models.UserLeftPayload{SocketID: conn.ID},
	})
	c.publish(models.PresenceParticipantLeft, conn.RoomCode, conn.ID, conn.DisplayName)

	log.Info().
		Str("conn_id", conn.ID).
		Str("room_code", conn.RoomCode).
		Int("participants", r.Len()).
		Msg("participant left room")

	if r.Empty() {
		c.rooms.Destroy(r)
		c.publish(models.PresenceRoomClosed, conn.RoomCode, "", "")
		log.Info().Str("room_code", conn.RoomCode).Msg("removed empty room")
	}
}
