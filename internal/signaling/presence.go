package signaling

import (
	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/mossy-p/flowsync-signaling/internal/room"
	"github.com/mossy-p/flowsync-signaling/internal/session"
	"github.com/rs/zerolog/log"
)

const kickedMessage = "You have been removed from the room"

func (c *Controller) startPresenting(connID string) {
	c.withRoom(connID, func(conn session.Connection, r *room.Room) {
		if !r.ClaimPresenter(connID) {
			c.sendError(connID, models.ErrCodePresenterExists, "Someone else is already presenting")
			return
		}

		id := connID
		c.broadcast(r, "", models.SignalMessage{
			Type: models.SignalTypePresenterChanged,
			Payload: models.PresenterChangedPayload{
				PresenterID: &id,
				DisplayName: conn.DisplayName,
			},
		})
		log.Info().Str("conn_id", connID).Str("room_code", r.Code()).Msg("presenting started")
	})
}

func (c *Controller) stopPresenting(connID string) {
	c.withRoom(connID, func(_ session.Connection, r *room.Room) {
		if !r.ReleasePresenter(connID) {
			return
		}
		c.broadcast(r, "", models.SignalMessage{
			Type:    models.SignalTypePresenterChanged,
			Payload: models.PresenterChangedPayload{},
		})
		log.Info().Str("conn_id", connID).Str("room_code", r.Code()).Msg("presenting stopped")
	})
}

func (c *Controller) raiseHand(connID string, raised bool) {
	c.withRoom(connID, func(conn session.Connection, r *room.Room) {
		r.SetHandRaised(connID, raised)
		c.sessions.SetHandRaised(connID, raised)

		c.broadcast(r, "", models.SignalMessage{
			Type: models.SignalTypeHandRaised,
			Payload: models.HandRaisedPayload{
				SocketID:    connID,
				DisplayName: conn.DisplayName,
				Raised:      raised,
			},
		})
	})
}

// kick removes target from the requester's room. Any co-member may kick any
// other; the target's disconnect path does the actual cleanup.
func (c *Controller) kick(connID, target string) {
	if target == "" {
		c.sendError(connID, models.ErrCodeInvalidRequest, "Missing socket_id")
		return
	}

	c.withRoom(connID, func(_ session.Connection, r *room.Room) {
		if !r.HasParticipant(target) {
			log.Debug().
				Str("conn_id", connID).
				Str("target", target).
				Msg("kick target not in room")
			return
		}

		c.emitter.Send(target, models.SignalMessage{
			Type:    models.SignalTypeKicked,
			Payload: models.KickedPayload{Message: kickedMessage},
		})
		c.emitter.Close(target)

		log.Info().
			Str("conn_id", connID).
			Str("target", target).
			Str("room_code", r.Code()).
			Msg("participant kicked")
	})
}
