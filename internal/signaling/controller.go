package signaling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mossy-p/flowsync-signaling/internal/models"
	"github.com/mossy-p/flowsync-signaling/internal/room"
	"github.com/mossy-p/flowsync-signaling/internal/session"
	"github.com/rs/zerolog/log"
)

// TokenChecker verifies join tokens against the shared store
type TokenChecker interface {
	TokenValid(ctx context.Context, roomCode, token string) (bool, error)
}

// TimerMirror records timer transitions outside the process
type TimerMirror interface {
	MirrorTimer(ctx context.Context, roomCode string, st models.TimerState) error
}

// Publisher receives room and participant lifecycle notices
type Publisher interface {
	Publish(ev models.PresenceEvent)
}

// Emitter delivers messages to connections. Both methods must return
// without waiting on the network; unknown ids are ignored.
type Emitter interface {
	Send(connID string, msg models.SignalMessage)
	// Close terminates a connection after flushing queued messages. The
	// transport reports the disconnect back through Controller.Disconnect.
	Close(connID string)
}

// Config tunes the controller's external calls
type Config struct {
	TokenCheckTimeout time.Duration
	StoreWriteTimeout time.Duration
}

// DefaultConfig returns the default timeouts
func DefaultConfig() Config {
	return Config{
		TokenCheckTimeout: 2 * time.Second,
		StoreWriteTimeout: 2 * time.Second,
	}
}

// Dependencies are the collaborators of a Controller. Mirror, Publisher
// and Clock are optional.
type Dependencies struct {
	Tokens    TokenChecker
	Mirror    TimerMirror
	Publisher Publisher
	Emitter   Emitter
	Clock     clockwork.Clock
}

// Controller owns the live rooms of the process and applies inbound events
// to them. Mutations of one room are serialised by that room's lock; events
// for different rooms proceed in parallel.
type Controller struct {
	config    Config
	sessions  *session.Registry
	rooms     *room.Table
	tokens    TokenChecker
	mirror    TimerMirror
	publisher Publisher
	emitter   Emitter
	clock     clockwork.Clock
}

// NewController creates a controller with its own session registry and
// room table
func NewController(cfg Config, deps Dependencies) *Controller {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		config:    cfg,
		sessions:  session.NewRegistry(),
		rooms:     room.NewTable(clock),
		tokens:    deps.Tokens,
		mirror:    deps.Mirror,
		publisher: deps.Publisher,
		emitter:   deps.Emitter,
		clock:     clock,
	}
}

// Connect registers a new transport connection and tells it its id
func (c *Controller) Connect(connID string) {
	c.sessions.Register(connID)
	c.emitter.Send(connID, models.SignalMessage{
		Type:    models.SignalTypeConnected,
		Payload: models.ConnectedPayload{SocketID: connID},
	})
}

// Handle applies one inbound event from connID. It never panics; failures
// are reported to connID only.
func (c *Controller) Handle(ctx context.Context, connID string, msg models.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("conn_id", connID).
				Str("event", string(msg.Type)).
				Interface("panic", rec).
				Msg("event handler panicked")
			if msg.Type == models.SignalTypeJoinRoom {
				c.sendError(connID, models.ErrCodeJoinFailed, "Failed to join room")
				return
			}
			c.sendError(connID, models.ErrCodeInternal, "Failed to process event")
		}
	}()

	switch msg.Type {
	case models.SignalTypeJoinRoom:
		var req models.JoinRoomRequest
		if c.decode(connID, msg, &req, models.ErrCodeInvalidRequest) {
			c.join(ctx, connID, req)
		}
	case models.SignalTypeLeaveRoom:
		c.leave(connID)
	case models.SignalTypeOffer, models.SignalTypeAnswer, models.SignalTypeCandidate:
		var req models.RelayRequest
		if c.decode(connID, msg, &req, relayErrorCode(msg.Type)) {
			c.relay(connID, msg.Type, req)
		}
	case models.SignalTypeStartTimer:
		var req models.StartTimerRequest
		if c.decode(connID, msg, &req, models.ErrCodeInvalidRequest) {
			c.startTimer(connID, models.ParsePhase(req.Type))
		}
	case models.SignalTypePauseTimer:
		c.pauseTimer(connID)
	case models.SignalTypeResetTimer:
		c.resetTimer(connID)
	case models.SignalTypeStartPresenting:
		c.startPresenting(connID)
	case models.SignalTypeStopPresenting:
		c.stopPresenting(connID)
	case models.SignalTypeRaiseHand:
		var req models.RaiseHandRequest
		if c.decode(connID, msg, &req, models.ErrCodeInvalidRequest) {
			c.raiseHand(connID, req.Raised)
		}
	case models.SignalTypeKick:
		var req models.KickRequest
		if c.decode(connID, msg, &req, models.ErrCodeInvalidRequest) {
			c.kick(connID, req.SocketID)
		}
	default:
		log.Debug().Str("conn_id", connID).Str("event", string(msg.Type)).Msg("unknown event type")
		c.sendError(connID, models.ErrCodeUnknownEvent, "Unknown event type")
	}
}

// decode unmarshals the payload into v. An absent payload leaves v zero.
func (c *Controller) decode(connID string, msg models.InboundMessage, v interface{}, code models.ErrorCode) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Str("event", string(msg.Type)).Msg("malformed payload")
		c.sendError(connID, code, "Malformed payload")
		return false
	}
	return true
}

// withRoom runs fn holding the lock of the room connID is attached to. It
// reports NO_ROOM and returns false when there is none.
func (c *Controller) withRoom(connID string, fn func(conn session.Connection, r *room.Room)) bool {
	conn, ok := c.sessions.Lookup(connID)
	if !ok || !conn.Joined() {
		c.sendError(connID, models.ErrCodeNoRoom, "Not in a room")
		return false
	}

	r, ok := c.rooms.AcquireExisting(conn.RoomCode)
	if !ok {
		c.sendError(connID, models.ErrCodeNoRoom, "Not in a room")
		return false
	}
	defer r.Unlock()

	if !r.HasParticipant(connID) {
		c.sendError(connID, models.ErrCodeNoRoom, "Not in a room")
		return false
	}

	fn(conn, r)
	return true
}

// broadcast sends msg to every participant of r except exclude
func (c *Controller) broadcast(r *room.Room, exclude string, msg models.SignalMessage) {
	for _, id := range r.ParticipantIDs(exclude) {
		c.emitter.Send(id, msg)
	}
}

func (c *Controller) sendError(connID string, code models.ErrorCode, message string) {
	c.emitter.Send(connID, models.NewError(code, message))
}

func (c *Controller) publish(kind, roomCode, connID, displayName string) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(models.PresenceEvent{
		Kind:        kind,
		RoomCode:    roomCode,
		SocketID:    connID,
		DisplayName: displayName,
		At:          c.clock.Now(),
	})
}

// Rooms describes every live room
func (c *Controller) Rooms() []models.RoomSummary {
	return c.rooms.Summaries()
}

// Room describes one live room
func (c *Controller) Room(code string) (models.RoomSummary, bool) {
	return c.rooms.Summary(code)
}

// RoomCount returns the number of live rooms
func (c *Controller) RoomCount() int {
	return c.rooms.Len()
}

// SessionCount returns the number of registered connections
func (c *Controller) SessionCount() int {
	return c.sessions.Len()
}
