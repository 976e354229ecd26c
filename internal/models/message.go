package models

import "encoding/json"

// SignalType names an event on the wire, inbound or outbound
type SignalType string

// Inbound events (connection -> service)
const (
	SignalTypeJoinRoom        SignalType = "join-room"
	SignalTypeLeaveRoom       SignalType = "leave-room"
	SignalTypeOffer           SignalType = "offer"
	SignalTypeAnswer          SignalType = "answer"
	SignalTypeCandidate       SignalType = "ice-candidate"
	SignalTypeStartTimer      SignalType = "start-timer"
	SignalTypePauseTimer      SignalType = "pause-timer"
	SignalTypeResetTimer      SignalType = "reset-timer"
	SignalTypeStartPresenting SignalType = "start-presenting"
	SignalTypeStopPresenting  SignalType = "stop-presenting"
	SignalTypeRaiseHand       SignalType = "raise-hand"
	SignalTypeKick            SignalType = "kick-participant"
)

// Outbound events (service -> connections)
const (
	SignalTypeConnected        SignalType = "connected"
	SignalTypeRoomJoined       SignalType = "room-joined"
	SignalTypeUserJoined       SignalType = "user-joined"
	SignalTypeUserLeft         SignalType = "user-left"
	SignalTypeTimerUpdate      SignalType = "timer-update"
	SignalTypePresenterChanged SignalType = "presenter-changed"
	SignalTypeHandRaised       SignalType = "hand-raised"
	SignalTypeKicked           SignalType = "kicked"
	SignalTypeError            SignalType = "error"
)

// SignalMessage is an outbound envelope. Payload is one of the payload
// structs below and is marshalled as-is.
type SignalMessage struct {
	Type    SignalType  `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboundMessage is an envelope received from a connection; the payload is
// decoded once the event type is known.
type InboundMessage struct {
	Type    SignalType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomRequest is the join-room payload
type JoinRoomRequest struct {
	RoomCode    string `json:"room_code"`
	Token       string `json:"token"`
	DisplayName string `json:"display_name,omitempty"`
}

// RelayRequest carries offer, answer and ice-candidate payloads. Only the
// field matching the event type is populated.
type RelayRequest struct {
	To        string          `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// StartTimerRequest is the start-timer payload
type StartTimerRequest struct {
	Type string `json:"type"`
}

// RaiseHandRequest is the raise-hand payload
type RaiseHandRequest struct {
	Raised bool `json:"raised"`
}

// KickRequest is the kick-participant payload
type KickRequest struct {
	SocketID string `json:"socket_id"`
}

// ConnectedPayload tells a client its own connection id
type ConnectedPayload struct {
	SocketID string `json:"socket_id"`
}

// RoomJoinedPayload is the snapshot sent to a newly joined connection
type RoomJoinedPayload struct {
	Participants []ParticipantInfo `json:"participants"`
	TimerState   TimerState        `json:"timer_state"`
	Presenter    *string           `json:"presenter"`
}

// UserJoinedPayload announces a new participant to the rest of the room
type UserJoinedPayload struct {
	SocketID    string `json:"socket_id"`
	DisplayName string `json:"display_name"`
}

// UserLeftPayload announces a departed participant
type UserLeftPayload struct {
	SocketID string `json:"socket_id"`
}

// OfferPayload is the relayed offer envelope
type OfferPayload struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

// AnswerPayload is the relayed answer envelope
type AnswerPayload struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

// CandidatePayload is the relayed ICE candidate envelope
type CandidatePayload struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// PresenterChangedPayload reports the presenter slot. PresenterID is nil
// when nobody is presenting.
type PresenterChangedPayload struct {
	PresenterID *string `json:"presenter_id"`
	DisplayName string  `json:"display_name,omitempty"`
}

// HandRaisedPayload reports a hand state change
type HandRaisedPayload struct {
	SocketID    string `json:"socket_id"`
	DisplayName string `json:"display_name"`
	Raised      bool   `json:"raised"`
}

// KickedPayload is sent to a connection right before it is terminated
type KickedPayload struct {
	Message string `json:"message"`
}

// ErrorPayload is the body of every error event
type ErrorPayload struct {
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
}

// NewError builds an error envelope
func NewError(code ErrorCode, message string) SignalMessage {
	return SignalMessage{
		Type:    SignalTypeError,
		Payload: ErrorPayload{Message: message, Code: code},
	}
}
