package signaling

import (
	"bytes"
	"encoding/json"

	"github.com/mossy-p/flowsync-signaling/internal/models"
)

var jsonNull = []byte("null")

// relay forwards a negotiation payload to exactly one connection. The
// payload is never inspected and delivery to an unknown id is dropped.
func (c *Controller) relay(connID string, kind models.SignalType, req models.RelayRequest) {
	var (
		payload json.RawMessage
		out     interface{}
		message string
	)
	switch kind {
	case models.SignalTypeOffer:
		payload = req.Offer
		out = models.OfferPayload{From: connID, Offer: payload}
		message = "Missing required fields for offer"
	case models.SignalTypeAnswer:
		payload = req.Answer
		out = models.AnswerPayload{From: connID, Answer: payload}
		message = "Missing required fields for answer"
	default:
		payload = req.Candidate
		out = models.CandidatePayload{From: connID, Candidate: payload}
		message = "Missing required fields for ICE candidate"
	}

	if req.To == "" || !present(payload) {
		c.sendError(connID, relayErrorCode(kind), message)
		return
	}

	c.emitter.Send(req.To, models.SignalMessage{Type: kind, Payload: out})
}

func relayErrorCode(kind models.SignalType) models.ErrorCode {
	switch kind {
	case models.SignalTypeOffer:
		return models.ErrCodeInvalidOffer
	case models.SignalTypeAnswer:
		return models.ErrCodeInvalidAnswer
	default:
		return models.ErrCodeInvalidICE
	}
}

// present treats absent, null, empty-string and false payloads as missing
func present(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, jsonNull) {
		return false
	}
	return !bytes.Equal(v, []byte(`""`)) && !bytes.Equal(v, []byte("false"))
}
