package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mossy-p/flowsync-signaling/internal/models"
)

var t0 = time.Date(2025, 11, 5, 16, 0, 0, 0, time.UTC)

type fakeEmitter struct {
	mu     sync.Mutex
	sent   map[string][]models.SignalMessage
	closed map[string]int
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		sent:   make(map[string][]models.SignalMessage),
		closed: make(map[string]int),
	}
}

func (e *fakeEmitter) Send(connID string, msg models.SignalMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent[connID] = append(e.sent[connID], msg)
}

func (e *fakeEmitter) Close(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed[connID]++
}

func (e *fakeEmitter) ofType(connID string, typ models.SignalType) []models.SignalMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.SignalMessage
	for _, m := range e.sent[connID] {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (e *fakeEmitter) closedCount(connID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed[connID]
}

func (e *fakeEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = make(map[string][]models.SignalMessage)
}

type fakeTokens struct {
	mu     sync.Mutex
	valid  map[string]bool
	err    error
	block  bool
	panics bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{valid: make(map[string]bool)}
}

func (f *fakeTokens) grant(roomCode, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid[roomCode+"/"+token] = true
}

func (f *fakeTokens) TokenValid(ctx context.Context, roomCode, token string) (bool, error) {
	f.mu.Lock()
	block, err, panics := f.block, f.err, f.panics
	ok := f.valid[roomCode+"/"+token]
	f.mu.Unlock()

	if panics {
		panic("token store exploded")
	}
	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return ok, err
}

type fakeMirror struct {
	mu     sync.Mutex
	writes []mirrorWrite
	err    error
}

type mirrorWrite struct {
	roomCode string
	state    models.TimerState
}

func (m *fakeMirror) MirrorTimer(_ context.Context, roomCode string, st models.TimerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, mirrorWrite{roomCode, st})
	return m.err
}

func (m *fakeMirror) all() []mirrorWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mirrorWrite(nil), m.writes...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.PresenceEvent
}

func (p *fakePublisher) Publish(ev models.PresenceEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	ctrl      *Controller
	emitter   *fakeEmitter
	tokens    *fakeTokens
	mirror    *fakeMirror
	publisher *fakePublisher
	clock     *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		emitter:   newFakeEmitter(),
		tokens:    newFakeTokens(),
		mirror:    &fakeMirror{},
		publisher: &fakePublisher{},
		clock:     clockwork.NewFakeClockAt(t0),
	}
	h.ctrl = NewController(Config{
		TokenCheckTimeout: 50 * time.Millisecond,
		StoreWriteTimeout: 50 * time.Millisecond,
	}, Dependencies{
		Tokens:    h.tokens,
		Mirror:    h.mirror,
		Publisher: h.publisher,
		Emitter:   h.emitter,
		Clock:     h.clock,
	})
	return h
}

func (h *harness) send(t *testing.T, connID string, typ models.SignalType, payload interface{}) {
	t.Helper()
	msg := models.InboundMessage{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		msg.Payload = raw
	}
	h.ctrl.Handle(context.Background(), connID, msg)
}

// join connects connID and joins it to roomCode with a freshly granted token
func (h *harness) join(t *testing.T, connID, roomCode, name string) {
	t.Helper()
	token := "tok-" + connID
	h.tokens.grant(roomCode, token)
	h.ctrl.Connect(connID)
	h.send(t, connID, models.SignalTypeJoinRoom, models.JoinRoomRequest{
		RoomCode:    roomCode,
		Token:       token,
		DisplayName: name,
	})
	if len(h.emitter.ofType(connID, models.SignalTypeRoomJoined)) == 0 {
		t.Fatalf("%s did not receive room-joined", connID)
	}
}

func lastError(t *testing.T, e *fakeEmitter, connID string) models.ErrorPayload {
	t.Helper()
	errs := e.ofType(connID, models.SignalTypeError)
	if len(errs) == 0 {
		t.Fatalf("%s received no error", connID)
	}
	return errs[len(errs)-1].Payload.(models.ErrorPayload)
}

var errStoreDown = errors.New("store down")
