package room

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mossy-p/flowsync-signaling/internal/models"
)

func TestAcquireCreatesOnce(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))

	r, created := tbl.Acquire("ABC123")
	if !created {
		t.Fatal("first acquire should create")
	}
	r.AddParticipant(Participant{ID: "a", DisplayName: "Alice", JoinedAt: t0})
	r.Unlock()

	r2, created := tbl.Acquire("ABC123")
	defer r2.Unlock()
	if created || r2 != r {
		t.Fatal("second acquire should return the existing room")
	}
	if tbl.Len() != 1 {
		t.Fatalf("len = %d", tbl.Len())
	}
}

func TestDestroyThenAcquireIsFresh(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))

	r, _ := tbl.Acquire("ABC123")
	r.AddParticipant(Participant{ID: "a", JoinedAt: t0})
	r.Timer().Start(models.PhaseShortBreak, t0)
	r.ClaimPresenter("a")
	r.RemoveParticipant("a")
	tbl.Destroy(r)
	r.Unlock()

	if tbl.Exists("ABC123") {
		t.Fatal("room should be gone")
	}
	if _, ok := tbl.AcquireExisting("ABC123"); ok {
		t.Fatal("AcquireExisting should fail for destroyed room")
	}

	fresh, created := tbl.Acquire("ABC123")
	defer fresh.Unlock()
	if !created || fresh == r {
		t.Fatal("expected a new room")
	}
	if !fresh.Empty() || fresh.Presenter() != "" || fresh.Timer().Status != models.TimerStopped {
		t.Fatal("fresh room carries old state")
	}
}

func TestAcquireRetriesAfterConcurrentDestroy(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))

	r, _ := tbl.Acquire("ABC123")

	got := make(chan *Room)
	go func() {
		nr, _ := tbl.Acquire("ABC123")
		got <- nr
		nr.Unlock()
	}()

	// give the goroutine time to block on r's lock
	time.Sleep(20 * time.Millisecond)
	tbl.Destroy(r)
	r.Unlock()

	if nr := <-got; nr == r {
		t.Fatal("acquire returned a destroyed room")
	}
}

func TestPresenterSlot(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))
	r, _ := tbl.Acquire("ABC123")
	defer r.Unlock()

	r.AddParticipant(Participant{ID: "a", JoinedAt: t0})
	r.AddParticipant(Participant{ID: "b", JoinedAt: t0.Add(time.Second)})

	if r.ClaimPresenter("ghost") {
		t.Fatal("non-participant must not present")
	}
	if !r.ClaimPresenter("a") || !r.ClaimPresenter("a") {
		t.Fatal("claim should be granted and idempotent")
	}
	if r.ClaimPresenter("b") {
		t.Fatal("second presenter must be refused")
	}
	if r.ReleasePresenter("b") {
		t.Fatal("non-presenter release should be a no-op")
	}

	removed, cleared := r.RemoveParticipant("a")
	if !removed || !cleared || r.Presenter() != "" {
		t.Fatal("removing presenter should clear slot")
	}
	if removed, _ := r.RemoveParticipant("a"); removed {
		t.Fatal("second removal should report nothing removed")
	}
}

func TestParticipantsInJoinOrder(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))
	r, _ := tbl.Acquire("ABC123")
	defer r.Unlock()

	r.AddParticipant(Participant{ID: "c", DisplayName: "Carol", JoinedAt: t0.Add(2 * time.Second)})
	r.AddParticipant(Participant{ID: "a", DisplayName: "Alice", JoinedAt: t0})
	r.AddParticipant(Participant{ID: "b", DisplayName: "Bob", JoinedAt: t0.Add(time.Second)})
	r.SetHandRaised("b", true)

	list := r.Participants()
	if len(list) != 3 || list[0].SocketID != "a" || list[1].SocketID != "b" || list[2].SocketID != "c" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if !list[1].HandRaised {
		t.Fatal("hand flag not reflected")
	}
	if ids := r.ParticipantIDs("a"); len(ids) != 2 {
		t.Fatalf("exclude failed: %v", ids)
	}
}

func TestSummaries(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	tbl := NewTable(clock)

	for _, code := range []string{"ZZZ999", "ABC123"} {
		r, _ := tbl.Acquire(code)
		r.AddParticipant(Participant{ID: code + "-p", JoinedAt: t0})
		r.Timer().Start(models.PhaseWork, t0)
		r.Unlock()
	}
	clock.Advance(30 * time.Second)

	list := tbl.Summaries()
	if len(list) != 2 || list[0].RoomCode != "ABC123" {
		t.Fatalf("unexpected summaries: %+v", list)
	}
	if list[0].Timer.Remaining != 1470 {
		t.Fatalf("timer not projected: %d", list[0].Timer.Remaining)
	}

	if _, ok := tbl.Summary("nope"); ok {
		t.Fatal("summary of unknown room should fail")
	}
}

func TestConcurrentAcquireSingleRoom(t *testing.T) {
	tbl := NewTable(clockwork.NewFakeClockAt(t0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	creates := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, created := tbl.Acquire("ABC123")
			r.AddParticipant(Participant{ID: string(rune('a' + i)), JoinedAt: t0})
			r.Unlock()
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if creates != 1 {
		t.Fatalf("room created %d times", creates)
	}
	r, _ := tbl.AcquireExisting("ABC123")
	defer r.Unlock()
	if r.Len() != 32 {
		t.Fatalf("participants = %d", r.Len())
	}
}
