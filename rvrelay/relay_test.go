package rvrelay_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rvtest"
	"github.com/gordian-engine/rivulet/rivulettest"
	"github.com/gordian-engine/rivulet/rvrelay"
	"github.com/stretchr/testify/require"
)

func TestRelay_Accept_noSubscribers(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	r.Accept(5)

	// Nothing is replayed to a later subscriber.
	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec)

	require.Empty(t, rec.Values())
	require.Empty(t, rec.Completions())
}

func TestRelay_Accept_fanOut(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	rec1 := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	rec2 := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec1)
	r.Subscribe(rec2)

	r.Accept(1)
	r.Accept(2)
	r.Accept(3)

	require.Equal(t, []int{1, 2, 3}, rec1.Values())
	require.Equal(t, []int{1, 2, 3}, rec2.Values())
}

func TestRelay_Accept_lateSubscriberMissesEarlierValues(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[string](rvtest.NewLogger(t))
	defer r.Dispose()

	early := rivulettest.NewRecorder[string](rivulet.Unlimited, rivulet.None)
	r.Subscribe(early)

	r.Accept("a")

	late := rivulettest.NewRecorder[string](rivulet.Unlimited, rivulet.None)
	r.Subscribe(late)

	r.Accept("b")

	require.Equal(t, []string{"a", "b"}, early.Values())
	require.Equal(t, []string{"b"}, late.Values())
}

func TestRelay_Accept_respectsDemand(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	rec := rivulettest.NewRecorder[int](rivulet.None, rivulet.None)
	r.Subscribe(rec)

	// No demand, so the value is missed, not buffered.
	r.Accept(1)
	require.Empty(t, rec.Values())

	rec.Request(rivulet.Max(2))
	r.Accept(2)
	r.Accept(3)
	r.Accept(4)

	require.Equal(t, []int{2, 3}, rec.Values())
}

func TestRelay_Accept_mixedDemand(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	idle := rivulettest.NewRecorder[int](rivulet.None, rivulet.None)
	busy := rivulettest.NewRecorder[int](rivulet.Max(1), rivulet.None)
	r.Subscribe(idle)
	r.Subscribe(busy)

	// A subscriber without demand does not hold back one with demand.
	r.Accept(1)
	r.Accept(2)

	require.Empty(t, idle.Values())
	require.Equal(t, []int{1}, busy.Values())

	idle.Request(rivulet.Max(1))
	r.Accept(3)

	require.Equal(t, []int{3}, idle.Values())
	require.Equal(t, []int{1}, busy.Values())
}

func TestRelay_Accept_returnedDemand(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	rec := rivulettest.NewRecorder[int](rivulet.Max(1), rivulet.Max(1))
	r.Subscribe(rec)

	for i := range 5 {
		r.Accept(i)
	}

	require.Equal(t, []int{0, 1, 2, 3, 4}, rec.Values())
}

func TestRelay_Cancel(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))

	kept := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	cancelled := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(kept)
	r.Subscribe(cancelled)

	r.Accept(1)

	cancelled.Cancel()
	cancelled.Cancel()

	r.Accept(2)

	require.Equal(t, []int{1, 2}, kept.Values())
	require.Equal(t, []int{1}, cancelled.Values())

	r.Dispose()

	require.Equal(t, []rivulet.Completion{rivulet.Finished()}, kept.Completions())
	require.Empty(t, cancelled.Completions())
}

func TestRelay_Cancel_fromValueCallback(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	rec.OnValue = func(int) {
		rec.Cancel()
	}
	r.Subscribe(rec)

	r.Accept(1)
	r.Accept(2)

	require.Equal(t, []int{1}, rec.Values())
}

func TestRelay_Cancel_slotReused(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	first := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(first)
	first.Cancel()

	second := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	third := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(second)
	r.Subscribe(third)

	r.Accept(7)

	require.Empty(t, first.Values())
	require.Equal(t, []int{7}, second.Values())
	require.Equal(t, []int{7}, third.Values())
}

func TestRelay_Dispose_finishesEachSubscriberOnce(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))

	const n = 8
	recs := make([]*rivulettest.Recorder[int], n)
	for i := range recs {
		recs[i] = rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
		r.Subscribe(recs[i])

		// Churn the registry with cancelled subscribers.
		gone := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
		r.Subscribe(gone)
		gone.Cancel()
	}

	r.Dispose()
	r.Dispose()

	for _, rec := range recs {
		rvtest.IsSending(t, rec.Done())
		require.Equal(t, []rivulet.Completion{rivulet.Finished()}, rec.Completions())
	}
}

func TestRelay_Dispose_racingCancel(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))

	const n = 32
	recs := make([]*rivulettest.Recorder[int], n)
	for i := range recs {
		recs[i] = rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
		r.Subscribe(recs[i])
	}

	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Cancel()
		}()
	}
	r.Dispose()
	wg.Wait()

	// Each subscriber is either finished once or cancelled silently.
	for _, rec := range recs {
		require.LessOrEqual(t, len(rec.Completions()), 1)
	}
}

func TestRelay_Dispose_thenAccept(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))

	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec)

	r.Dispose()
	r.Accept(1)

	require.Empty(t, rec.Values())
	require.Len(t, rec.Completions(), 1)

	// Requests and cancels after completion are harmless.
	rec.Request(rivulet.Max(1))
	rec.Cancel()
	require.Len(t, rec.Completions(), 1)
}

func TestRelay_Dispose_thenSubscribe(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	r.Dispose()

	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec)

	require.Equal(t, 1, rec.Subscriptions())
	require.Equal(t, []rivulet.Completion{rivulet.Finished()}, rec.Completions())
}

func TestRelay_Dispose_nilLogger(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](nil)

	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec)

	require.NotPanics(t, r.Dispose)
	require.Len(t, rec.Completions(), 1)
}

func TestRelay_upstream(t *testing.T) {
	t.Parallel()

	up := rivulettest.NewManualPublisher[int]()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	up.Subscribe(r)

	upSub := up.Subscriptions()[0]
	require.Equal(t, []rivulet.Demand{rivulet.Unlimited}, upSub.Requests())

	rec1 := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	rec2 := rivulettest.NewRecorder[int](rivulet.Max(1), rivulet.None)
	r.Subscribe(rec1)
	r.Subscribe(rec2)

	up.Send(1)
	up.Send(2)

	require.Equal(t, []int{1, 2}, rec1.Values())
	require.Equal(t, []int{1}, rec2.Values())

	// Values pushed directly interleave with upstream values.
	r.Accept(3)
	require.Equal(t, []int{1, 2, 3}, rec1.Values())

	r.Dispose()
	require.Equal(t, 1, upSub.Cancels())
	require.Len(t, rec1.Completions(), 1)
	require.Len(t, rec2.Completions(), 1)
}

func TestRelay_upstreamFailureNotExposed(t *testing.T) {
	t.Parallel()

	up := rivulettest.NewManualPublisher[int]()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	up.Subscribe(r)

	rec := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec)

	up.Send(1)
	up.Fail(errors.New("upstream failed"))

	require.Equal(t, []int{1}, rec.Values())
	require.Empty(t, rec.Completions())

	// The relay keeps working after its upstream is gone.
	r.Accept(2)
	require.Equal(t, []int{1, 2}, rec.Values())

	r.Dispose()
	require.Equal(t, []rivulet.Completion{rivulet.Finished()}, rec.Completions())

	// The upstream already terminated, so Dispose did not cancel it.
	require.Zero(t, up.Subscriptions()[0].Cancels())
}

func TestRelay_secondUpstreamCancelled(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))
	defer r.Dispose()

	up1 := rivulettest.NewManualPublisher[int]()
	up2 := rivulettest.NewManualPublisher[int]()
	up1.Subscribe(r)
	up2.Subscribe(r)

	require.Zero(t, up1.Subscriptions()[0].Cancels())
	require.Equal(t, 1, up2.Subscriptions()[0].Cancels())
	require.Empty(t, up2.Subscriptions()[0].Requests())
}

func TestRelay_Accept_concurrent(t *testing.T) {
	t.Parallel()

	r := rvrelay.New[int](rvtest.NewLogger(t))

	rec1 := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	rec2 := rivulettest.NewRecorder[int](rivulet.Unlimited, rivulet.None)
	r.Subscribe(rec1)
	r.Subscribe(rec2)

	const senders, perSender = 4, 100

	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perSender {
				r.Accept(i*perSender + j)
			}
		}()
	}
	wg.Wait()

	r.Dispose()

	require.Len(t, rec1.Values(), senders*perSender)
	require.Equal(t, rec1.Values(), rec2.Values())
	require.Len(t, rec1.Completions(), 1)
	require.Len(t, rec2.Completions(), 1)
}
