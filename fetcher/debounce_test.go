package fetcher_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openport-labs/swapquote/fetcher"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func TestDebouncerCoalescesRapidEdits(t *testing.T) {
	rec := &recorder{}
	d := fetcher.NewDebouncer(100*time.Millisecond, rec.add)
	defer d.Close()

	// Edits at t=0, 25, 60, 130: each resets the window, so only the last
	// value may come through, a full window after its own arrival.
	d.Update("a")
	time.Sleep(25 * time.Millisecond)
	d.Update("b")
	time.Sleep(35 * time.Millisecond)
	d.Update("c")
	time.Sleep(70 * time.Millisecond)
	d.Update("d")

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, rec.snapshot(), "window not yet elapsed for the last edit")

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 }, "debounced emission")
	require.Equal(t, []string{"d"}, rec.snapshot())

	// Nothing else trickles out later.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, []string{"d"}, rec.snapshot())
}

func TestDebouncerPrimeBypassesWindow(t *testing.T) {
	rec := &recorder{}
	d := fetcher.NewDebouncer[string](time.Hour, rec.add)
	defer d.Close()

	d.Prime("initial")
	require.Equal(t, []string{"initial"}, rec.snapshot())
}

func TestDebouncerCloseDropsPending(t *testing.T) {
	rec := &recorder{}
	d := fetcher.NewDebouncer(10*time.Millisecond, rec.add)

	d.Update("pending")
	d.Close()

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, rec.snapshot())

	d.Update("after-close")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, rec.snapshot())
}
