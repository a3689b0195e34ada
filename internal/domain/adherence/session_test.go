package adherence

import (
	"context"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/platform/clock"

	"github.com/stretchr/testify/require"
)

type watchSub struct {
	date   string
	ctx    context.Context
	ch     chan []DoseLogEntry
	closed bool
}

// watchRepo agrega suscripciones controlables sobre testLogs.
type watchRepo struct {
	*testLogs

	mu   sync.Mutex
	subs []*watchSub
}

func newWatchRepo() *watchRepo {
	return &watchRepo{testLogs: newTestLogs()}
}

func (w *watchRepo) WatchByDate(ctx context.Context, userID, date string) (<-chan []DoseLogEntry, error) {
	entries, _ := w.ListByDate(ctx, userID, date)

	sub := &watchSub{date: date, ctx: ctx, ch: make(chan []DoseLogEntry, 8)}
	sub.ch <- entries

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.close(sub)
	}()
	return sub.ch, nil
}

func (w *watchRepo) close(sub *watchSub) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func (w *watchRepo) push(date string) {
	entries, _ := w.ListByDate(context.Background(), "u1", date)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.subs {
		if s.date == date && !s.closed {
			s.ch <- entries
		}
	}
}

func (w *watchRepo) sub(i int) *watchSub {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i >= len(w.subs) {
		return nil
	}
	return w.subs[i]
}

func (w *watchRepo) subCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

func recvSnapshot(t *testing.T, ch <-chan LogbookSnapshot) LogbookSnapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "snapshots channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
		return LogbookSnapshot{}
	}
}

func TestSession_EmitsInitialAndUpdatedLogbook(t *testing.T) {
	repo := newWatchRepo()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSession(repo, clk, "u1", SessionOptions{Interval: time.Hour})
	go s.Run(ctx)

	snap := recvSnapshot(t, s.Snapshots())
	require.Equal(t, "2025-06-01", snap.Date)
	require.Empty(t, snap.Logbook)

	require.NoError(t, repo.Create(ctx, DoseLogEntry{
		ID: "e1", UserID: "u1", MedicationID: "m1", Bucket: schedule.BucketNight, Date: "2025-06-01", Taken: true,
	}))
	repo.push("2025-06-01")

	snap = recvSnapshot(t, s.Snapshots())
	require.True(t, snap.Logbook.Has(Key{MedicationID: "m1", Bucket: schedule.BucketNight, Date: "2025-06-01"}))
}

func TestSession_ResubscribesOnDateChange(t *testing.T) {
	repo := newWatchRepo()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSession(repo, clk, "u1", SessionOptions{Interval: 10 * time.Millisecond})
	go s.Run(ctx)

	require.Equal(t, "2025-06-01", recvSnapshot(t, s.Snapshots()).Date)

	clk.Advance(2 * time.Minute)

	snap := recvSnapshot(t, s.Snapshots())
	require.Equal(t, "2025-06-02", snap.Date)
	require.Equal(t, 2, repo.subCount())

	// La suscripción vieja queda cancelada.
	first := repo.sub(0)
	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("previous subscription was not cancelled")
	}
}

func TestSession_RetriesWhenSubscriptionCloses(t *testing.T) {
	repo := newWatchRepo()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSession(repo, clk, "u1", SessionOptions{Interval: time.Hour, RetryBackoff: 10 * time.Millisecond})
	go s.Run(ctx)

	recvSnapshot(t, s.Snapshots())

	// La fuente se cae sin que nadie cancele.
	repo.close(repo.sub(0))

	snap := recvSnapshot(t, s.Snapshots())
	require.Equal(t, "2025-06-01", snap.Date)
	require.Equal(t, 2, repo.subCount())
}

func TestSession_ClosesSnapshotsOnCancel(t *testing.T) {
	repo := newWatchRepo()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSession(repo, clk, "u1", SessionOptions{Interval: time.Hour})

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	recvSnapshot(t, s.Snapshots())
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, ok := <-s.Snapshots()
	require.False(t, ok)
}
