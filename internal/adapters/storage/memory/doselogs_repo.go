package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medication-adherence/internal/domain/adherence"
)

type doseLogRepo struct {
	mu    sync.RWMutex
	byID  map[string]adherence.DoseLogEntry
	byKey map[string]string // user/key -> id

	nextWatch int
	watchers  map[int]*dateWatcher
}

type dateWatcher struct {
	userID string
	date   string
	ch     chan []adherence.DoseLogEntry
}

func NewDoseLogRepo() adherence.Repository {
	return &doseLogRepo{
		byID:     make(map[string]adherence.DoseLogEntry),
		byKey:    make(map[string]string),
		watchers: make(map[int]*dateWatcher),
	}
}

func userKey(userID string, k adherence.Key) string {
	return userID + "/" + k.String()
}

func (r *doseLogRepo) FindByKey(ctx context.Context, userID string, k adherence.Key) (adherence.DoseLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[userKey(userID, k)]
	if !ok {
		return adherence.DoseLogEntry{}, adherence.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *doseLogRepo) Create(ctx context.Context, e adherence.DoseLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" {
		return errors.New("dose log id required")
	}
	uk := userKey(e.UserID, e.Key())
	if _, exists := r.byKey[uk]; exists {
		return adherence.ErrAlreadyExists
	}
	if _, exists := r.byID[e.ID]; exists {
		return adherence.ErrAlreadyExists
	}
	r.byID[e.ID] = e
	r.byKey[uk] = e.ID

	r.notifyLocked(e.UserID, e.Date)
	return nil
}

func (r *doseLogRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.UserID != userID {
		return adherence.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byKey, userKey(userID, e.Key()))

	r.notifyLocked(e.UserID, e.Date)
	return nil
}

func (r *doseLogRepo) ListByDate(ctx context.Context, userID, date string) ([]adherence.DoseLogEntry, error) {
	return r.ListByDateRange(ctx, userID, date, date)
}

func (r *doseLogRepo) ListByDateRange(ctx context.Context, userID, from, to string) ([]adherence.DoseLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(userID, from, to), nil
}

// WatchByDate emite la lista actual y luego una lista nueva por cada cambio.
// Si el consumidor se atrasa, solo se conserva el último estado.
func (r *doseLogRepo) WatchByDate(ctx context.Context, userID, date string) (<-chan []adherence.DoseLogEntry, error) {
	r.mu.Lock()
	id := r.nextWatch
	r.nextWatch++
	w := &dateWatcher{userID: userID, date: date, ch: make(chan []adherence.DoseLogEntry, 1)}
	r.watchers[id] = w
	w.ch <- r.listLocked(userID, date, date)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, id)
		close(w.ch)
		r.mu.Unlock()
	}()
	return w.ch, nil
}

func (r *doseLogRepo) listLocked(userID, from, to string) []adherence.DoseLogEntry {
	out := make([]adherence.DoseLogEntry, 0)
	for _, e := range r.byID {
		if e.UserID == userID && e.Date >= from && e.Date <= to {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *doseLogRepo) notifyLocked(userID, date string) {
	var snapshot []adherence.DoseLogEntry
	for _, w := range r.watchers {
		if w.userID != userID || w.date != date {
			continue
		}
		if snapshot == nil {
			snapshot = r.listLocked(userID, date, date)
		}
		// Reemplaza el pendiente (si hay) por el estado más nuevo.
		select {
		case <-w.ch:
		default:
		}
		w.ch <- snapshot
	}
}
