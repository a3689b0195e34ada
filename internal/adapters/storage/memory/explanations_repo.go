package memory

import (
	"context"
	"strings"
	"sync"

	"medication-adherence/internal/domain/explanations"
)

type explanationRepo struct {
	mu     sync.RWMutex
	byName map[string]explanations.Record
}

func NewExplanationRepo() explanations.Repository {
	return &explanationRepo{byName: make(map[string]explanations.Record)}
}

func (r *explanationRepo) Get(ctx context.Context, name string) (explanations.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byName[name]
	if !ok {
		return explanations.Record{}, explanations.ErrNotFound
	}
	return rec, nil
}

func (r *explanationRepo) Put(ctx context.Context, rec explanations.Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return explanations.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[rec.Name] = rec
	return nil
}

func (r *explanationRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return explanations.ErrNotFound
	}
	delete(r.byName, name)
	return nil
}
