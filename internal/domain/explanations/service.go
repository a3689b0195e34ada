package explanations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"medication-adherence/internal/platform/logger"
)

const (
	minReferenceLen    = 20
	DefaultWarmTimeout = 60 * time.Second
)

// Service es un cache-aside de explicaciones: lee del repo y, si no hay nada
// válido, consulta la referencia, genera el texto y lo guarda.
// No deduplica misses concurrentes; el último Put gana.
type Service struct {
	repo   Repository
	lookup ReferenceLookup
	gen    TextGenerator
	log    logger.Logger
	now    func() time.Time

	warmTimeout time.Duration
	warming     sync.WaitGroup
}

func NewService(repo Repository, lookup ReferenceLookup, gen TextGenerator, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:        repo,
		lookup:      lookup,
		gen:         gen,
		log:         log,
		now:         time.Now,
		warmTimeout: DefaultWarmTimeout,
	}
}

func (s *Service) ExplanationFor(ctx context.Context, name string) (Record, error) {
	key := strings.TrimSpace(name)
	if key == "" {
		return Record{}, ErrInvalidInput
	}

	r, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		if r.Valid() {
			return r, nil
		}
		s.log.Info("cached explanation is invalid, regenerating", map[string]any{"name": key})
	case errors.Is(err, ErrNotFound):
		// miss
	default:
		// Un cache caído no impide generar.
		s.log.Warn("explanation cache read failed", map[string]any{"name": key, "err": err})
	}

	return s.generate(ctx, key)
}

// Invalidate borra la explicación cacheada; si no existía no es error.
func (s *Service) Invalidate(ctx context.Context, name string) error {
	key := strings.TrimSpace(name)
	if key == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete explanation: %w", err)
	}
	return nil
}

// Warm calienta el cache en background. Los errores solo se loguean.
func (s *Service) Warm(name string) {
	key := strings.TrimSpace(name)
	if key == "" {
		return
	}
	s.warming.Add(1)
	go func() {
		defer s.warming.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.warmTimeout)
		defer cancel()

		if _, err := s.ExplanationFor(ctx, key); err != nil {
			s.log.Warn("explanation warm-up failed", map[string]any{"name": key, "err": err})
		}
	}()
}

// Wait espera a que terminen los Warm en curso (shutdown y tests).
func (s *Service) Wait() {
	s.warming.Wait()
}

func (s *Service) generate(ctx context.Context, key string) (Record, error) {
	reference := s.fetchReference(ctx, key)

	text, err := s.gen.Generate(ctx, BuildPrompt(key, reference))
	if err != nil {
		s.log.Error("explanation generation failed", map[string]any{"name": key, "err": err})
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		s.log.Warn("explanation generation returned empty text", map[string]any{"name": key})
		return Record{}, ErrUnavailable
	}

	now := s.now()
	r := Record{
		Name:               key,
		Sections:           ParseSections(text),
		ReferenceFetchedAt: now,
		UpdatedAt:          now,
	}
	if err := s.repo.Put(ctx, r); err != nil {
		// Devolvemos lo generado igual; el próximo pedido reintenta.
		s.log.Warn("explanation cache write failed", map[string]any{"name": key, "err": err})
	}
	return r, nil
}

// fetchReference prueba marca, genérico y sustancia; el primero con texto útil gana.
func (s *Service) fetchReference(ctx context.Context, key string) string {
	value := strings.ToLower(key)
	for _, field := range lookupFields {
		label, err := s.lookup.Fetch(ctx, Query{Field: field, Value: value})
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.log.Debug("reference lookup failed", map[string]any{"name": key, "field": field, "err": err})
			}
			continue
		}
		if text := ReferenceText(label); len(text) > minReferenceLen {
			return text
		}
	}
	return FallbackReference
}
