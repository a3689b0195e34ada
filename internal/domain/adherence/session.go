package adherence

import (
	"context"
	"time"

	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"
)

const (
	DefaultDateCheckInterval = 60 * time.Second
	DefaultRetryBackoff      = 2 * time.Second
)

// LogbookSnapshot es el estado completo del logbook de una fecha.
type LogbookSnapshot struct {
	Date    string
	Logbook Logbook
}

type SessionOptions struct {
	// Interval: cada cuánto se revisa si cambió la fecha local.
	Interval time.Duration
	// RetryBackoff: espera antes de resuscribir si la fuente cerró el canal.
	RetryBackoff time.Duration
	Logger       logger.Logger
}

// Session mantiene una suscripción viva al logbook de "hoy" y la rota
// cuando cambia la fecha local (pantallas abiertas pasada la medianoche).
type Session struct {
	repo   Repository
	clock  clock.Clock
	userID string
	opts   SessionOptions

	out chan LogbookSnapshot
}

func NewSession(repo Repository, clk clock.Clock, userID string, opts SessionOptions) *Session {
	if opts.Interval <= 0 {
		opts.Interval = DefaultDateCheckInterval
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Session{
		repo:   repo,
		clock:  clk,
		userID: userID,
		opts:   opts,
		out:    make(chan LogbookSnapshot, 1),
	}
}

// Snapshots se cierra cuando Run termina.
func (s *Session) Snapshots() <-chan LogbookSnapshot {
	return s.out
}

// Run bloquea hasta que ctx se cancele.
func (s *Session) Run(ctx context.Context) {
	defer close(s.out)

	log := s.opts.Logger.With(map[string]any{"user_id": s.userID})

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var (
		date    = s.clock.Today()
		cancel  = context.CancelFunc(func() {})
		updates <-chan []DoseLogEntry
		retry   <-chan time.Time
	)
	defer func() { cancel() }()

	subscribe := func() {
		cancel()
		var subCtx context.Context
		subCtx, cancel = context.WithCancel(ctx)

		ch, err := s.repo.WatchByDate(subCtx, s.userID, date)
		if err != nil {
			log.Warn("logbook subscription failed", map[string]any{"date": date, "err": err})
			updates = nil
			retry = time.After(s.opts.RetryBackoff)
			return
		}
		updates = ch
		retry = nil
	}
	subscribe()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			today := s.clock.Today()
			if today == date {
				continue
			}
			log.Info("local date changed, resubscribing", map[string]any{"from": date, "to": today})
			date = today
			subscribe()

		case <-retry:
			subscribe()

		case entries, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				log.Warn("logbook subscription closed, retrying", map[string]any{"date": date})
				updates = nil
				retry = time.After(s.opts.RetryBackoff)
				continue
			}
			snap := LogbookSnapshot{Date: date, Logbook: NewLogbook(entries)}
			select {
			case s.out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}
}
