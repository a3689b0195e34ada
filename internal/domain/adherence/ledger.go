package adherence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"

	"github.com/google/uuid"
)

// Ledger registra tomas y mantiene el stock alineado.
//
// El log es la fuente de verdad de la adherencia; el stock es un contador
// best-effort. Si el ajuste de stock falla, la toma queda registrada igual
// y el error solo se loguea.
type Ledger struct {
	meds  MedicationStore
	repo  Repository
	clock clock.Clock
	log   logger.Logger

	locks *keyLocks
	newID func() string
}

func NewLedger(meds MedicationStore, repo Repository, clk clock.Clock, log logger.Logger) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		meds:  meds,
		repo:  repo,
		clock: clk,
		log:   log,
		locks: newKeyLocks(),
		newID: uuid.NewString,
	}
}

// Mark registra la toma del bucket para la fecha local de hoy.
// changed=false si el bucket no está programado o la toma ya existía.
func (l *Ledger) Mark(ctx context.Context, userID, medID string, bucket schedule.Bucket) (bool, error) {
	m, key, err := l.resolve(ctx, userID, medID, bucket)
	if err != nil {
		return false, err
	}
	unlock := l.locks.Lock(userID + "/" + key.String())
	defer unlock()

	_, err = l.repo.FindByKey(ctx, userID, key)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrNotFound):
		return false, fmt.Errorf("find dose log: %w", err)
	}
	return l.markLocked(ctx, userID, m, key)
}

// Unmark borra la toma de hoy (si existe) y devuelve la unidad al stock.
func (l *Ledger) Unmark(ctx context.Context, userID, medID string, bucket schedule.Bucket) (bool, error) {
	_, key, err := l.resolve(ctx, userID, medID, bucket)
	if err != nil {
		return false, err
	}
	unlock := l.locks.Lock(userID + "/" + key.String())
	defer unlock()

	e, err := l.repo.FindByKey(ctx, userID, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find dose log: %w", err)
	}
	return l.unmarkLocked(ctx, userID, e)
}

// Toggle alterna la toma y devuelve el estado resultante.
func (l *Ledger) Toggle(ctx context.Context, userID, medID string, bucket schedule.Bucket) (State, error) {
	m, key, err := l.resolve(ctx, userID, medID, bucket)
	if err != nil {
		return "", err
	}
	unlock := l.locks.Lock(userID + "/" + key.String())
	defer unlock()

	e, err := l.repo.FindByKey(ctx, userID, key)
	switch {
	case err == nil:
		if _, err := l.unmarkLocked(ctx, userID, e); err != nil {
			return StateTaken, err
		}
		return StatePending, nil
	case errors.Is(err, ErrNotFound):
		if _, ok := m.TimeFor(bucket); !ok {
			return StatePending, nil
		}
		if _, err := l.markLocked(ctx, userID, m, key); err != nil {
			return StatePending, err
		}
		return StateTaken, nil
	default:
		return "", fmt.Errorf("find dose log: %w", err)
	}
}

// TodayLogbook es la lectura puntual del logbook de la fecha local actual.
func (l *Ledger) TodayLogbook(ctx context.Context, userID string) (string, Logbook, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, ErrInvalidInput
	}
	date := l.clock.Today()
	entries, err := l.repo.ListByDate(ctx, userID, date)
	if err != nil {
		return "", nil, fmt.Errorf("list dose logs: %w", err)
	}
	return date, NewLogbook(entries), nil
}

// Today arma la pantalla de hoy: una fila por (medicación, bucket programado),
// ordenadas por hora.
func (l *Ledger) Today(ctx context.Context, userID string) (TodaySchedule, error) {
	date, lb, err := l.TodayLogbook(ctx, userID)
	if err != nil {
		return TodaySchedule{}, err
	}
	meds, err := l.meds.ListByUser(ctx, userID)
	if err != nil {
		return TodaySchedule{}, fmt.Errorf("list medications: %w", err)
	}

	doses := make([]ScheduledDose, 0)
	for _, m := range meds {
		for _, s := range m.Slots() {
			if !s.Enabled {
				continue
			}
			t := s.CustomTime
			if t == "" {
				t = s.DefaultTime
			}
			state := StatePending
			if lb.Has(Key{MedicationID: m.ID, Bucket: s.Bucket, Date: date}) {
				state = StateTaken
			}
			doses = append(doses, ScheduledDose{
				MedicationID: m.ID,
				Name:         m.Name,
				Dosage:       m.Dosage,
				Bucket:       s.Bucket,
				Time:         t,
				State:        state,
				Stock:        m.Stock,
				LowStock:     m.IsLowStock(),
			})
		}
	}
	sort.SliceStable(doses, func(i, j int) bool {
		if doses[i].Time != doses[j].Time {
			return doses[i].Time < doses[j].Time
		}
		return doses[i].Name < doses[j].Name
	})
	return TodaySchedule{Date: date, Doses: doses}, nil
}

func (l *Ledger) resolve(ctx context.Context, userID, medID string, bucket schedule.Bucket) (medications.Medication, Key, error) {
	userID = strings.TrimSpace(userID)
	medID = strings.TrimSpace(medID)
	if userID == "" || medID == "" {
		return medications.Medication{}, Key{}, ErrInvalidInput
	}
	if _, err := schedule.ParseBucket(string(bucket)); err != nil {
		return medications.Medication{}, Key{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m, err := l.meds.GetByID(ctx, userID, medID)
	if errors.Is(err, medications.ErrNotFound) {
		return medications.Medication{}, Key{}, fmt.Errorf("%w: medication %s", ErrNotFound, medID)
	}
	if err != nil {
		return medications.Medication{}, Key{}, fmt.Errorf("get medication: %w", err)
	}

	return m, Key{MedicationID: m.ID, Bucket: bucket, Date: l.clock.Today()}, nil
}

func (l *Ledger) markLocked(ctx context.Context, userID string, m medications.Medication, key Key) (bool, error) {
	hhmm, ok := m.TimeFor(key.Bucket)
	if !ok {
		return false, nil
	}

	now := l.clock.Now()
	scheduled, err := time.ParseInLocation("2006-01-02 15:04", key.Date+" "+hhmm, now.Location())
	if err != nil {
		return false, fmt.Errorf("%w: scheduled time: %v", ErrInvalidInput, err)
	}

	e := DoseLogEntry{
		ID:             l.newID(),
		UserID:         userID,
		MedicationID:   m.ID,
		MedicationName: m.Name,
		Bucket:         key.Bucket,
		Date:           key.Date,
		ScheduledAt:    scheduled,
		ActualAt:       now,
		Taken:          true,
		CreatedAt:      now,
	}
	if err := l.repo.Create(ctx, e); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create dose log: %w", err)
	}

	if _, err := l.meds.AdjustStock(ctx, userID, m.ID, -1); err != nil {
		l.log.Warn("stock decrement failed after mark", map[string]any{
			"user_id":       userID,
			"medication_id": m.ID,
			"key":           key.String(),
			"err":           err,
		})
	}
	return true, nil
}

func (l *Ledger) unmarkLocked(ctx context.Context, userID string, e DoseLogEntry) (bool, error) {
	if err := l.repo.Delete(ctx, userID, e.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete dose log: %w", err)
	}

	if _, err := l.meds.AdjustStock(ctx, userID, e.MedicationID, +1); err != nil {
		l.log.Warn("stock increment failed after unmark", map[string]any{
			"user_id":       userID,
			"medication_id": e.MedicationID,
			"key":           e.Key().String(),
			"err":           err,
		})
	}
	return true, nil
}
