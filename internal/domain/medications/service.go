package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/domain/schedule"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// ExplanationWarmer dispara la generación de la explicación en background.
// Evita importar el paquete explanations (rompe ciclos).
type ExplanationWarmer interface {
	Warm(name string)
}

type Service struct {
	repo   Repository
	now    func() time.Time
	warmer ExplanationWarmer
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// WithWarmer habilita el pre-calentado del cache de explicaciones al guardar.
func (s *Service) WithWarmer(w ExplanationWarmer) *Service {
	s.warmer = w
	return s
}

type CreateInput struct {
	Name   string
	Dosage string

	// Slots (lo que manda la UI) o Times crudos. Si vienen Slots, tienen prioridad.
	Slots []schedule.TimeSlot
	Times []string

	Stock             int
	LowStockThreshold int
	Instructions      string
	PrescribedBy      string
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Medication, error) {
	if strings.TrimSpace(userID) == "" {
		return Medication{}, ErrInvalidInput
	}

	slots := slotsFrom(in.Slots, in.Times)
	if err := schedule.Validate(in.Name, in.Dosage, slots); err != nil {
		return Medication{}, err
	}
	if in.Stock < 0 || in.LowStockThreshold < 0 {
		return Medication{}, &schedule.ValidationError{Field: "stock", Message: "Stock must not be negative."}
	}

	now := s.now()
	m := Medication{
		ID:                uuid.NewString(),
		UserID:            userID,
		Name:              strings.TrimSpace(in.Name),
		Dosage:            strings.TrimSpace(in.Dosage),
		Times:             schedule.ResolveTimes(slots),
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		Instructions:      strings.TrimSpace(in.Instructions),
		PrescribedBy:      strings.TrimSpace(in.PrescribedBy),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	s.warm(m.Name)
	return m, nil
}

type UpdateInput struct {
	// Punteros: nil = no tocar.
	Name              *string
	Dosage            *string
	Slots             []schedule.TimeSlot // nil = no tocar
	Times             []string            // nil = no tocar
	Stock             *int
	LowStockThreshold *int
	Instructions      *string
	PrescribedBy      *string
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Medication, error) {
	m, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return Medication{}, err
	}
	prevName := m.Name

	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Dosage != nil {
		m.Dosage = strings.TrimSpace(*in.Dosage)
	}
	slots := m.Slots()
	current := slots[:]
	if in.Slots != nil || in.Times != nil {
		current = slotsFrom(in.Slots, in.Times)
	}
	if err := schedule.Validate(m.Name, m.Dosage, current); err != nil {
		return Medication{}, err
	}
	m.Times = schedule.ResolveTimes(current)

	if in.Stock != nil {
		if *in.Stock < 0 {
			return Medication{}, &schedule.ValidationError{Field: "stock", Message: "Stock must not be negative."}
		}
		m.Stock = *in.Stock
	}
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 {
			return Medication{}, &schedule.ValidationError{Field: "low_stock_threshold", Message: "Threshold must not be negative."}
		}
		m.LowStockThreshold = *in.LowStockThreshold
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if in.PrescribedBy != nil {
		m.PrescribedBy = strings.TrimSpace(*in.PrescribedBy)
	}
	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	if m.Name != prevName {
		s.warm(m.Name)
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, userID, id string) (Medication, error) {
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, userID, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Medication, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

// LowStock lista las medicaciones que necesitan reposición.
func (s *Service) LowStock(ctx context.Context, userID string) ([]Medication, error) {
	items, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Medication, 0)
	for _, m := range items {
		if m.IsLowStock() {
			out = append(out, m)
		}
	}
	return out, nil
}

// Delete es idempotente: borrar algo que ya no existe no es error.
// Los logs de tomas se conservan (historial del calendario).
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) warm(name string) {
	if s.warmer == nil || strings.TrimSpace(name) == "" {
		return
	}
	s.warmer.Warm(name)
}

func slotsFrom(slots []schedule.TimeSlot, times []string) []schedule.TimeSlot {
	if len(slots) > 0 {
		out := make([]schedule.TimeSlot, 0, len(slots))
		for _, sl := range slots {
			if sl.DefaultTime == "" {
				sl.DefaultTime = sl.Bucket.DefaultTime()
			}
			out = append(out, sl)
		}
		return out
	}
	built := schedule.BuildSlots(times)
	return built[:]
}
