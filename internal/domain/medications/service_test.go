package medications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/schedule"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Medication
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medication{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Delete(ctx context.Context, userID, id string) error {
	m, ok := r.byID[id]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, userID, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok || m.UserID != userID {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *testRepo) AdjustStock(ctx context.Context, userID, id string, delta int) (int, error) {
	m, ok := r.byID[id]
	if !ok || m.UserID != userID {
		return 0, ErrNotFound
	}
	m.Stock = max(0, m.Stock+delta)
	r.byID[id] = m
	return m.Stock, nil
}

type recordingWarmer struct {
	mu    sync.Mutex
	names []string
}

func (w *recordingWarmer) Warm(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.names = append(w.names, name)
}

func newTestService() (*Service, *testRepo, *recordingWarmer) {
	repo := newTestRepo()
	warmer := &recordingWarmer{}
	svc := NewService(repo).WithWarmer(warmer)
	fixed := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, repo, warmer
}

func TestCreate_NormalizesTimesAndWarms(t *testing.T) {
	svc, _, warmer := newTestService()

	m, err := svc.Create(context.Background(), "u1", CreateInput{
		Name:   "  Lisinopril ",
		Dosage: "10mg",
		Times:  []string{"20:00", "08:30"},
		Stock:  30,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected generated id")
	}
	if m.Name != "Lisinopril" {
		t.Fatalf("expected trimmed name, got %q", m.Name)
	}
	if len(m.Times) != 2 || m.Times[0] != "08:30" || m.Times[1] != "20:00" {
		t.Fatalf("unexpected times: %v", m.Times)
	}
	if len(warmer.names) != 1 || warmer.names[0] != "Lisinopril" {
		t.Fatalf("expected warm for Lisinopril, got %v", warmer.names)
	}
}

func TestCreate_FromSlotsUsesDefaultsForBlankCustomTime(t *testing.T) {
	svc, _, _ := newTestService()

	m, err := svc.Create(context.Background(), "u1", CreateInput{
		Name:   "Metformin",
		Dosage: "500mg",
		Slots: []schedule.TimeSlot{
			{Bucket: schedule.BucketMorning, Enabled: true},
			{Bucket: schedule.BucketNight, Enabled: true, CustomTime: "23:15"},
			{Bucket: schedule.BucketAfternoon, Enabled: false, CustomTime: "13:00"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(m.Times) != 2 || m.Times[0] != "08:00" || m.Times[1] != "23:15" {
		t.Fatalf("unexpected times: %v", m.Times)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc, repo, warmer := newTestService()

	cases := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"missing name", CreateInput{Dosage: "1", Times: []string{"08:00"}}, "name"},
		{"missing dosage", CreateInput{Name: "A", Times: []string{"08:00"}}, "dosage"},
		{"no times", CreateInput{Name: "A", Dosage: "1"}, "times"},
		{"negative stock", CreateInput{Name: "A", Dosage: "1", Times: []string{"08:00"}, Stock: -1}, "stock"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", tc.in)
			var ve *schedule.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
			}
			if !errors.Is(err, schedule.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput in chain")
			}
		})
	}

	if len(repo.byID) != 0 {
		t.Fatalf("nothing should be stored on validation failure")
	}
	if len(warmer.names) != 0 {
		t.Fatalf("nothing should be warmed on validation failure")
	}
}

func TestCreate_RejectsRepeatedBucketAndSignedTimes(t *testing.T) {
	svc, repo, _ := newTestService()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"two morning slots", CreateInput{Name: "A", Dosage: "1", Slots: []schedule.TimeSlot{
			{Bucket: schedule.BucketMorning, Enabled: true, CustomTime: "08:00"},
			{Bucket: schedule.BucketMorning, Enabled: true, CustomTime: "09:00"},
		}}},
		{"signed custom time", CreateInput{Name: "A", Dosage: "1", Slots: []schedule.TimeSlot{
			{Bucket: schedule.BucketMorning, Enabled: true, CustomTime: "+8:00"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", tc.in)
			var ve *schedule.ValidationError
			if !errors.As(err, &ve) || ve.Field != "times" {
				t.Fatalf("expected times validation error, got %v", err)
			}
		})
	}

	// Horarios con signo no clasifican: sin ningún horario válido no hay slots.
	_, err := svc.Create(context.Background(), "u1", CreateInput{Name: "A", Dosage: "1", Times: []string{"+8:00", "-0:30"}})
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) || ve.Field != "times" {
		t.Fatalf("expected times validation error, got %v", err)
	}

	if len(repo.byID) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(repo.byID))
	}
}

func TestCreate_RequiresUser(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(context.Background(), " ", CreateInput{Name: "A", Dosage: "1", Times: []string{"08:00"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdate_PartialKeepsSchedule(t *testing.T) {
	svc, _, warmer := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, "u1", CreateInput{Name: "Aspirin", Dosage: "81mg", Times: []string{"08:00"}, Stock: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stock := 5
	updated, err := svc.Update(ctx, "u1", m.ID, UpdateInput{Stock: &stock})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", updated.Stock)
	}
	if len(updated.Times) != 1 || updated.Times[0] != "08:00" {
		t.Fatalf("schedule should be untouched, got %v", updated.Times)
	}
	// Mismo nombre: no se vuelve a calentar.
	if len(warmer.names) != 1 {
		t.Fatalf("expected a single warm, got %v", warmer.names)
	}
}

func TestUpdate_RenameAndReschedule(t *testing.T) {
	svc, _, warmer := newTestService()
	ctx := context.Background()

	m, _ := svc.Create(ctx, "u1", CreateInput{Name: "Aspirin", Dosage: "81mg", Times: []string{"08:00"}})

	name := "Ibuprofen"
	updated, err := svc.Update(ctx, "u1", m.ID, UpdateInput{Name: &name, Times: []string{"14:30", "22:00"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Ibuprofen" || len(updated.Times) != 2 {
		t.Fatalf("unexpected medication: %+v", updated)
	}
	if len(warmer.names) != 2 || warmer.names[1] != "Ibuprofen" {
		t.Fatalf("expected warm after rename, got %v", warmer.names)
	}
}

func TestUpdate_RejectsEmptySchedule(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, _ := svc.Create(ctx, "u1", CreateInput{Name: "Aspirin", Dosage: "81mg", Times: []string{"08:00"}})

	_, err := svc.Update(ctx, "u1", m.ID, UpdateInput{Times: []string{}})
	var ve *schedule.ValidationError
	if !errors.As(err, &ve) || ve.Field != "times" {
		t.Fatalf("expected times validation error, got %v", err)
	}
}

func TestGetByID_OtherUserIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, _ := svc.Create(ctx, "u1", CreateInput{Name: "Aspirin", Dosage: "81mg", Times: []string{"08:00"}})

	if _, err := svc.GetByID(ctx, "u2", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLowStock(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Create(ctx, "u1", CreateInput{Name: "A", Dosage: "1", Times: []string{"08:00"}, Stock: 3, LowStockThreshold: 5})
	_, _ = svc.Create(ctx, "u1", CreateInput{Name: "B", Dosage: "1", Times: []string{"08:00"}, Stock: 5, LowStockThreshold: 5})
	_, _ = svc.Create(ctx, "u1", CreateInput{Name: "C", Dosage: "1", Times: []string{"08:00"}, Stock: 6, LowStockThreshold: 5})

	low, err := svc.LowStock(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(low) != 2 || low[0].Name != "A" || low[1].Name != "B" {
		t.Fatalf("unexpected low stock list: %+v", low)
	}
}

func TestDelete_IsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, _ := svc.Create(ctx, "u1", CreateInput{Name: "A", Dosage: "1", Times: []string{"08:00"}})

	if err := svc.Delete(ctx, "u1", m.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", m.ID); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}
