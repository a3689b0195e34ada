package adherence

import (
	"context"
	"errors"

	"medication-adherence/internal/domain/medications"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Repository interface {
	// FindByKey devuelve ErrNotFound si no hay entrada para la key.
	FindByKey(ctx context.Context, userID string, k Key) (DoseLogEntry, error)
	// Create devuelve ErrAlreadyExists si ya hay una entrada con la misma key.
	Create(ctx context.Context, e DoseLogEntry) error
	// Delete devuelve ErrNotFound si la entrada ya no existe.
	Delete(ctx context.Context, userID, id string) error

	ListByDate(ctx context.Context, userID, date string) ([]DoseLogEntry, error)
	// ListByDateRange incluye ambos extremos (YYYY-MM-DD).
	ListByDateRange(ctx context.Context, userID, from, to string) ([]DoseLogEntry, error)

	// WatchByDate emite la lista completa de entradas de la fecha al suscribirse
	// y en cada cambio. El canal se cierra al cancelar ctx (o si la fuente se cae).
	WatchByDate(ctx context.Context, userID, date string) (<-chan []DoseLogEntry, error)
}

// MedicationStore es lo que el ledger necesita de medications.
type MedicationStore interface {
	GetByID(ctx context.Context, userID, id string) (medications.Medication, error)
	ListByUser(ctx context.Context, userID string) ([]medications.Medication, error)
	AdjustStock(ctx context.Context, userID, id string, delta int) (int, error)
}
