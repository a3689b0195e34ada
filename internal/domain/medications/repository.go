package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (Medication, error)
	ListByUser(ctx context.Context, userID string) ([]Medication, error)

	// AdjustStock aplica delta de forma atómica (sin read-then-write) con piso en 0
	// y devuelve el stock resultante.
	AdjustStock(ctx context.Context, userID, id string, delta int) (int, error)
}
