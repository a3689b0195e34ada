package medications

import (
	"time"

	"medication-adherence/internal/domain/schedule"
)

// Medication es el registro canónico. Times es la única fuente de verdad del horario;
// los TimeSlots se derivan con schedule.BuildSlots.
type Medication struct {
	ID     string
	UserID string

	Name   string
	Dosage string

	Times []string // "HH:MM", a lo sumo una por bucket, ordenadas

	Stock             int // nunca negativo
	LowStockThreshold int

	Instructions string
	PrescribedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Medication) Slots() [4]schedule.TimeSlot {
	return schedule.BuildSlots(m.Times)
}

// TimeFor resuelve la hora programada del bucket (si existe).
func (m Medication) TimeFor(b schedule.Bucket) (string, bool) {
	return schedule.TimeFor(m.Times, b)
}

// IsLowStock: alerta de reposición cuando stock <= umbral.
func (m Medication) IsLowStock() bool {
	return m.Stock <= m.LowStockThreshold
}
