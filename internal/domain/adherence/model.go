package adherence

import (
	"time"

	"medication-adherence/internal/domain/schedule"
)

// DoseLogEntry registra que una toma (medicación + bucket + fecha) fue confirmada.
// A lo sumo una entrada por Key.
type DoseLogEntry struct {
	ID     string
	UserID string

	MedicationID   string
	MedicationName string // snapshot del nombre al momento de la toma
	Bucket         schedule.Bucket
	Date           string // YYYY-MM-DD local

	ScheduledAt time.Time // fecha local + hora resuelta del bucket
	ActualAt    time.Time

	Taken   bool
	Skipped bool

	CreatedAt time.Time
}

func (e DoseLogEntry) Key() Key {
	return Key{MedicationID: e.MedicationID, Bucket: e.Bucket, Date: e.Date}
}

// Key es la identidad de una toma.
type Key struct {
	MedicationID string
	Bucket       schedule.Bucket
	Date         string
}

// String devuelve la forma "medId_bucket_date" que usan la UI y el logbook.
func (k Key) String() string {
	return k.MedicationID + "_" + string(k.Bucket) + "_" + k.Date
}

// Logbook: key -> id de la entrada. Solo contiene tomas de una fecha.
type Logbook map[string]string

// NewLogbook indexa solo las entradas tomadas (taken && !skipped).
func NewLogbook(entries []DoseLogEntry) Logbook {
	lb := make(Logbook, len(entries))
	for _, e := range entries {
		if e.Taken && !e.Skipped {
			lb[e.Key().String()] = e.ID
		}
	}
	return lb
}

func (l Logbook) Has(k Key) bool {
	_, ok := l[k.String()]
	return ok
}

// State es el estado visible de un slot en la pantalla de hoy.
type State string

const (
	StateTaken   State = "taken"
	StatePending State = "pending"
)

// DayStatus es el color de un día en el calendario mensual.
type DayStatus string

const (
	DayFull    DayStatus = "full"
	DayPartial DayStatus = "partial"
	DayMissed  DayStatus = "missed"
	DayFuture  DayStatus = "future"
)

// ScheduledDose es una fila de la pantalla "hoy".
type ScheduledDose struct {
	MedicationID string
	Name         string
	Dosage       string
	Bucket       schedule.Bucket
	Time         string // HH:MM
	State        State
	Stock        int
	LowStock     bool
}

type TodaySchedule struct {
	Date  string
	Doses []ScheduledDose
}
