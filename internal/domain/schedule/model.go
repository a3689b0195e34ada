package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidTime  = errors.New("invalid time, expected HH:MM")
)

// Bucket es la granularidad gruesa del horario de tomas.
// @Enum morning, afternoon, evening, night
type Bucket string

const (
	BucketMorning   Bucket = "morning"
	BucketAfternoon Bucket = "afternoon"
	BucketEvening   Bucket = "evening"
	BucketNight     Bucket = "night"
)

// Buckets en orden canónico (el mismo orden que muestra la UI).
var Buckets = [4]Bucket{BucketMorning, BucketAfternoon, BucketEvening, BucketNight}

func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case BucketMorning, BucketAfternoon, BucketEvening, BucketNight:
		return b, nil
	default:
		return "", fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, s)
	}
}

// DefaultTime devuelve la hora por defecto del bucket.
func (b Bucket) DefaultTime() string {
	switch b {
	case BucketMorning:
		return "08:00"
	case BucketAfternoon:
		return "14:00"
	case BucketEvening:
		return "18:00"
	case BucketNight:
		return "22:00"
	default:
		return ""
	}
}

func (b Bucket) Label() string {
	switch b {
	case BucketMorning:
		return "Morning"
	case BucketAfternoon:
		return "Afternoon"
	case BucketEvening:
		return "Evening"
	case BucketNight:
		return "Night"
	default:
		return ""
	}
}

// TimeSlot es una proyección derivada de Medication.Times.
// Nunca se persiste: se recalcula cada vez con BuildSlots.
type TimeSlot struct {
	Bucket      Bucket
	Label       string
	DefaultTime string
	Enabled     bool
	CustomTime  string // vacío = usar DefaultTime
}

// ValidationError es el error estructurado que se devuelve antes de tocar storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
