package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassifyHour mapea una hora (0-23) a su bucket.
// Los cuatro rangos particionan el reloj completo, no existe "sin clasificar".
func ClassifyHour(h int) Bucket {
	switch {
	case h >= 4 && h < 12:
		return BucketMorning
	case h >= 12 && h < 17:
		return BucketAfternoon
	case h >= 17 && h < 21:
		return BucketEvening
	default:
		// [21,24) y [0,4)
		return BucketNight
	}
}

// Classify clasifica un "HH:MM". Los minutos no afectan el bucket.
func Classify(hhmm string) (Bucket, error) {
	h, _, err := ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	return ClassifyHour(h), nil
}

// ParseClock valida "HH:MM" (24h) y devuelve hora y minutos.
func ParseClock(hhmm string) (int, int, error) {
	hhmm = strings.TrimSpace(hhmm)
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	return h, m, nil
}

// twoDigits exige exactamente dos dígitos ASCII (Atoi aceptaría "+8" o "-0").
func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}
