package schedule

import (
	"sort"
	"strings"
)

// BuildSlots arma los 4 slots canónicos a partir de la lista cruda de horas.
// Por bucket gana la primera hora que clasifica en él; horas inválidas se ignoran.
func BuildSlots(times []string) [4]TimeSlot {
	var out [4]TimeSlot
	for i, b := range Buckets {
		slot := TimeSlot{
			Bucket:      b,
			Label:       b.Label(),
			DefaultTime: b.DefaultTime(),
		}
		if t, ok := TimeFor(times, b); ok {
			slot.Enabled = true
			slot.CustomTime = t
		}
		out[i] = slot
	}
	return out
}

// TimeFor devuelve la primera hora de la lista que cae en el bucket.
func TimeFor(times []string, b Bucket) (string, bool) {
	for _, raw := range times {
		t := strings.TrimSpace(raw)
		got, err := Classify(t)
		if err != nil {
			continue
		}
		if got == b {
			return t, true
		}
	}
	return "", false
}

// ResolveTimes es la dirección inversa (guardar): slots habilitados -> horas ordenadas.
// Un CustomTime vacío cae al DefaultTime del bucket.
func ResolveTimes(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if !s.Enabled {
			continue
		}
		t := strings.TrimSpace(s.CustomTime)
		if t == "" {
			t = s.DefaultTime
			if t == "" {
				t = s.Bucket.DefaultTime()
			}
		}
		out = append(out, t)
	}
	// "HH:MM" con padding ordena bien lexicográficamente.
	sort.Strings(out)
	return out
}

// Normalize deduplica por bucket y ordena.
func Normalize(times []string) []string {
	slots := BuildSlots(times)
	return ResolveTimes(slots[:])
}

func EnabledCount(times []string) int {
	n := 0
	for _, s := range BuildSlots(times) {
		if s.Enabled {
			n++
		}
	}
	return n
}

// Validate aplica las reglas locales de guardado. No hace I/O.
func Validate(name, dosage string, slots []TimeSlot) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "Please enter the medication name."}
	}
	if strings.TrimSpace(dosage) == "" {
		return &ValidationError{Field: "dosage", Message: "Please enter the dosage."}
	}
	enabled := 0
	seen := make(map[Bucket]bool, len(slots))
	for _, s := range slots {
		if !s.Enabled {
			continue
		}
		// Un solo horario por bucket.
		if seen[s.Bucket] {
			return &ValidationError{Field: "times", Message: "Only one time per " + string(s.Bucket) + " is allowed."}
		}
		seen[s.Bucket] = true
		enabled++
		if t := strings.TrimSpace(s.CustomTime); t != "" {
			b, err := Classify(t)
			if err != nil {
				return &ValidationError{Field: "times", Message: "Times must use the HH:MM format."}
			}
			if b != s.Bucket {
				return &ValidationError{Field: "times", Message: "Time " + t + " does not belong to " + string(s.Bucket) + "."}
			}
		}
	}
	if enabled > 0 {
		return nil
	}
	return &ValidationError{Field: "times", Message: "Please select at least one time to take this medication."}
}
