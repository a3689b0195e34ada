package explanations

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrUnavailable: no se pudo generar una explicación ahora (nada se cachea).
	ErrUnavailable = errors.New("explanation temporarily unavailable")
)

// Textos por defecto cuando una sección no se pudo extraer.
const (
	SentinelWhatItDoes     = "Information currently unavailable."
	SentinelHowItHelps     = "Please consult your doctor."
	SentinelImportantNotes = "Always follow your prescription."

	// FallbackReference se usa como referencia cuando openFDA no tiene nada útil.
	FallbackReference = "No specific FDA data available for this medication."
)

type Sections struct {
	WhatItDoes     string
	HowItHelps     string
	ImportantNotes string
}

// Record es la explicación cacheada, indexada por nombre (trim, sensible a mayúsculas).
type Record struct {
	Name     string
	Sections Sections

	ReferenceFetchedAt time.Time
	UpdatedAt          time.Time
}

// Valid: solo la primera sección decide si el cache sirve.
func (r Record) Valid() bool {
	return r.Sections.WhatItDoes != SentinelWhatItDoes
}
