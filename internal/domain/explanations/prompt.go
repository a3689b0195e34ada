package explanations

import (
	"strings"
	"unicode"
)

const maxReferenceRunes = 1500

var sectionMarkers = [3]string{"SECTION 1", "SECTION 2", "SECTION 3"}

// ReferenceText arma el texto combinado del etiquetado.
func ReferenceText(l Label) string {
	return strings.TrimSpace(
		"Indication: " + strings.TrimSpace(l.IndicationsAndUsage) + "\n" +
			"Purpose: " + strings.TrimSpace(l.Purpose) + "\n" +
			"Dosage Info: " + strings.TrimSpace(l.DosageAndAdministration),
	)
}

// BuildPrompt pide las tres secciones con encabezados fijos para poder parsearlas.
func BuildPrompt(name, reference string) string {
	if r := []rune(reference); len(r) > maxReferenceRunes {
		reference = string(r[:maxReferenceRunes])
	}

	var b strings.Builder
	b.WriteString("You are a kind pharmacist explaining medication to an elderly person.\n")
	b.WriteString("Medication Name: " + name + "\n")
	b.WriteString("Official FDA Information: " + reference + "\n\n")
	b.WriteString("Create a warm, simple explanation in 3 sections.\n")
	b.WriteString(`Use headings "SECTION 1:", "SECTION 2:", "SECTION 3:" exactly.` + "\n\n")
	b.WriteString("SECTION 1: What This Medication Does\n")
	b.WriteString("SECTION 2: How It Helps You\n")
	b.WriteString("SECTION 3: Important Things to Know\n\n")
	b.WriteString("Keep it simple, reassuring, and clear. No markdown formatting like **bold** in the headers, just text.\n")
	return b.String()
}

// ParseSections extrae las tres secciones del texto generado.
//
// Los marcadores se buscan en orden y sin distinguir mayúsculas. Cada sección
// va hasta el siguiente marcador encontrado (la tercera hasta el final). Si falta
// el marcador o el contenido queda vacío, se usa el texto por defecto.
func ParseSections(text string) Sections {
	out := Sections{
		WhatItDoes:     SentinelWhatItDoes,
		HowItHelps:     SentinelHowItHelps,
		ImportantNotes: SentinelImportantNotes,
	}

	// start/end de cada marcador; -1 si no aparece.
	var starts, ends [3]int
	from := 0
	for i, m := range sectionMarkers {
		idx := indexFold(text, m, from)
		if idx < 0 {
			starts[i], ends[i] = -1, -1
			continue
		}
		starts[i] = idx
		ends[i] = idx + len(m)
		from = ends[i]
	}

	contents := [3]string{}
	for i := range sectionMarkers {
		if starts[i] < 0 {
			continue
		}
		stop := len(text)
		for j := i + 1; j < len(sectionMarkers); j++ {
			if starts[j] >= 0 {
				stop = starts[j]
				break
			}
		}
		contents[i] = cleanSection(text[ends[i]:stop])
	}

	if contents[0] != "" {
		out.WhatItDoes = contents[0]
	}
	if contents[1] != "" {
		out.HowItHelps = contents[1]
	}
	if contents[2] != "" {
		out.ImportantNotes = contents[2]
	}
	return out
}

// cleanSection quita el separador que sigue al marcador (":", "-", espacios...).
func cleanSection(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.TrimSpace(s)
}

// indexFold es strings.Index sin distinguir mayúsculas, desde from. sub es ASCII.
func indexFold(s, sub string, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
