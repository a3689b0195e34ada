package explanations

import "context"

type Repository interface {
	// Get devuelve ErrNotFound si no hay registro.
	Get(ctx context.Context, name string) (Record, error)
	// Put reemplaza el registro completo (último en escribir gana).
	Put(ctx context.Context, r Record) error
	// Delete devuelve ErrNotFound si no había registro.
	Delete(ctx context.Context, name string) error
}

// Campos de búsqueda del etiquetado, en el orden en que se prueban.
const (
	FieldBrandName     = "openfda.brand_name"
	FieldGenericName   = "openfda.generic_name"
	FieldSubstanceName = "openfda.substance_name"
)

var lookupFields = []string{FieldBrandName, FieldGenericName, FieldSubstanceName}

type Query struct {
	Field string
	Value string
}

// Label son los fragmentos del etiquetado que usamos como referencia.
type Label struct {
	IndicationsAndUsage     string
	Purpose                 string
	DosageAndAdministration string
}

// ReferenceLookup busca el etiquetado oficial. ErrNotFound si no hay resultados.
type ReferenceLookup interface {
	Fetch(ctx context.Context, q Query) (Label, error)
}

// TextGenerator produce texto libre a partir de un prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
