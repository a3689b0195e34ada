package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes expone las conversiones times <-> slots para el editor de horarios.
// Son funciones puras: no requieren usuario.
func RegisterRoutes(r chi.Router) {
	r.Route("/schedule", func(sr chi.Router) {
		sr.Post("/slots", buildSlotsHandler())
		sr.Post("/times", resolveTimesHandler())
	})
}

// SlotDTO es la forma JSON de un TimeSlot (compartida con medications).
type SlotDTO struct {
	Bucket      Bucket `json:"bucket"`
	Label       string `json:"label"`
	DefaultTime string `json:"default_time"`
	Enabled     bool   `json:"enabled"`
	CustomTime  string `json:"custom_time,omitempty"`
}

func ToSlotDTOs(slots [4]TimeSlot) []SlotDTO {
	out := make([]SlotDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotDTO{
			Bucket:      s.Bucket,
			Label:       s.Label,
			DefaultTime: s.DefaultTime,
			Enabled:     s.Enabled,
			CustomTime:  s.CustomTime,
		})
	}
	return out
}

// FromSlotDTOs completa label/default a partir del bucket; el cliente solo
// necesita mandar bucket, enabled y custom_time.
func FromSlotDTOs(in []SlotDTO) ([]TimeSlot, error) {
	out := make([]TimeSlot, 0, len(in))
	for _, d := range in {
		b, err := ParseBucket(string(d.Bucket))
		if err != nil {
			return nil, err
		}
		out = append(out, TimeSlot{
			Bucket:      b,
			Label:       b.Label(),
			DefaultTime: b.DefaultTime(),
			Enabled:     d.Enabled,
			CustomTime:  d.CustomTime,
		})
	}
	return out, nil
}

type buildSlotsRequest struct {
	Times []string `json:"times"`
}

type resolveTimesRequest struct {
	Slots []SlotDTO `json:"slots"`
}

type resolveTimesResponse struct {
	Times []string `json:"times"`
}

// buildSlotsHandler godoc
// @Summary Derivar slots desde horarios
// @Description Proyecta una lista de horarios HH:MM sobre los cuatro buckets (mañana, tarde, noche, madrugada). Horarios inválidos se ignoran; si dos caen en el mismo bucket gana el primero.
// @Tags schedule
// @Accept json
// @Produce json
// @Param payload body buildSlotsRequest true "Horarios HH:MM"
// @Success 200 {array} SlotDTO
// @Failure 400 {string} string "invalid json"
// @Router /schedule/slots [post]
func buildSlotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req buildSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, ToSlotDTOs(BuildSlots(req.Times)))
	}
}

// resolveTimesHandler godoc
// @Summary Resolver horarios desde slots
// @Description Devuelve los horarios HH:MM ordenados de los slots habilitados. Un custom_time vacío usa la hora por defecto del bucket.
// @Tags schedule
// @Accept json
// @Produce json
// @Param payload body resolveTimesRequest true "Slots del editor"
// @Success 200 {object} resolveTimesResponse
// @Failure 400 {string} string "invalid json / bucket desconocido"
// @Router /schedule/times [post]
func resolveTimesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveTimesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		slots, err := FromSlotDTOs(req.Slots)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, resolveTimesResponse{Times: ResolveTimes(slots)})
	}
}

// ValidationErrorResponse es el cuerpo 400 que la UI muestra junto al campo.
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteValidationError escribe 400 con {field, message} si err es un ValidationError.
// Devuelve false si no lo es, para que el caller siga con su propio mapeo.
func WriteValidationError(w http.ResponseWriter, err error) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Field: ve.Field, Message: ve.Message})
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
