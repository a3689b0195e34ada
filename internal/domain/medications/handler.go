package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))
		mr.Get("/low-stock", lowStockHandler(svc))

		mr.Get("/{medID}", getMedicationHandler(svc))
		mr.Put("/{medID}", updateMedicationHandler(svc))
		mr.Delete("/{medID}", deleteMedicationHandler(svc))
		mr.Get("/{medID}/slots", getSlotsHandler(svc))
	})
}

type createMedicationRequest struct {
	Name              string             `json:"name"`
	Dosage            string             `json:"dosage"`
	Times             []string           `json:"times"`
	Slots             []schedule.SlotDTO `json:"slots"` // si viene, tiene prioridad sobre times
	Stock             int                `json:"stock"`
	LowStockThreshold int                `json:"low_stock_threshold"`
	Instructions      string             `json:"instructions"`
	PrescribedBy      string             `json:"prescribed_by"`
}

type updateMedicationRequest struct {
	// nil = no tocar
	Name              *string            `json:"name"`
	Dosage            *string            `json:"dosage"`
	Times             []string           `json:"times"`
	Slots             []schedule.SlotDTO `json:"slots"`
	Stock             *int               `json:"stock"`
	LowStockThreshold *int               `json:"low_stock_threshold"`
	Instructions      *string            `json:"instructions"`
	PrescribedBy      *string            `json:"prescribed_by"`
}

type medicationResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	Times             []string  `json:"times"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	LowStock          bool      `json:"low_stock"`
	Instructions      string    `json:"instructions"`
	PrescribedBy      string    `json:"prescribed_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// createMedicationHandler godoc
// @Summary Registrar medicación
// @Description Crea una medicación con su horario. Acepta `times` (HH:MM) o `slots` del editor; cada horario debe caer en su bucket. Al guardar se pre-calcula la explicación en background. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags medications
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createMedicationRequest true "Datos de la medicación"
// @Success 201 {object} medicationResponse
// @Failure 400 {object} schedule.ValidationErrorResponse "campo inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		slots, err := schedule.FromSlotDTOs(req.Slots)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:              req.Name,
			Dosage:            req.Dosage,
			Slots:             slots,
			Times:             req.Times,
			Stock:             req.Stock,
			LowStockThreshold: req.LowStockThreshold,
			Instructions:      req.Instructions,
			PrescribedBy:      req.PrescribedBy,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

// listMedicationsHandler godoc
// @Summary Listar medicaciones
// @Tags medications
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medications [get]
func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByUser(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponses(items))
	}
}

// lowStockHandler godoc
// @Summary Medicaciones con stock bajo
// @Description Devuelve las medicaciones cuyo stock es menor o igual a su umbral.
// @Tags medications
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Router /medications/low-stock [get]
func lowStockHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.LowStock(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponses(items))
	}
}

// getMedicationHandler godoc
// @Summary Obtener medicación
// @Tags medications
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medID path string true "ID de la medicación"
// @Success 200 {object} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medID} [get]
func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), claims.UserID, chi.URLParam(r, "medID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// getSlotsHandler godoc
// @Summary Slots del horario de una medicación
// @Description Proyección de `times` sobre los cuatro buckets, lista para el editor.
// @Tags medications
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medID path string true "ID de la medicación"
// @Success 200 {array} schedule.SlotDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medID}/slots [get]
func getSlotsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), claims.UserID, chi.URLParam(r, "medID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, schedule.ToSlotDTOs(m.Slots()))
	}
}

// updateMedicationHandler godoc
// @Summary Editar medicación
// @Description Actualiza los campos enviados. Si vienen `times` o `slots` se reemplaza el horario completo y se vuelve a validar.
// @Tags medications
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medID path string true "ID de la medicación"
// @Param payload body updateMedicationRequest true "Campos a modificar"
// @Success 200 {object} medicationResponse
// @Failure 400 {object} schedule.ValidationErrorResponse "campo inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medID} [put]
func updateMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var slots []schedule.TimeSlot
		if req.Slots != nil {
			var err error
			if slots, err = schedule.FromSlotDTOs(req.Slots); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		m, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "medID"), UpdateInput{
			Name:              req.Name,
			Dosage:            req.Dosage,
			Slots:             slots,
			Times:             req.Times,
			Stock:             req.Stock,
			LowStockThreshold: req.LowStockThreshold,
			Instructions:      req.Instructions,
			PrescribedBy:      req.PrescribedBy,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// deleteMedicationHandler godoc
// @Summary Eliminar medicación
// @Description Idempotente. El historial de tomas se conserva para el calendario.
// @Tags medications
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medID path string true "ID de la medicación"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Router /medications/{medID} [delete]
func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "medID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	if schedule.WriteValidationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	times := m.Times
	if times == nil {
		times = []string{}
	}
	return medicationResponse{
		ID:                m.ID,
		Name:              m.Name,
		Dosage:            m.Dosage,
		Times:             times,
		Stock:             m.Stock,
		LowStockThreshold: m.LowStockThreshold,
		LowStock:          m.IsLowStock(),
		Instructions:      m.Instructions,
		PrescribedBy:      m.PrescribedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toMedicationResponses(items []Medication) []medicationResponse {
	out := make([]medicationResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMedicationResponse(m))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
