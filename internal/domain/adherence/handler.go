package adherence

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/clock"

	"github.com/go-chi/chi/v5"
)

// Handlers agrupa lo que necesitan las rutas de tomas y calendario.
type Handlers struct {
	Ledger     *Ledger
	Aggregator *Aggregator
	Repo       Repository
	Clock      clock.Clock
	Session    SessionOptions
}

func RegisterRoutes(r chi.Router, h Handlers) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Post("/{medID}/{bucket}/toggle", toggleDoseHandler(h.Ledger))
		dr.Get("/today", todayHandler(h.Ledger))
		dr.Get("/today/stream", todayStreamHandler(h.Repo, h.Clock, h.Session))
	})

	r.Get("/adherence/{year}/{month}", monthlyHandler(h.Aggregator))
}

type toggleResponse struct {
	MedicationID string          `json:"medication_id"`
	Bucket       schedule.Bucket `json:"bucket"`
	Date         string          `json:"date"`
	Key          string          `json:"key"`
	State        State           `json:"state"`
}

type doseResponse struct {
	MedicationID string          `json:"medication_id"`
	Name         string          `json:"name"`
	Dosage       string          `json:"dosage"`
	Bucket       schedule.Bucket `json:"bucket"`
	Time         string          `json:"time"`
	State        State           `json:"state"`
	Stock        int             `json:"stock"`
	LowStock     bool            `json:"low_stock"`
}

type todayResponse struct {
	Date  string         `json:"date"`
	Doses []doseResponse `json:"doses"`
}

type logbookEvent struct {
	Date string   `json:"date"`
	Keys []string `json:"keys"` // medId_bucket_date de las tomas registradas
}

type dayResponse struct {
	Day    int       `json:"day"`
	Date   string    `json:"date"`
	Taken  int       `json:"taken"`
	Status DayStatus `json:"status"`
}

type monthlyResponse struct {
	Year     int           `json:"year"`
	Month    int           `json:"month"`
	Expected int           `json:"expected_per_day"`
	Days     []dayResponse `json:"days"`
}

// toggleDoseHandler godoc
// @Summary Marcar / desmarcar una toma de hoy
// @Description Alterna la toma del bucket para la fecha local actual. Marcar descuenta una unidad de stock (piso 0); desmarcar la devuelve. Un bucket no programado queda en `pending` sin cambios.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param medID path string true "ID de la medicación"
// @Param bucket path string true "morning | afternoon | evening | night"
// @Success 200 {object} toggleResponse
// @Failure 400 {string} string "bucket inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "medication not found"
// @Failure 503 {string} string "operation failed, data may be stale"
// @Router /doses/{medID}/{bucket}/toggle [post]
func toggleDoseHandler(ledger *Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medID := chi.URLParam(r, "medID")
		bucket := schedule.Bucket(chi.URLParam(r, "bucket"))

		state, err := ledger.Toggle(r.Context(), claims.UserID, medID, bucket)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		date := ledger.clock.Today()
		writeJSON(w, http.StatusOK, toggleResponse{
			MedicationID: medID,
			Bucket:       bucket,
			Date:         date,
			Key:          Key{MedicationID: medID, Bucket: bucket, Date: date}.String(),
			State:        state,
		})
	}
}

// todayHandler godoc
// @Summary Tomas de hoy
// @Description Lista las tomas programadas para la fecha local actual, ordenadas por hora, con su estado.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} todayResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "operation failed, data may be stale"
// @Router /doses/today [get]
func todayHandler(ledger *Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		today, err := ledger.Today(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := todayResponse{Date: today.Date, Doses: make([]doseResponse, 0, len(today.Doses))}
		for _, d := range today.Doses {
			out.Doses = append(out.Doses, doseResponse{
				MedicationID: d.MedicationID,
				Name:         d.Name,
				Dosage:       d.Dosage,
				Bucket:       d.Bucket,
				Time:         d.Time,
				State:        d.State,
				Stock:        d.Stock,
				LowStock:     d.LowStock,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// todayStreamHandler godoc
// @Summary Logbook de hoy en vivo (SSE)
// @Description Server-Sent Events con el logbook completo de la fecha local cada vez que cambia. Pasada la medianoche la suscripción rota sola a la nueva fecha.
// @Tags doses
// @Produce text/event-stream
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} logbookEvent
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "streaming unsupported"
// @Router /doses/today/stream [get]
func todayStreamHandler(repo Repository, clk clock.Clock, opts SessionOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sess := NewSession(repo, clk, claims.UserID, opts)
		go sess.Run(r.Context())

		for snap := range sess.Snapshots() {
			keys := make([]string, 0, len(snap.Logbook))
			for k := range snap.Logbook {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			b, err := json.Marshal(logbookEvent{Date: snap.Date, Keys: keys})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: logbook\ndata: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// monthlyHandler godoc
// @Summary Calendario mensual de adherencia
// @Description Estado por día (full, partial, missed, future). El esperado diario es la suma de slots habilitados del horario actual.
// @Tags adherence
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param year path int true "Año (YYYY)"
// @Param month path int true "Mes 1..12"
// @Success 200 {object} monthlyResponse
// @Failure 400 {string} string "year/month inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "operation failed, data may be stale"
// @Router /adherence/{year}/{month} [get]
func monthlyHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
		month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
		if err1 != nil || err2 != nil {
			http.Error(w, "year and month must be numbers", http.StatusBadRequest)
			return
		}

		rep, err := agg.MonthlyStatus(r.Context(), claims.UserID, year, month)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := monthlyResponse{
			Year:     rep.Year,
			Month:    rep.Month,
			Expected: rep.Expected,
			Days:     make([]dayResponse, 0, len(rep.Days)),
		}
		for _, d := range rep.Days {
			out.Days = append(out.Days, dayResponse{Day: d.Day, Date: d.Date, Taken: d.Taken, Status: d.Status})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	default:
		// La UI mantiene el último estado conocido; solo avisamos.
		http.Error(w, "operation failed, data may be stale", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
