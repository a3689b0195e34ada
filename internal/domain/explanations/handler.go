package explanations

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medication-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/explanations", func(er chi.Router) {
		er.Get("/{name}", getExplanationHandler(svc))
		er.Delete("/{name}", invalidateExplanationHandler(svc))
	})
}

type sectionsResponse struct {
	WhatItDoes     string `json:"what_it_does"`
	HowItHelps     string `json:"how_it_helps"`
	ImportantNotes string `json:"important_notes"`
}

type explanationResponse struct {
	Name               string           `json:"name"`
	Sections           sectionsResponse `json:"sections"`
	ReferenceFetchedAt time.Time        `json:"reference_fetched_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// getExplanationHandler godoc
// @Summary Explicación de una medicación
// @Description Devuelve la explicación en lenguaje simple (tres secciones). Si no está en cache se genera a partir del etiquetado de openFDA; puede tardar unos segundos.
// @Tags explanations
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param name path string true "Nombre de la medicación"
// @Success 200 {object} explanationResponse
// @Failure 400 {string} string "name requerido"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "explanation temporarily unavailable"
// @Router /explanations/{name} [get]
func getExplanationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rec, err := svc.ExplanationFor(r.Context(), nameParam(r))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, "name is required", http.StatusBadRequest)
			default:
				http.Error(w, ErrUnavailable.Error(), http.StatusServiceUnavailable)
			}
			return
		}

		writeJSON(w, http.StatusOK, explanationResponse{
			Name: rec.Name,
			Sections: sectionsResponse{
				WhatItDoes:     rec.Sections.WhatItDoes,
				HowItHelps:     rec.Sections.HowItHelps,
				ImportantNotes: rec.Sections.ImportantNotes,
			},
			ReferenceFetchedAt: rec.ReferenceFetchedAt,
			UpdatedAt:          rec.UpdatedAt,
		})
	}
}

// invalidateExplanationHandler godoc
// @Summary Invalidar explicación cacheada
// @Description Borra la explicación del cache; el próximo GET la regenera. Idempotente.
// @Tags explanations
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param name path string true "Nombre de la medicación"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "operation failed"
// @Router /explanations/{name} [delete]
func invalidateExplanationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Invalidate(r.Context(), nameParam(r)); err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "name is required", http.StatusBadRequest)
				return
			}
			http.Error(w, "operation failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// nameParam decodifica el nombre ("Vitamin%20D" -> "Vitamin D").
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
