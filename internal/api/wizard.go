package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/tententen/internal/domain"
	"github.com/ashureev/tententen/internal/identity"
	"github.com/ashureev/tententen/internal/wizard"
	"github.com/go-chi/chi/v5"
)

// Wizard is the subset of the wizard controller used by the HTTP handlers.
type Wizard interface {
	State(ctx context.Context, userID, sessionID string) (*domain.SessionState, error)
	Dispatch(ctx context.Context, userID, sessionID string, action domain.Action) (*domain.SessionState, error)
}

// WizardHandler handles the wizard endpoints.
type WizardHandler struct {
	wizard Wizard
	render func(string) string
}

// NewWizardHandler creates a WizardHandler. render converts insight markdown
// to HTML and may be nil.
func NewWizardHandler(w Wizard, render func(string) string) *WizardHandler {
	return &WizardHandler{wizard: w, render: render}
}

// RegisterRoutes registers wizard routes.
func (h *WizardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)
		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", h.GetState)
			r.Post("/decision", h.SubmitDecision)
			r.Post("/values", h.SubmitValues)
			r.Post("/reflection", h.SubmitReflection)
			r.Post("/insight", h.GenerateInsight)
		})
	})
}

type option struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Question string `json:"question,omitempty"`
}

type catalogResponse struct {
	Values                []string `json:"values"`
	SelectionsPerCategory int      `json:"selections_per_category"`
	Categories            []option `json:"categories"`
	Horizons              []option `json:"horizons"`
	Pages                 []option `json:"pages"`
}

// GetCatalog returns the selectable values and the labels of every step.
func (h *WizardHandler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	resp := catalogResponse{
		Values:                domain.Catalog(),
		SelectionsPerCategory: domain.SelectionsPerCategory,
	}
	for _, c := range domain.Categories() {
		resp.Categories = append(resp.Categories, option{ID: string(c), Label: c.Label()})
	}
	for _, hz := range domain.Horizons() {
		resp.Horizons = append(resp.Horizons, option{ID: string(hz), Label: hz.Label(), Question: hz.Question()})
	}
	for _, p := range domain.Pages() {
		resp.Pages = append(resp.Pages, option{ID: string(p), Label: p.Title()})
	}
	JSON(w, http.StatusOK, resp)
}

// GetState re-renders the current step. It never triggers generation.
func (h *WizardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	s, err := h.wizard.State(r.Context(), userID, sessionID)
	if err != nil {
		slog.Error("Failed to load wizard session", "error", err, "user_id", userID, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, wizard.NewView(s, nil, h.render))
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

// SubmitDecision handles the first step.
func (h *WizardHandler) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, domain.SubmitDecision(req.Decision))
}

// SubmitValues handles the value pickers.
func (h *WizardHandler) SubmitValues(w http.ResponseWriter, r *http.Request) {
	var req domain.Values
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, domain.SubmitValues(req))
}

// SubmitReflection handles the three reflections and, on success, generates the insight.
func (h *WizardHandler) SubmitReflection(w http.ResponseWriter, r *http.Request) {
	var req domain.Reflection
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, domain.SubmitReflection(req))
}

// GenerateInsight retries generation on the summary step.
func (h *WizardHandler) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, domain.GenerateInsight())
}

func (h *WizardHandler) dispatch(w http.ResponseWriter, r *http.Request, action domain.Action) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	s, err := h.wizard.Dispatch(r.Context(), userID, sessionID, action)
	status := StatusFor(err)
	if status == http.StatusInternalServerError || s == nil {
		slog.Error("Wizard action failed",
			"error", err,
			"action", action.Type,
			"user_id", userID,
			"session_id", sessionID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	JSON(w, status, wizard.NewView(s, err, h.render))
}
