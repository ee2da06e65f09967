// Package api exposes HTTP handlers for activity sign-ups.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"example.com/extracurricular/internal/domain"
)

const (
	codeMethodNotAllowed  = "method_not_allowed"
	codeNotFound          = "not_found"
	codeValidationFailed  = "validation_failed"
	codeAlreadyRegistered = "already_registered"
	codeNotRegistered     = "not_registered"
	codeActivityFull      = "activity_full"
	codeServerError       = "server_error"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler. A nil logger is replaced by a no-op logger.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/activities", h.activities)
	mux.HandleFunc("/activities/{name}/signup", h.signup)
	mux.HandleFunc("/activities/{name}/unregister", h.unregister)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", notFound)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "Not Found")
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method Not Allowed")
		return
	}

	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.serverError(w, "list activities", err)
		return
	}

	resp := make(ActivitiesResponse, len(activities))
	for name, activity := range activities {
		resp[name] = toActivityView(activity)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method Not Allowed")
		return
	}

	name, email, ok := registrationParams(w, r)
	if !ok {
		return
	}

	msg, err := h.service.Signup(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, "signup", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method Not Allowed")
		return
	}

	name, email, ok := registrationParams(w, r)
	if !ok {
		return
	}

	msg, err := h.service.Unregister(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, "unregister", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// registrationParams extracts the decoded activity name and the email query
// parameter. The email is only checked for presence.
func registrationParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name := r.PathValue("name")
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, "email query parameter is required")
		return "", "", false
	}
	return name, email, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Activity not found")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, codeAlreadyRegistered, "Student is already signed up for this activity")
	case errors.Is(err, domain.ErrNotRegistered):
		writeError(w, http.StatusBadRequest, codeNotRegistered, "Student is not signed up for this activity")
	case errors.Is(err, domain.ErrActivityFull):
		writeError(w, http.StatusBadRequest, codeActivityFull, "Activity is full")
	default:
		h.serverError(w, op, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", zap.String("operation", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeServerError, "internal server error")
}

// ActivityView is the JSON shape of one activity.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivitiesResponse maps activity name to its details.
type ActivitiesResponse map[string]ActivityView

// MessageResponse carries the confirmation of a roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

func toActivityView(activity domain.Activity) ActivityView {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     activity.Description,
		Schedule:        activity.Schedule,
		MaxParticipants: activity.MaxParticipants,
		Participants:    participants,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
