// Package api exposes HTTP handlers for the exercise tracker.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/tracker/internal/domain"
)

// Route patterns served by the tracker API.
const (
	CreateUser  = "POST /api/users"
	ListUsers   = "GET /api/users"
	AddExercise = "POST /api/users/{id}/exercises"
	GetLogs     = "GET /api/users/{id}/logs"
)

// dateLayout renders dates as a fixed calendar string, e.g. "Sun Jan 15 2023".
const dateLayout = "Mon Jan 02 2006"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logs    *zap.SugaredLogger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logs *zap.SugaredLogger) *Handler {
	return &Handler{service: service, logs: logs}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(CreateUser, h.createUser)
	mux.HandleFunc(ListUsers, h.listUsers)
	mux.HandleFunc(AddExercise, h.addExercise)
	mux.HandleFunc(GetLogs, h.getLogs)
	mux.HandleFunc("GET /healthz", healthz)
}

// RegisterStatic serves the landing page at the root and assets under /public/.
func (h *Handler) RegisterStatic(mux *http.ServeMux, dir string) {
	fs := http.FileServer(http.Dir(dir))
	mux.Handle("GET /public/", http.StripPrefix("/public/", fs))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		h.logs.Errorw("failed to create user", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, UserView{Username: user.Username, ID: user.ID})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logs.Errorw("failed to list users", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, UserView{Username: user.Username, ID: user.ID})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) addExercise(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req AddExerciseRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, exercise, err := h.service.AddExercise(r.Context(), domain.AddExerciseInput{
		UserID:      userID,
		Description: req.Description,
		Duration:    req.durationMinutes(),
		Date:        parseDate(req.Date),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logs.Errorw("failed to add exercise", "error", err, "user_id", userID, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ExerciseView{
		ID:          user.ID,
		Username:    user.Username,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        exercise.Date.Format(dateLayout),
	})
}

func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	query := r.URL.Query()

	filter := domain.LogFilter{
		From: parseDate(query.Get("from")),
		To:   parseDate(query.Get("to")),
	}
	// A limit that does not parse as a positive integer is ignored.
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	user, exercises, err := h.service.GetLog(r.Context(), userID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logs.Errorw("failed to fetch log", "error", err, "user_id", userID, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	entries := make([]LogEntry, 0, len(exercises))
	for _, ex := range exercises {
		entries = append(entries, LogEntry{
			Description: ex.Description,
			Duration:    ex.Duration,
			Date:        ex.Date.Format(dateLayout),
		})
	}

	writeJSON(w, http.StatusOK, LogResponse{
		Username: user.Username,
		Count:    len(entries),
		ID:       user.ID,
		Log:      entries,
	})
}

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
}

func (r *CreateUserRequest) fromForm(values url.Values) {
	r.Username = values.Get("username")
}

// Validate ensures request correctness.
func (r CreateUserRequest) Validate() error {
	username := strings.TrimSpace(r.Username)
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) > domain.MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", domain.MaxUsernameLength)
	}
	return nil
}

// AddExerciseRequest is the payload for POST /api/users/{id}/exercises.
// The public form page submits every field as a string, so duration accepts
// both JSON numbers and numeric strings.
type AddExerciseRequest struct {
	Description string         `json:"description"`
	Duration    stringOrNumber `json:"duration"`
	Date        string         `json:"date"`
}

func (r *AddExerciseRequest) fromForm(values url.Values) {
	r.Description = values.Get("description")
	r.Duration = stringOrNumber(values.Get("duration"))
	r.Date = values.Get("date")
}

// Validate ensures request correctness. The date field is deliberately not
// validated here: an absent or unparseable date falls back to today.
func (r AddExerciseRequest) Validate() error {
	description := strings.TrimSpace(r.Description)
	if description == "" {
		return errors.New("description is required")
	}
	if len(description) > domain.MaxDescriptionLength {
		return fmt.Errorf("description must be at most %d characters", domain.MaxDescriptionLength)
	}

	duration, err := strconv.Atoi(strings.TrimSpace(string(r.Duration)))
	if err != nil {
		return errors.New("duration must be an integer number of minutes")
	}
	if duration < 1 {
		return errors.New("duration must be at least 1 minute")
	}
	return nil
}

// durationMinutes returns the parsed duration. Only valid after Validate.
func (r AddExerciseRequest) durationMinutes() int {
	duration, _ := strconv.Atoi(strings.TrimSpace(string(r.Duration)))
	return duration
}

// stringOrNumber decodes a JSON string or number into its text form.
type stringOrNumber string

func (s *stringOrNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = stringOrNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = stringOrNumber(num.String())
	return nil
}

// UserView projects a user to the wire format.
type UserView struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// ExerciseView echoes the owning user plus the stored entry.
type ExerciseView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogEntry is one line of a user's exercise log.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogResponse packages the date-filtered exercise log.
type LogResponse struct {
	Username string     `json:"username"`
	Count    int        `json:"count"`
	ID       string     `json:"id"`
	Log      []LogEntry `json:"log"`
}

// formDecodable lets request types populate themselves from form values.
type formDecodable interface {
	fromForm(values url.Values)
}

// decodeRequest accepts JSON or form-encoded payloads; the bundled landing
// page submits forms, API clients send JSON.
func decodeRequest(r *http.Request, dst formDecodable) error {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		defer r.Body.Close()
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	dst.fromForm(r.PostForm)
	return nil
}

// parseDate accepts YYYY-MM-DD (RFC3339 as a fallback) and returns the UTC
// calendar day. Malformed values yield nil: a bad bound is dropped, never
// rejected, matching the behavior the exercise-tracker test harness expects.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = domain.TruncateToDay(t)
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = domain.TruncateToDay(t)
		return &t
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
