// Package api exposes HTTP handlers for the workout log service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/witness-org/witness-sub000/internal/auth"
	"github.com/witness-org/witness-sub000/internal/domain"
	"github.com/witness-org/witness-sub000/internal/httperr"
	"github.com/witness-org/witness-sub000/internal/persistence"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)

	mux.HandleFunc("POST /v1/users", h.registerUser)
	mux.HandleFunc("GET /v1/users", h.listUsers)
	mux.HandleFunc("GET /v1/users/me", h.currentUser)
	mux.HandleFunc("PUT /v1/users/{id}/role", h.assignRole)

	mux.HandleFunc("GET /v1/exercises", h.listExercises)
	mux.HandleFunc("POST /v1/exercises", h.createExercise)
	mux.HandleFunc("GET /v1/exercises/{id}", h.getExercise)
	mux.HandleFunc("PUT /v1/exercises/{id}", h.updateExercise)
	mux.HandleFunc("DELETE /v1/exercises/{id}", h.deleteExercise)

	mux.HandleFunc("POST /v1/workouts", h.createWorkout)
	mux.HandleFunc("GET /v1/workouts", h.listWorkouts)
	mux.HandleFunc("GET /v1/workouts/{id}", h.getWorkout)
	mux.HandleFunc("DELETE /v1/workouts/{id}", h.deleteWorkout)

	mux.HandleFunc("POST /v1/workouts/{id}/exercise-logs", h.addExerciseLog)
	mux.HandleFunc("PUT /v1/workouts/{id}/exercise-logs/order", h.reorderExerciseLogs)
	mux.HandleFunc("DELETE /v1/workouts/{id}/exercise-logs/{logID}", h.removeExerciseLog)

	mux.HandleFunc("POST /v1/workouts/{id}/exercise-logs/{logID}/set-logs", h.addSetLog)
	mux.HandleFunc("PUT /v1/workouts/{id}/exercise-logs/{logID}/set-logs/order", h.reorderSetLogs)
	mux.HandleFunc("PUT /v1/workouts/{id}/exercise-logs/{logID}/set-logs/{setID}", h.updateSetLog)
	mux.HandleFunc("DELETE /v1/workouts/{id}/exercise-logs/{logID}/set-logs/{setID}", h.removeSetLog)

	mux.HandleFunc("GET /v1/estimates/one-rep-max", h.oneRepMax)
}

// PublicRoute reports whether the request may proceed without credentials.
// Catalog reads and the one-rep-max calculator touch no per-user state.
func PublicRoute(r *http.Request) bool {
	if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
		return true
	}
	if r.Method == http.MethodGet && (r.URL.Path == "/v1/exercises" || strings.HasPrefix(r.URL.Path, "/v1/exercises/")) {
		return true
	}
	return r.Method == http.MethodGet && r.URL.Path == "/v1/estimates/one-rep-max"
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requester resolves the authenticated principal to the internal user and
// the effective role set. The stored role counts alongside token claims.
func (h *Handler) requester(w http.ResponseWriter, r *http.Request) (domain.Requester, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httperr.Write(w, http.StatusUnauthorized, httperr.KeyTokenMissing, "missing bearer token")
		return domain.Requester{}, false
	}

	user, err := h.service.UserBySubject(r.Context(), principal.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httperr.Write(w, http.StatusNotFound, httperr.KeyNotFound, "no user registered for this identity")
			return domain.Requester{}, false
		}
		writeDomainError(w, err)
		return domain.Requester{}, false
	}

	return domain.Requester{
		UserID: user.ID,
		Roles:  domain.EffectiveRoles(user, principal.Roles),
	}, true
}

// RegisterUserRequest is the payload for POST /v1/users.
type RegisterUserRequest struct {
	Username string `json:"username"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httperr.Write(w, http.StatusUnauthorized, httperr.KeyTokenMissing, "missing bearer token")
		return
	}

	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "username is required")
		return
	}

	user, err := h.service.RegisterUser(r.Context(), principal.Subject, principal.Email, req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		httperr.Write(w, http.StatusUnauthorized, httperr.KeyTokenMissing, "missing bearer token")
		return
	}

	user, err := h.service.UserBySubject(r.Context(), principal.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), requester)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, toUserView(user))
	}
	writeJSON(w, http.StatusOK, map[string][]UserView{"items": views})
}

// AssignRoleRequest is the payload for PUT /v1/users/{id}/role.
type AssignRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyInvalidRole, err.Error())
		return
	}

	user, err := h.service.AssignRole(r.Context(), requester, userID, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

// ExerciseRequest is the payload for creating or updating a catalog entry.
type ExerciseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MuscleGroup string `json:"muscle_group"`
}

// Validate ensures request correctness.
func (r ExerciseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, err.Error())
		return
	}

	exercise, err := h.service.CreateExercise(r.Context(), requester, domain.Exercise{
		Name:        req.Name,
		Description: req.Description,
		MuscleGroup: req.MuscleGroup,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExerciseView(*exercise))
}

func (h *Handler) getExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	exercise, err := h.service.GetExercise(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExerciseView(*exercise))
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.service.ListExercises(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]ExerciseView, 0, len(exercises))
	for _, exercise := range exercises {
		views = append(views, toExerciseView(exercise))
	}
	writeJSON(w, http.StatusOK, map[string][]ExerciseView{"items": views})
}

func (h *Handler) updateExercise(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, err.Error())
		return
	}

	exercise, err := h.service.UpdateExercise(r.Context(), requester, domain.Exercise{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		MuscleGroup: req.MuscleGroup,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExerciseView(*exercise))
}

func (h *Handler) deleteExercise(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteExercise(r.Context(), requester, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateWorkoutRequest is the payload for POST /v1/workouts.
type CreateWorkoutRequest struct {
	LoggedOn        time.Time `json:"logged_on"`
	DurationMinutes *int      `json:"duration_minutes"`
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	if req.LoggedOn.IsZero() {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "logged_on is required")
		return
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "duration_minutes must be > 0")
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), requester, domain.NewWorkoutInput{
		LoggedOn:        req.LoggedOn,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(*workout))
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	workout, err := h.service.GetWorkout(r.Context(), requester, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "invalid cursor")
		return
	}
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "limit must be a positive integer")
			return
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		limit = parsed
	}

	workouts, next, err := h.service.ListWorkouts(r.Context(), requester, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ListWorkoutsResponse{
		Items:      make([]WorkoutView, 0, len(workouts)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, workout := range workouts {
		resp.Items = append(resp.Items, toWorkoutView(workout))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteWorkout(r.Context(), requester, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddExerciseLogRequest is the payload for adding an exercise log.
type AddExerciseLogRequest struct {
	ExerciseID int64  `json:"exercise_id"`
	Comment    string `json:"comment"`
}

func (h *Handler) addExerciseLog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AddExerciseLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	if req.ExerciseID <= 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "exercise_id is required")
		return
	}

	workout, err := h.service.AddExerciseLog(r.Context(), requester, workoutID, domain.NewExerciseLogInput{
		ExerciseID: req.ExerciseID,
		Comment:    req.Comment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(*workout))
}

func (h *Handler) removeExerciseLog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logID")
	if !ok {
		return
	}

	workout, err := h.service.RemoveExerciseLog(r.Context(), requester, workoutID, logID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) reorderExerciseLogs(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	moves, ok := decodeReorderMap(w, r)
	if !ok {
		return
	}

	workout, err := h.service.ReorderExerciseLogs(r.Context(), requester, workoutID, moves)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

// SetLogRequest is the payload for adding or updating a set log. The type
// field discriminates the two variants; the matching measure is required.
type SetLogRequest struct {
	Weight          float64  `json:"weight"`
	RPE             *float64 `json:"rpe"`
	ResistanceBands int      `json:"resistance_bands"`
	Kind            string   `json:"type"`
	Reps            *int     `json:"reps"`
	Seconds         *int     `json:"seconds"`
}

// Validate ensures request correctness and resolves the variant.
func (r SetLogRequest) Validate() (domain.SetLogInput, error) {
	input := domain.SetLogInput{
		Weight:          r.Weight,
		RPE:             r.RPE,
		ResistanceBands: r.ResistanceBands,
	}
	if r.Weight < 0 {
		return input, errors.New("weight must be >= 0")
	}
	if r.ResistanceBands < 0 {
		return input, errors.New("resistance_bands must be >= 0")
	}
	if r.RPE != nil && (*r.RPE < 1 || *r.RPE > 10) {
		return input, errors.New("rpe must be between 1 and 10")
	}

	switch domain.SetKind(r.Kind) {
	case domain.SetKindReps:
		if r.Reps == nil || *r.Reps <= 0 {
			return input, errors.New("reps must be > 0 for rep-based sets")
		}
		if r.Seconds != nil {
			return input, errors.New("seconds is not valid for rep-based sets")
		}
		input.Kind = domain.SetKindReps
		input.Reps = *r.Reps
	case domain.SetKindTime:
		if r.Seconds == nil || *r.Seconds <= 0 {
			return input, errors.New("seconds must be > 0 for time-based sets")
		}
		if r.Reps != nil {
			return input, errors.New("reps is not valid for time-based sets")
		}
		input.Kind = domain.SetKindTime
		input.Seconds = *r.Seconds
	default:
		return input, errors.New(`type must be "reps" or "time"`)
	}
	return input, nil
}

func (h *Handler) addSetLog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logID")
	if !ok {
		return
	}

	var req SetLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	input, err := req.Validate()
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, err.Error())
		return
	}

	workout, err := h.service.AddSetLog(r.Context(), requester, workoutID, logID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(*workout))
}

func (h *Handler) updateSetLog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logID")
	if !ok {
		return
	}
	setID, ok := pathID(w, r, "setID")
	if !ok {
		return
	}

	var req SetLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return
	}
	input, err := req.Validate()
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, err.Error())
		return
	}

	workout, err := h.service.UpdateSetLog(r.Context(), requester, workoutID, logID, setID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) removeSetLog(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logID")
	if !ok {
		return
	}
	setID, ok := pathID(w, r, "setID")
	if !ok {
		return
	}

	workout, err := h.service.RemoveSetLog(r.Context(), requester, workoutID, logID, setID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) reorderSetLogs(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}
	workoutID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logID")
	if !ok {
		return
	}
	moves, ok := decodeReorderMap(w, r)
	if !ok {
		return
	}

	workout, err := h.service.ReorderSetLogs(r.Context(), requester, workoutID, logID, moves)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) oneRepMax(w http.ResponseWriter, r *http.Request) {
	weight, err := strconv.ParseFloat(r.URL.Query().Get("weight"), 64)
	if err != nil || weight < 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "weight must be a non-negative number")
		return
	}
	reps, err := strconv.Atoi(r.URL.Query().Get("reps"))
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "reps must be an integer")
		return
	}

	resp := struct {
		Weight    float64  `json:"weight"`
		Reps      int      `json:"reps"`
		OneRepMax *float64 `json:"one_rep_max"`
	}{Weight: weight, Reps: reps}

	if estimate, ok := domain.EstimateOneRepMax(weight, reps); ok {
		resp.OneRepMax = &estimate
	}
	writeJSON(w, http.StatusOK, resp)
}

// pathID parses a positive integer path segment.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "invalid "+name+" path parameter")
		return 0, false
	}
	return id, true
}

// decodeReorderMap parses the body of a reorder request: a JSON object
// mapping string-encoded child ids to 1-based target positions.
func decodeReorderMap(w http.ResponseWriter, r *http.Request) (map[int64]int, bool) {
	var raw map[string]int
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "unable to parse body")
		return nil, false
	}
	if len(raw) == 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "reorder map must not be empty")
		return nil, false
	}

	moves := make(map[int64]int, len(raw))
	for key, pos := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || id <= 0 {
			httperr.Write(w, http.StatusBadRequest, httperr.KeyValidationFailed, "reorder map keys must be child ids")
			return nil, false
		}
		moves[id] = pos
	}
	return moves, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
