package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"civicwatch/internal/auth"
	"civicwatch/internal/domain"
	"civicwatch/internal/ranking"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Code     string      `json:"code,omitempty"`
	Instance string      `json:"instance,omitempty"`
}

func (app *App) setupRoutes() {
	app.router.HandleFunc("/health", app.healthHandler).Methods("GET")
	app.router.HandleFunc("/auth/login", app.loginHandler).Methods("POST")

	app.router.HandleFunc("/reports", app.authMiddleware(app.createReportHandler, "")).Methods("POST")
	app.router.HandleFunc("/reports", app.listReportsHandler).Methods("GET")
	app.router.HandleFunc("/reports/nearby", app.nearbyReportsHandler).Methods("GET")
	app.router.HandleFunc("/reports/{id}", app.getReportHandler).Methods("GET")
	app.router.HandleFunc("/reports/{id}/upvote", app.authMiddleware(app.upvoteReportHandler, "")).Methods("POST")
	app.router.HandleFunc("/reports/{id}/status", app.authMiddleware(app.updateStatusHandler, auth.RoleOfficial)).Methods("PUT")

	app.router.HandleFunc("/escalations", app.escalationsHandler).Methods("GET")
	app.router.HandleFunc("/heatmap", app.heatmapHandler).Methods("GET")
	app.router.HandleFunc("/notifications", app.authMiddleware(app.notificationsHandler, auth.RoleOfficial)).Methods("GET")
}

// authMiddleware validates the JWT and, when role is non-empty, requires
// that role.
func (app *App) authMiddleware(next http.HandlerFunc, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractTokenFromHeader(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization token", "unauthorized")
			return
		}

		claims, err := app.tokens.ValidateToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid token", "unauthorized")
			return
		}
		if role != "" && claims.Role != role {
			respondWithError(w, http.StatusForbidden, "Insufficient role", "forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  "civicwatch",
		"instance": app.instanceID,
	})
}

func (app *App) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "bad_request")
		return
	}

	user, err := auth.Authenticate(req.Username, req.Password)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials", "unauthorized")
		return
	}

	token, err := app.tokens.GenerateToken(*user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate token", "internal")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]string{
			"id":   user.ID,
			"role": user.Role,
			"name": user.Name,
		},
	})
}

func (app *App) createReportHandler(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if claims := claimsFrom(r); claims != nil {
		draft.ReportedBy = claims.Sub
	}

	report, err := app.svc.SubmitReport(r.Context(), draft)
	if err != nil {
		app.respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, APIResponse{
		Success:  true,
		Message:  "Report submitted successfully",
		Data:     report,
		Instance: app.instanceID,
	})
}

func (app *App) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	q := ranking.DefaultQuery()
	if v := r.URL.Query().Get("sort"); v != "" {
		q.SortKey = v
	}
	if v := r.URL.Query().Get("direction"); v != "" {
		q.Direction = v
	}
	if v := r.URL.Query().Get("department"); v != "" {
		q.Department = v
	}

	reports := app.svc.View(q)
	respondWithJSON(w, http.StatusOK, APIResponse{
		Success:  true,
		Data:     map[string]interface{}{"reports": reports, "total": app.svc.Count()},
		Instance: app.instanceID,
	})
}

func (app *App) getReportHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReportID(w, r)
	if !ok {
		return
	}
	report, err := app.svc.Get(id)
	if err != nil {
		app.respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

func (app *App) upvoteReportHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReportID(w, r)
	if !ok {
		return
	}
	report, err := app.svc.Upvote(r.Context(), id)
	if err != nil {
		app.respondDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "Report upvoted",
		Data:    report,
	})
}

func (app *App) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseReportID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status         domain.Status `json:"status"`
		ResolutionNote string        `json:"resolution_note"`
	}
	// only status and resolution_note are patchable; any other report
	// field in the body is an immutable-field violation
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			app.respondDomainError(w, &domain.ImmutableFieldError{Field: unknownField(err)})
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	report, err := app.svc.TransitionStatus(r.Context(), id, req.Status, req.ResolutionNote)
	if err != nil {
		app.respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "Status updated",
		Data:    report,
	})
}

func (app *App) escalationsHandler(w http.ResponseWriter, r *http.Request) {
	threshold := 0.0
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid threshold", "bad_request")
			return
		}
		threshold = f
	}
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: app.svc.Escalations(threshold)})
}

func (app *App) heatmapHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: app.svc.HeatmapPoints()})
}

func (app *App) nearbyReportsHandler(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respondWithError(w, http.StatusBadRequest, "lat and lng are required", "bad_request")
		return
	}
	radius := 0.0
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, _ = strconv.ParseFloat(v, 64)
	}
	neighbors := app.svc.Nearby(domain.Location{Lat: lat, Lng: lng}, radius)
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: neighbors})
}

func (app *App) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: app.inbox.Recent()})
}

// respondDomainError maps the core error taxonomy onto HTTP statuses.
func (app *App) respondDomainError(w http.ResponseWriter, err error) {
	var (
		valErr  *domain.ValidationError
		nfErr   *domain.NotFoundError
		immErr  *domain.ImmutableFieldError
		statErr *domain.InvalidStatusError
	)
	switch {
	case errors.As(err, &valErr):
		respondWithError(w, http.StatusBadRequest, valErr.Error(), "validation_error")
	case errors.As(err, &nfErr):
		respondWithError(w, http.StatusNotFound, nfErr.Error(), "not_found")
	case errors.As(err, &immErr):
		respondWithError(w, http.StatusBadRequest, immErr.Error(), "immutable_field")
	case errors.As(err, &statErr):
		respondWithError(w, http.StatusBadRequest, statErr.Error(), "invalid_status")
	case errors.Is(err, domain.ErrMissingResolutionNote):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), "missing_resolution_note")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal error", "internal")
	}
}

// claimsFrom returns the claims authMiddleware stored on the request, or
// nil on unauthenticated routes.
func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

func parseReportID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID", "bad_request")
		return uuid.Nil, false
	}
	return id, true
}

// unknownField pulls the offending field name out of a json decoder
// "unknown field" error.
func unknownField(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "unknown field "); i >= 0 {
		return strings.Trim(msg[i+len("unknown field "):], `"`)
	}
	return "unknown"
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message, errCode string) {
	respondWithJSON(w, code, APIResponse{
		Success: false,
		Error:   message,
		Code:    errCode,
	})
}
