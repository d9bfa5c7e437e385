package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/service"
	"github.com/phrazzld/taskflow/internal/service/auth"
)

// caller is the authenticated user of a request.
type caller struct {
	claims *auth.Claims
	actor  *service.Actor
}

func (c caller) tenantID() string { return c.claims.TenantID }

// getCaller reads the claims the auth middleware stored. It writes a 401
// and returns false when they are missing.
func getCaller(w http.ResponseWriter, r *http.Request) (caller, bool) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("claims not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return caller{}, false
	}
	return caller{
		claims: claims,
		actor:  &service.Actor{ID: claims.UserID, Name: claims.Name, Role: claims.Role},
	}, true
}

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required")
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format")
	}
	return id, nil
}

// handleCallerAndPathUUID resolves both the caller and a UUID path
// parameter, writing the error response when either is missing.
func handleCallerAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (caller, uuid.UUID, bool) {
	c, ok := getCaller(w, r)
	if !ok {
		return caller{}, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		logger.FromContext(r.Context()).Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err)
		return caller{}, uuid.Nil, false
	}
	return c, id, true
}

// decodeAndValidate reads a JSON body into v and validates it, writing a 400
// on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// queryInt reads a non-negative integer query parameter, or def when it is
// absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
