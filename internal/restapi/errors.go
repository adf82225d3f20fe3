package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"transitdecode.org/hafas/internal/backends"
	"transitdecode.org/hafas/internal/hafas"
	"transitdecode.org/hafas/internal/logging"
	"transitdecode.org/hafas/internal/models"
)

// invalidAPIKeyResponse sends a 401 Unauthorized response
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.Logger, "request failed", err)
	api.errorResponse(w, r, http.StatusInternalServerError, "internal server error")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	}

	setJSONResponseType(&w)
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.Logger, "failed to encode validation error response", err)
	}
}

func (api *RestAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, text string) {
	setJSONResponseType(&w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.NewResponse(status, nil, text)); err != nil {
		logging.LogError(api.Logger, "failed to encode error response", err)
	}
}

// decodeErrorResponse maps a decoder failure onto an HTTP status. Responses
// the decoder could not make sense of are the caller's input, so they are
// reported as unprocessable rather than as server errors.
func (api *RestAPI) decodeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var protocolErr *hafas.ProtocolError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, hafas.ErrSessionExpired):
		api.errorResponse(w, r, http.StatusGone, "session expired")
	case errors.Is(err, hafas.ErrProtocolVersionMismatch),
		errors.Is(err, hafas.ErrMalformedResponse),
		errors.As(err, &protocolErr):
		logging.LogOperation(logging.FromContext(r.Context()), "decode_rejected",
			slog.String("error", err.Error()))
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &tooLarge):
		api.errorResponse(w, r, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, backends.ErrUnknownBackend):
		api.sendNotFound(w, r)
	default:
		api.serverErrorResponse(w, r, err)
	}
}
