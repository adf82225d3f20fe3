package restapi

import (
	"encoding/json"
	"io"
	"net/http"

	"transitdecode.org/hafas/internal/logging"
	"transitdecode.org/hafas/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// readBody reads the posted backend response, bounded by maxBodyBytes.
func (api *RestAPI) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := http.MaxBytesReader(w, r.Body, api.maxBodyBytes)
	defer logging.SafeCloseWithLogging(reader, api.Logger, "close_request_body")
	return io.ReadAll(reader)
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}
