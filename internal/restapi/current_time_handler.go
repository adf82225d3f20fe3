package restapi

import (
	"net/http"
	"time"

	"transitdecode.org/hafas/internal/models"
)

// currentTimeHandler reports the server time, in the zone of ?backend= when given.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if name := r.URL.Query().Get("backend"); name != "" {
		decoder, err := api.Backends.Get(name)
		if err != nil {
			api.validationErrorResponse(w, r, map[string][]string{"backend": {err.Error()}})
			return
		}
		loc = decoder.Config().Location
	}

	api.sendResponse(w, r, models.NewOKResponse(models.NewCurrentTimeData(time.Now(), loc)))
}
