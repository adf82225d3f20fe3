package restapi

import (
	"net/http"

	"transitdecode.org/hafas/internal/models"
)

func (api *RestAPI) backendsHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, models.NewListResponse(api.Backends.Profiles(), models.NewEmptyReferences()))
}

func (api *RestAPI) backendHandler(w http.ResponseWriter, r *http.Request) {
	_, profile, ok := api.backendFromParams(w, r)
	if !ok {
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(profile, models.NewEmptyReferences()))
}
