package restapi

import (
	"bytes"
	"net/http"
	"time"

	"transitdecode.org/hafas/internal/metrics"
	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/utils"
)

// departuresHandler decodes a posted station board for :stationId.
func (api *RestAPI) departuresHandler(w http.ResponseWriter, r *http.Request) {
	decoder, _, ok := api.backendFromParams(w, r)
	if !ok {
		return
	}

	stationID := utils.PathParam(r, "stationId")
	if err := utils.ValidateID(stationID); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"stationId": {err.Error()}})
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeStationBoard(bytes.NewReader(body), stationID)
	api.Metrics.ObserveDecode(metrics.DecoderStationBoard, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	view, refs, count := newDeparturesView(result)
	api.Metrics.AddDepartures(decoder.Name(), count)
	api.sendResponse(w, r, models.NewEntryResponse(view, refs))
}
