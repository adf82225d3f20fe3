package restapi

import (
	"net/http"
	"time"

	"transitdecode.org/hafas/internal/metrics"
	"transitdecode.org/hafas/internal/models"
)

func (api *RestAPI) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	decoder, _, ok := api.backendFromParams(w, r)
	if !ok {
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeSuggestions(body)
	api.Metrics.ObserveDecode(metrics.DecoderSuggestions, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(result, suggestionsReferences(result)))
}

func (api *RestAPI) nearbyHandler(w http.ResponseWriter, r *http.Request) {
	decoder, _, ok := api.backendFromParams(w, r)
	if !ok {
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeNearbyStations(body)
	api.Metrics.ObserveDecode(metrics.DecoderNearby, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(result, nearbyReferences(result)))
}

func (api *RestAPI) xmlNearbyHandler(w http.ResponseWriter, r *http.Request) {
	decoder, _, ok := api.backendFromParams(w, r)
	if !ok {
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeXMLNearbyStations(body)
	api.Metrics.ObserveDecode(metrics.DecoderXMLNearby, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(result, nearbyReferences(result)))
}
