package restapi

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"transitdecode.org/hafas/internal/backends"
	"transitdecode.org/hafas/internal/hafas"
	"transitdecode.org/hafas/internal/metrics"
	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/utils"
)

// parseTripLocation reads the endpoint named prefix of a trip query: either a
// station id (?from=8011160) or a coordinate pair (?fromLat=52.5&fromLon=13.4),
// each with an optional display name (?fromName=).
func parseTripLocation(q url.Values, prefix string, fieldErrors map[string][]string) (*models.Location, map[string][]string) {
	name := utils.SanitizeName(q.Get(prefix + "Name"))

	if id := q.Get(prefix); id != "" {
		if err := utils.ValidateID(id); err != nil {
			fieldErrors[prefix] = append(fieldErrors[prefix], err.Error())
			return nil, fieldErrors
		}
		station := models.NewStation(hafas.NormalizeStationID(id))
		if !station.HasID() {
			fieldErrors[prefix] = append(fieldErrors[prefix], "station id cannot be zero")
			return nil, fieldErrors
		}
		station.Name = name
		return &station, fieldErrors
	}

	latKey, lonKey := prefix+"Lat", prefix+"Lon"
	hasLat, hasLon := q.Get(latKey) != "", q.Get(lonKey) != ""
	if !hasLat && !hasLon {
		return nil, fieldErrors
	}
	if hasLat != hasLon {
		fieldErrors[prefix] = append(fieldErrors[prefix], fmt.Sprintf("%s and %s must be given together", latKey, lonKey))
		return nil, fieldErrors
	}

	before := len(fieldErrors)
	lat, fieldErrors := utils.ParseFloatParam(q, latKey, fieldErrors)
	lon, fieldErrors := utils.ParseFloatParam(q, lonKey, fieldErrors)
	if len(fieldErrors) > before {
		return nil, fieldErrors
	}
	if err := utils.ValidateLatitude(lat); err != nil {
		fieldErrors[latKey] = append(fieldErrors[latKey], err.Error())
	}
	if err := utils.ValidateLongitude(lon); err != nil {
		fieldErrors[lonKey] = append(fieldErrors[lonKey], err.Error())
	}
	if len(fieldErrors) > before {
		return nil, fieldErrors
	}

	address := models.Location{
		Type: models.LocationAddress,
		Lat:  int32(math.Round(lat * 1e6)),
		Lon:  int32(math.Round(lon * 1e6)),
		Name: name,
	}
	return &address, fieldErrors
}

func (api *RestAPI) checkTripFormat(w http.ResponseWriter, r *http.Request, profile backends.Profile, want backends.TripFormat) bool {
	if profile.TripFormat == want {
		return true
	}
	api.validationErrorResponse(w, r, map[string][]string{
		"backend": {fmt.Sprintf("backend %s answers trip queries in %s format", profile.Name, profile.TripFormat)},
	})
	return false
}

func (api *RestAPI) binaryTripsHandler(w http.ResponseWriter, r *http.Request) {
	decoder, profile, ok := api.backendFromParams(w, r)
	if !ok || !api.checkTripFormat(w, r, profile, backends.TripFormatBinary) {
		return
	}

	q := r.URL.Query()
	fieldErrors := make(map[string][]string)
	from, fieldErrors := parseTripLocation(q, "from", fieldErrors)
	via, fieldErrors := parseTripLocation(q, "via", fieldErrors)
	to, fieldErrors := parseTripLocation(q, "to", fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeBinaryTrips(body, from, via, to)
	api.Metrics.ObserveDecode(metrics.DecoderBinaryTrips, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}
	api.Metrics.AddTrips(decoder.Name(), len(result.Trips))

	api.sendResponse(w, r, models.NewEntryResponse(newTripsView(result), tripsReferences(result)))
}

// xmlPagingContext reads the context of the page being continued. A request
// without tokens starts a fresh search.
func xmlPagingContext(q url.Values, fieldErrors map[string][]string) (*models.XMLContext, bool, map[string][]string) {
	later, fieldErrors := utils.ParseBoolParam(q, "later", fieldErrors)
	seq, fieldErrors := utils.ParseIntParam(q, "seq", 0, fieldErrors)

	laterToken, earlierToken := q.Get("laterToken"), q.Get("earlierToken")
	for key, token := range map[string]string{"laterToken": laterToken, "earlierToken": earlierToken} {
		if token == "" {
			continue
		}
		if err := utils.ValidateContextToken(token); err != nil {
			fieldErrors[key] = append(fieldErrors[key], err.Error())
		}
	}

	if laterToken == "" && earlierToken == "" {
		return nil, later, fieldErrors
	}
	return &models.XMLContext{
		LaterToken:     laterToken,
		EarlierToken:   earlierToken,
		SequenceNumber: seq,
	}, later, fieldErrors
}

func (api *RestAPI) xmlTripsHandler(w http.ResponseWriter, r *http.Request) {
	decoder, profile, ok := api.backendFromParams(w, r)
	if !ok || !api.checkTripFormat(w, r, profile, backends.TripFormatXML) {
		return
	}

	prev, later, fieldErrors := xmlPagingContext(r.URL.Query(), make(map[string][]string))
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	body, err := api.readBody(w, r)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}

	start := time.Now()
	result, err := decoder.DecodeXMLTrips(bytes.NewReader(body), prev, later)
	api.Metrics.ObserveDecode(metrics.DecoderXMLTrips, decoder.Name(), start, err)
	if err != nil {
		api.decodeErrorResponse(w, r, err)
		return
	}
	api.Metrics.AddTrips(decoder.Name(), len(result.Trips))

	api.sendResponse(w, r, models.NewEntryResponse(newTripsView(result), tripsReferences(result)))
}
