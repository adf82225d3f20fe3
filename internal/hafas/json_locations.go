package hafas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/tablereader"
)

var (
	pSuggestionsWrapper = regexp.MustCompile(`(?s)^\s*SLs\.sls\s*=\s*(.*?);\s*SLs\.showSuggestion\(\);\s*$`)
	pSuggestionID       = regexp.MustCompile(`@L=0*(\d+)@`)
)

// flexInt accepts both JSON numbers and numeric strings; an empty string is zero.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = flexInt(v)
	return nil
}

type jsonSuggestions struct {
	Suggestions []*jsonSuggestion `json:"suggestions"`
}

type jsonSuggestion struct {
	Type   *flexInt `json:"type"`
	Value  *string  `json:"value"`
	YCoord flexInt  `json:"ycoord"`
	XCoord flexInt  `json:"xcoord"`
	Weight *flexInt `json:"weight"`
	ID     *string  `json:"id"`
}

type jsonNearby struct {
	Error *flexInt          `json:"error"`
	Stops []*jsonNearbyStop `json:"stops"`
}

type jsonNearbyStop struct {
	ExtID      *string  `json:"extId"`
	URLName    *string  `json:"urlname"`
	Y          *flexInt `json:"y"`
	X          *flexInt `json:"x"`
	StopWeight *flexInt `json:"stopweight"`
}

// utf8Text returns data unchanged when it is valid UTF-8 and reads it as
// Latin-1 otherwise.
func utf8Text(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	return tablereader.DefaultEncoding.NewDecoder().Bytes(data)
}

// DecodeSuggestions decodes the location suggestions of the getstop endpoint,
// with or without its JavaScript wrapper.
func (d *Decoder) DecodeSuggestions(text []byte) (*models.SuggestLocationsResult, error) {
	text, err := utf8Text(text)
	if err != nil {
		return nil, wrapMalformed("suggestions", err)
	}
	if m := pSuggestionsWrapper.FindSubmatch(text); m != nil {
		text = m[1]
	}

	var head jsonSuggestions
	if err := json.Unmarshal(text, &head); err != nil {
		return nil, wrapMalformed("suggestions", err)
	}
	if head.Suggestions == nil {
		return nil, malformed("suggestions: missing suggestions array")
	}

	locations := make([]models.SuggestedLocation, 0, len(head.Suggestions))
	for i, s := range head.Suggestions {
		if s == nil {
			continue
		}
		if s.Type == nil || s.Value == nil || s.ID == nil {
			return nil, malformed("suggestion %d: type, value and id are required", i)
		}

		priority := -i
		if d.cfg.JSONGetStopsUseWeight {
			if s.Weight == nil {
				return nil, malformed("suggestion %q without weight", *s.Value)
			}
			priority = int(*s.Weight)
		}

		location, ok, err := d.suggestedLocation(s)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		locations = append(locations, models.SuggestedLocation{Location: location, Priority: priority})
	}

	d.logOperation("suggestions_decoded", slog.Int("locations", len(locations)))
	return &models.SuggestLocationsResult{Status: models.StatusOK, Locations: locations}, nil
}

func (d *Decoder) suggestedLocation(s *jsonSuggestion) (models.Location, bool, error) {
	var id string
	if m := pSuggestionID.FindStringSubmatch(*s.ID); m != nil {
		id = m[1]
	}
	lat, lon := int32(s.YCoord), int32(s.XCoord)
	value := *s.Value

	switch *s.Type {
	case 1:
		return d.station(id, lat, lon, value), true, nil
	case 2:
		return d.address("", lat, lon, value), true, nil
	case 4:
		return models.Location{Type: models.LocationPOI, ID: id, Lat: lat, Lon: lon, Name: value}, true, nil
	case 128:
		return d.address(id, lat, lon, value), true, nil
	case 87:
		return models.Location{}, false, nil
	}
	return models.Location{}, false, &ProtocolError{Code: strconv.Itoa(int(*s.Type)), Text: "unknown suggestion type"}
}

// DecodeNearbyStations decodes the JSON answer of the nearby stations endpoint.
// Stations with a weight of zero are left out.
func (d *Decoder) DecodeNearbyStations(text []byte) (*models.NearbyStationsResult, error) {
	text, err := utf8Text(text)
	if err != nil {
		return nil, wrapMalformed("nearby stations", err)
	}

	var head jsonNearby
	if err := json.Unmarshal(text, &head); err != nil {
		return nil, wrapMalformed("nearby stations", err)
	}
	if head.Error == nil {
		return nil, malformed("nearby stations: missing error field")
	}
	switch *head.Error {
	case 0:
	case 2:
		return &models.NearbyStationsResult{Status: models.StatusServiceDown}, nil
	default:
		return nil, &ProtocolError{Code: strconv.Itoa(int(*head.Error))}
	}

	if head.Stops == nil {
		return nil, malformed("nearby stations: missing stops array")
	}

	stations := make([]models.NearbyStation, 0, len(head.Stops))
	for i, stop := range head.Stops {
		if stop == nil || stop.ExtID == nil || stop.URLName == nil || stop.X == nil || stop.Y == nil {
			return nil, malformed("nearby station %d: extId, urlname, x and y are required", i)
		}
		weight := -1
		if stop.StopWeight != nil {
			weight = int(*stop.StopWeight)
		}
		if weight == 0 {
			continue
		}

		name, err := url.QueryUnescape(*stop.URLName)
		if err != nil {
			return nil, wrapMalformed("nearby station name", err)
		}
		if !utf8.ValidString(name) {
			decoded, err := tablereader.DefaultEncoding.NewDecoder().String(name)
			if err != nil {
				return nil, wrapMalformed("nearby station name", err)
			}
			name = decoded
		}

		stations = append(stations, models.NearbyStation{
			Location: d.station(*stop.ExtID, int32(*stop.Y), int32(*stop.X), name),
			Weight:   weight,
		})
	}

	d.logOperation("nearby_stations_decoded", slog.Int("stations", len(stations)))
	return &models.NearbyStationsResult{Status: models.StatusOK, Stations: stations}, nil
}
