package hafas

import (
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"transitdecode.org/hafas/internal/models"
)

var pEvaID = regexp.MustCompile(`^\d+$`)

type xmlNearbyStation struct {
	EvaID string  `xml:"evaId,attr"`
	Name  string  `xml:"name,attr"`
	X     *string `xml:"x,attr"`
	Y     *string `xml:"y,attr"`
}

// DecodeXMLNearbyStations decodes the St list of the XML nearby stations
// query. St elements are collected wherever they appear; an Err element
// anywhere decides the outcome on its own.
func (d *Decoder) DecodeXMLNearbyStations(body []byte) (*models.NearbyStationsResult, error) {
	result, err := d.xmlNearbyStations(body)
	if err != nil {
		return nil, wrapMalformed("xml nearby stations", err)
	}

	d.logOperation("xml_nearby_stations_decoded",
		slog.String("status", string(result.Status)),
		slog.Int("stations", len(result.Stations)))
	return result, nil
}

func (d *Decoder) xmlNearbyStations(body []byte) (*models.NearbyStationsResult, error) {
	dec, err := boardDecoder(body)
	if err != nil {
		return nil, err
	}

	stations := []models.NearbyStation{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Err":
			var e xmlErr
			if err := dec.DecodeElement(&e, &start); err != nil {
				return nil, err
			}
			switch e.Code {
			case "H730":
				return &models.NearbyStationsResult{Status: models.StatusInvalidStation}, nil
			case "H890":
				return &models.NearbyStationsResult{Status: models.StatusOK, Stations: []models.NearbyStation{}}, nil
			}
			return nil, &ProtocolError{Code: e.Code, Text: e.Text}
		case "St":
			var st xmlNearbyStation
			if err := dec.DecodeElement(&st, &start); err != nil {
				return nil, err
			}
			station, err := d.xmlNearbyStation(st)
			if err != nil {
				return nil, err
			}
			stations = append(stations, station)
		}
	}

	return &models.NearbyStationsResult{Status: models.StatusOK, Stations: stations}, nil
}

// xmlNearbyStation keeps coordinates only when both are present.
func (d *Decoder) xmlNearbyStation(st xmlNearbyStation) (models.NearbyStation, error) {
	if !pEvaID.MatchString(st.EvaID) {
		return models.NearbyStation{}, malformed("station evaId %q", st.EvaID)
	}
	name := strings.TrimSpace(st.Name)
	if name == "" {
		return models.NearbyStation{}, malformed("station %s without name", st.EvaID)
	}

	var lat, lon int32
	if st.X != nil && st.Y != nil {
		x, errX := strconv.ParseInt(strings.TrimSpace(*st.X), 10, 32)
		y, errY := strconv.ParseInt(strings.TrimSpace(*st.Y), 10, 32)
		if errX != nil || errY != nil {
			return models.NearbyStation{}, malformed("station %s coordinates %q/%q", st.EvaID, *st.X, *st.Y)
		}
		lat, lon = int32(y), int32(x)
	}

	return models.NearbyStation{
		Location: d.station(st.EvaID, lat, lon, name),
		Weight:   -1,
	}, nil
}
