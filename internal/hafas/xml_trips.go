package hafas

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/tablereader"
)

var (
	xmlTopLevelStatuses = map[string]models.Status{
		"I3": models.StatusInvalidDate,
		"F1": models.StatusServiceDown,
	}
	xmlConResStatuses = map[string]models.Status{
		"K9260":  models.StatusUnknownFrom,
		"K9280":  models.StatusUnknownVia,
		"K9300":  models.StatusUnknownTo,
		"K9360":  models.StatusInvalidDate,
		"K9380":  models.StatusTooClose,
		"K895":   models.StatusTooClose,
		"K9220":  models.StatusUnresolvableAddress,
		"K9240":  models.StatusServiceDown,
		"K899":   models.StatusServiceDown,
		"K890":   models.StatusNoTrips,
		"K891":   models.StatusNoTrips,
		"K1:890": models.StatusNoTrips,
		"K2:890": models.StatusNoTrips,
	}

	pXMLDate = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	pXMLTime = regexp.MustCompile(`^(\d+)d(\d+):(\d{2}):(\d{2})$`)
)

type xmlResC struct {
	XMLName xml.Name   `xml:"ResC"`
	Prod    string     `xml:"prod,attr"`
	Err     *xmlErr    `xml:"Err"`
	ConRes  *xmlConRes `xml:"ConRes"`
}

type xmlErr struct {
	Code string `xml:"code,attr"`
	Text string `xml:"text,attr"`
}

type xmlConRes struct {
	Err            *xmlErr            `xml:"Err"`
	Context        string             `xml:"ConResCtxt"`
	ConnectionList *xmlConnectionList `xml:"ConnectionList"`
}

type xmlConnectionList struct {
	Connections []xmlConnection `xml:"Connection"`
}

type xmlConnection struct {
	ID        string          `xml:"id,attr"`
	Date      string          `xml:"Overview>Date"`
	Departure *xmlBasicStop   `xml:"Overview>Departure>BasicStop"`
	Arrival   *xmlBasicStop   `xml:"Overview>Arrival>BasicStop"`
	Transfers string             `xml:"Overview>Transfers"`
	Sections  *xmlConSectionList `xml:"ConSectionList"`
}

type xmlConSectionList struct {
	Sections []xmlConSection `xml:"ConSection"`
}

type xmlBasicStop struct {
	Station   *xmlLocation  `xml:"Station"`
	Poi       *xmlLocation  `xml:"Poi"`
	Address   *xmlLocation  `xml:"Address"`
	Arr       *xmlStopTime  `xml:"Arr"`
	Dep       *xmlStopTime  `xml:"Dep"`
	Prognosis *xmlPrognosis `xml:"StopPrognosis"`
}

type xmlLocation struct {
	Name              string `xml:"name,attr"`
	ExternalStationNr string `xml:"externalStationNr,attr"`
	X                 string `xml:"x,attr"`
	Y                 string `xml:"y,attr"`
}

type xmlStopTime struct {
	Time     string `xml:"Time"`
	Platform string `xml:"Platform>Text"`
}

type xmlPrognosis struct {
	Capacity1st string `xml:"Capacity1st"`
	Capacity2nd string `xml:"Capacity2nd"`
}

type xmlConSection struct {
	Departure *xmlBasicStop `xml:"Departure>BasicStop"`
	Journey   *xmlJourney   `xml:"Journey"`
	Walk      *xmlGis       `xml:"Walk"`
	Transfer  *xmlGis       `xml:"Transfer"`
	GisRoute  *xmlGis       `xml:"GisRoute"`
	Polyline  *xmlPolyline  `xml:"Polyline"`
	Arrival   *xmlBasicStop `xml:"Arrival>BasicStop"`
}

type xmlJourney struct {
	Attributes []xmlAttribute `xml:"JourneyAttributeList>JourneyAttribute>Attribute"`
	PassList   *xmlPassList   `xml:"PassList"`
}

type xmlAttribute struct {
	Type     string       `xml:"type,attr"`
	Code     string       `xml:"code,attr"`
	Variants []xmlVariant `xml:"AttributeVariant"`
}

type xmlVariant struct {
	Type string `xml:"type,attr"`
	Text string `xml:"Text"`
}

type xmlPassList struct {
	Stops []xmlBasicStop `xml:"BasicStop"`
}

type xmlGis struct {
	Duration *struct{} `xml:"Duration"`
}

type xmlPolyline struct {
	Points []struct {
		X string `xml:"x,attr"`
		Y string `xml:"y,attr"`
	} `xml:"Point"`
}

func (a xmlAttribute) variant(kind string) string {
	for _, v := range a.Variants {
		if v.Type == kind {
			return v.Text
		}
	}
	return ""
}

// newXMLDecoder returns an xml.Decoder that understands the charsets the
// backends declare in their prologue.
func newXMLDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := tablereader.LookupEncoding(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return dec
}

// DecodeXMLTrips decodes a ResC trip response. prev is the context of the
// page being continued, or nil for a fresh search.
func (d *Decoder) DecodeXMLTrips(r io.Reader, prev *models.XMLContext, later bool) (*models.TripsResult, error) {
	var res xmlResC
	if err := newXMLDecoder(r).Decode(&res); err != nil {
		return nil, wrapMalformed("xml trips", err)
	}

	result, err := d.xmlTrips(&res, prev, later)
	if err != nil {
		return nil, wrapMalformed("xml trips", err)
	}

	serverProduct, _, _ := strings.Cut(res.Prod, " ")
	d.logOperation("xml_trips_decoded",
		slog.String("status", string(result.Status)),
		slog.Int("trips", len(result.Trips)),
		slog.String("server_product", serverProduct))
	return result, nil
}

func (d *Decoder) xmlTrips(res *xmlResC, prev *models.XMLContext, later bool) (*models.TripsResult, error) {
	if res.Err != nil {
		return xmlStatus(xmlTopLevelStatuses, res.Err)
	}
	if res.ConRes == nil {
		return nil, malformed("missing ConRes")
	}
	if res.ConRes.Err != nil {
		return xmlStatus(xmlConResStatuses, res.ConRes.Err)
	}

	if res.ConRes.ConnectionList == nil {
		return nil, malformed("missing ConnectionList")
	}

	ctx := models.NextXMLContext(prev, strings.TrimSpace(res.ConRes.Context), later)

	connections := res.ConRes.ConnectionList.Connections
	trips := make([]models.Trip, 0, len(connections))
	for i := range connections {
		trip, err := d.xmlConnection(&connections[i], ctx.SequenceNumber)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return &models.TripsResult{Status: models.StatusOK, Trips: trips, Context: ctx}, nil
}

func xmlStatus(catalogue map[string]models.Status, e *xmlErr) (*models.TripsResult, error) {
	if status, ok := catalogue[e.Code]; ok {
		return models.NewTripsStatus(status), nil
	}
	return nil, &ProtocolError{Code: e.Code, Text: e.Text}
}

func (d *Decoder) xmlConnection(c *xmlConnection, seq int) (models.Trip, error) {
	id := fmt.Sprintf("%d/%s", seq, c.ID)

	date, err := d.xmlDate(c.Date)
	if err != nil {
		return models.Trip{}, err
	}
	if c.Departure == nil || c.Arrival == nil {
		return models.Trip{}, malformed("connection %s: incomplete overview", id)
	}
	from, err := d.xmlLocation(c.Departure)
	if err != nil {
		return models.Trip{}, err
	}
	to, err := d.xmlLocation(c.Arrival)
	if err != nil {
		return models.Trip{}, err
	}
	transfers, err := strconv.Atoi(strings.TrimSpace(c.Transfers))
	if err != nil {
		return models.Trip{}, malformed("connection %s: transfers %q", id, c.Transfers)
	}
	capacity, err := xmlCapacity(c.Departure.Prognosis)
	if err != nil {
		return models.Trip{}, err
	}

	if c.Sections == nil || len(c.Sections.Sections) == 0 {
		return models.Trip{}, malformed("connection %s: no sections", id)
	}
	sections := c.Sections.Sections
	legs := make([]models.Leg, 0, len(sections))
	for i := range sections {
		if legs, err = d.xmlSection(&sections[i], date, legs); err != nil {
			return models.Trip{}, fmt.Errorf("connection %s section %d: %w", id, i, err)
		}
	}

	return models.Trip{
		ID:         id,
		From:       from,
		To:         to,
		Legs:       legs,
		Capacity:   capacity,
		NumChanges: transfers,
	}, nil
}

func xmlCapacity(p *xmlPrognosis) ([]int, error) {
	if p == nil {
		return nil, nil
	}
	parse := func(s string) (int, error) {
		if s = strings.TrimSpace(s); s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, malformed("capacity %q", s)
		}
		return n, nil
	}
	first, err := parse(p.Capacity1st)
	if err != nil {
		return nil, err
	}
	second, err := parse(p.Capacity2nd)
	if err != nil {
		return nil, err
	}
	if first > 0 || second > 0 {
		return []int{first, second}, nil
	}
	return nil, nil
}

func (d *Decoder) xmlSection(s *xmlConSection, date time.Time, legs []models.Leg) ([]models.Leg, error) {
	if s.Departure == nil || s.Departure.Dep == nil {
		return nil, malformed("section without departure")
	}
	if s.Arrival == nil || s.Arrival.Arr == nil {
		return nil, malformed("section without arrival")
	}

	departure, err := d.xmlLocation(s.Departure)
	if err != nil {
		return nil, err
	}
	departureTime, err := xmlTime(date, s.Departure.Dep.Time)
	if err != nil {
		return nil, err
	}
	arrival, err := d.xmlLocation(s.Arrival)
	if err != nil {
		return nil, err
	}
	arrivalTime, err := xmlTime(date, s.Arrival.Arr.Time)
	if err != nil {
		return nil, err
	}

	var path []models.Point
	if s.Polyline != nil {
		path = make([]models.Point, 0, len(s.Polyline.Points))
		for _, p := range s.Polyline.Points {
			x, errX := strconv.Atoi(p.X)
			y, errY := strconv.Atoi(p.Y)
			if errX != nil || errY != nil {
				return nil, malformed("polyline point %q,%q", p.X, p.Y)
			}
			path = append(path, models.Point{Lat: int32(y), Lon: int32(x)})
		}
	}

	if s.Journey == nil {
		var kind models.IndividualKind
		var gis *xmlGis
		switch {
		case s.Walk != nil:
			kind, gis = models.IndividualWalk, s.Walk
		case s.Transfer != nil:
			kind, gis = models.IndividualTransfer, s.Transfer
		case s.GisRoute != nil:
			kind, gis = models.IndividualWalk, s.GisRoute
		default:
			return nil, malformed("section is neither journey nor individual movement")
		}
		if gis.Duration == nil {
			return nil, malformed("individual section without duration")
		}
		return models.AppendIndividual(legs, &models.IndividualLeg{
			Kind:   kind,
			From:   departure,
			Depart: departureTime,
			To:     arrival,
			Arrive: arrivalTime,
			Path:   path,
		}), nil
	}

	var (
		wheelchair            bool
		name, category, short string
		destination           *models.Location
	)
	for _, a := range s.Journey.Attributes {
		switch {
		case a.Code == "bf":
			wheelchair = true
		case a.Type == "NAME":
			name = a.variant("NORMAL")
		case a.Type == "CATEGORY":
			short = a.variant("SHORT")
			category = a.variant("NORMAL")
		case a.Type == "DIRECTION":
			dest := d.anyPlace(a.variant("NORMAL"))
			destination = &dest
		}
	}
	if category == "" {
		category = short
	}
	line, err := d.ParseLine(category, name, wheelchair)
	if err != nil {
		return nil, err
	}

	var intermediate []models.Stop
	if s.Journey.PassList != nil {
		if intermediate, err = d.xmlPassList(s.Journey.PassList, date, departure, arrival); err != nil {
			return nil, err
		}
	}

	return append(legs, &models.PublicLeg{
		Line:        line,
		Destination: destination,
		DepartureStop: models.Stop{
			Location:                 departure,
			PlannedDeparture:         departureTime,
			PlannedDeparturePosition: NormalizePosition(s.Departure.Dep.Platform),
		},
		ArrivalStop: models.Stop{
			Location:               arrival,
			PlannedArrival:         arrivalTime,
			PlannedArrivalPosition: NormalizePosition(s.Arrival.Arr.Platform),
		},
		IntermediateStops: intermediate,
		Path:              path,
	}), nil
}

func (d *Decoder) xmlPassList(p *xmlPassList, date time.Time, departure, arrival models.Location) ([]models.Stop, error) {
	stops := make([]models.Stop, 0, len(p.Stops))
	for i := range p.Stops {
		bs := &p.Stops[i]
		location, err := d.xmlLocation(bs)
		if err != nil {
			return nil, err
		}
		if departure.HasID() && location.ID == departure.ID {
			continue
		}

		stop := models.Stop{Location: location}
		if bs.Arr != nil {
			if stop.PlannedArrival, err = xmlTime(date, bs.Arr.Time); err != nil {
				return nil, err
			}
			stop.PlannedArrivalPosition = NormalizePosition(bs.Arr.Platform)
		}
		if bs.Dep != nil {
			if stop.PlannedDeparture, err = xmlTime(date, bs.Dep.Time); err != nil {
				return nil, err
			}
			stop.PlannedDeparturePosition = NormalizePosition(bs.Dep.Platform)
		}
		stops = append(stops, stop)
	}

	if n := len(stops); n > 0 && stops[n-1].Location.Equal(arrival) {
		stops = stops[:n-1]
	}
	return stops, nil
}

func (d *Decoder) xmlLocation(bs *xmlBasicStop) (models.Location, error) {
	var l *xmlLocation
	var kind models.LocationType
	switch {
	case bs.Station != nil:
		l, kind = bs.Station, models.LocationStation
	case bs.Poi != nil:
		l, kind = bs.Poi, models.LocationPOI
	case bs.Address != nil:
		l, kind = bs.Address, models.LocationAddress
	default:
		return models.Location{}, malformed("stop without location")
	}

	x, errX := strconv.Atoi(strings.TrimSpace(l.X))
	y, errY := strconv.Atoi(strings.TrimSpace(l.Y))
	if errX != nil || errY != nil {
		return models.Location{}, malformed("coordinates %q,%q of %q", l.X, l.Y, l.Name)
	}
	name := strings.TrimSpace(l.Name)

	switch kind {
	case models.LocationStation:
		return d.station(l.ExternalStationNr, int32(y), int32(x), name), nil
	case models.LocationPOI:
		if name == "unknown" {
			name = ""
		}
		return models.Location{Type: models.LocationPOI, Lat: int32(y), Lon: int32(x), Name: name}, nil
	default:
		if name == "unknown" {
			name = ""
		}
		return d.address("", int32(y), int32(x), name), nil
	}
}

func (d *Decoder) xmlDate(s string) (time.Time, error) {
	m := pXMLDate.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, malformed("date %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, d.cfg.Location), nil
}

// xmlTime resolves a "DDdHH:MM:SS" offset against the connection date.
func xmlTime(date time.Time, s string) (*time.Time, error) {
	m := pXMLTime.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, malformed("time %q", s)
	}
	days, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	t := time.Date(date.Year(), date.Month(), date.Day()+days, hours, minutes, seconds, 0, date.Location())
	return &t, nil
}
