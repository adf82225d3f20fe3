package restapi

import (
	"time"

	"github.com/twpayne/go-polyline"

	"transitdecode.org/hafas/internal/models"
	"transitdecode.org/hafas/internal/utils"
)

const (
	legTypePublic     = "public"
	legTypeIndividual = "individual"
)

type lineView struct {
	models.Line
	RouteType  *int     `json:"routeType,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
}

type legView struct {
	Type      string             `json:"type"`
	Direction string             `json:"direction,omitempty"`
	Path      *models.ShapeEntry `json:"path,omitempty"`

	// public
	Line              *lineView        `json:"line,omitempty"`
	Destination       *models.Location `json:"destination,omitempty"`
	DepartureStop     *models.Stop     `json:"departureStop,omitempty"`
	ArrivalStop       *models.Stop     `json:"arrivalStop,omitempty"`
	IntermediateStops []models.Stop    `json:"intermediateStops,omitempty"`
	Message           string           `json:"message,omitempty"`

	// individual
	Kind          string           `json:"kind,omitempty"`
	From          *models.Location `json:"from,omitempty"`
	To            *models.Location `json:"to,omitempty"`
	DepartureTime *time.Time       `json:"departureTime,omitempty"`
	ArrivalTime   *time.Time       `json:"arrivalTime,omitempty"`
	Distance      int              `json:"distance,omitempty"`
}

type tripView struct {
	ID            string             `json:"id,omitempty"`
	From          models.Location    `json:"from"`
	To            models.Location    `json:"to"`
	DepartureTime *time.Time         `json:"departureTime,omitempty"`
	ArrivalTime   *time.Time         `json:"arrivalTime,omitempty"`
	NumChanges    int                `json:"numChanges"`
	Capacity      []int              `json:"capacity,omitempty"`
	Legs          []legView          `json:"legs"`
	Path          *models.ShapeEntry `json:"path,omitempty"`
}

type tripsView struct {
	Status          models.Status            `json:"status"`
	From            *models.Location         `json:"from,omitempty"`
	Via             *models.Location         `json:"via,omitempty"`
	To              *models.Location         `json:"to,omitempty"`
	Trips           []tripView               `json:"trips"`
	Context         models.PaginationContext `json:"context,omitempty"`
	CanQueryLater   bool                     `json:"canQueryLater"`
	CanQueryEarlier bool                     `json:"canQueryEarlier"`
}

// encodePath turns a micro-degree point list into an encoded polyline.
func encodePath(points []models.Point) *models.ShapeEntry {
	if len(points) == 0 {
		return nil
	}
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{utils.Degrees(p.Lat), utils.Degrees(p.Lon)})
	}
	return &models.ShapeEntry{
		Points: string(polyline.EncodeCoords(coords)),
		Length: len(points),
	}
}

func newLineView(line models.Line) *lineView {
	v := &lineView{Line: line, Attributes: line.Attrs.Names()}
	if rt, ok := line.Product.RouteType(); ok {
		n := int(rt)
		v.RouteType = &n
	}
	return v
}

func direction(from, to models.Location) string {
	if !from.HasLocation() || !to.HasLocation() {
		return ""
	}
	return utils.CompassDirection(from.Lat, from.Lon, to.Lat, to.Lon)
}

func newLegView(leg models.Leg) legView {
	v := legView{Direction: direction(leg.Departure(), leg.Arrival())}
	switch l := leg.(type) {
	case *models.PublicLeg:
		v.Type = legTypePublic
		v.Line = newLineView(l.Line)
		v.Destination = l.Destination
		v.DepartureStop = &l.DepartureStop
		v.ArrivalStop = &l.ArrivalStop
		v.IntermediateStops = l.IntermediateStops
		v.Message = l.Message
		v.Path = encodePath(l.Path)
	case *models.IndividualLeg:
		v.Type = legTypeIndividual
		v.Kind = l.Kind.String()
		v.From = &l.From
		v.To = &l.To
		v.DepartureTime = l.Depart
		v.ArrivalTime = l.Arrive
		v.Distance = l.Distance
		v.Path = encodePath(l.Path)
	}
	return v
}

func newTripsView(result *models.TripsResult) tripsView {
	v := tripsView{
		Status:  result.Status,
		From:    result.From,
		Via:     result.Via,
		To:      result.To,
		Trips:   make([]tripView, 0, len(result.Trips)),
		Context: result.Context,
	}
	if result.Context != nil {
		v.CanQueryLater = result.Context.CanQueryLater()
		v.CanQueryEarlier = result.Context.CanQueryEarlier()
	}
	for _, trip := range result.Trips {
		tv := tripView{
			ID:            trip.ID,
			From:          trip.From,
			To:            trip.To,
			DepartureTime: trip.FirstDepartureTime(),
			ArrivalTime:   trip.LastArrivalTime(),
			NumChanges:    trip.NumChanges,
			Capacity:      trip.Capacity,
			Legs:          make([]legView, 0, len(trip.Legs)),
			Path:          encodePath(trip.Path),
		}
		for _, leg := range trip.Legs {
			tv.Legs = append(tv.Legs, newLegView(leg))
		}
		v.Trips = append(v.Trips, tv)
	}
	return v
}

func addLocation(refs *models.ReferencesModel, l *models.Location) {
	if l != nil {
		refs.AddStation(*l)
	}
}

func addStops(refs *models.ReferencesModel, stops ...models.Stop) {
	for _, s := range stops {
		refs.AddStation(s.Location)
	}
}

func tripsReferences(result *models.TripsResult) models.ReferencesModel {
	refs := models.NewEmptyReferences()
	addLocation(&refs, result.From)
	addLocation(&refs, result.Via)
	addLocation(&refs, result.To)
	for _, trip := range result.Trips {
		refs.AddStation(trip.From)
		refs.AddStation(trip.To)
		for _, leg := range trip.Legs {
			switch l := leg.(type) {
			case *models.PublicLeg:
				refs.AddProduct(l.Line.Product)
				addLocation(&refs, l.Destination)
				addStops(&refs, l.DepartureStop)
				addStops(&refs, l.IntermediateStops...)
				addStops(&refs, l.ArrivalStop)
			case *models.IndividualLeg:
				refs.AddStation(l.From)
				refs.AddStation(l.To)
			}
		}
	}
	return refs
}

type departureView struct {
	models.Departure
	Line *lineView `json:"line"`
}

type stationDeparturesView struct {
	Location   models.Location `json:"location"`
	Departures []departureView `json:"departures"`
}

type departuresView struct {
	Status            models.Status           `json:"status"`
	StationDepartures []stationDeparturesView `json:"stationDepartures"`
}

func newDeparturesView(result *models.DeparturesResult) (departuresView, models.ReferencesModel, int) {
	refs := models.NewEmptyReferences()
	v := departuresView{
		Status:            result.Status,
		StationDepartures: make([]stationDeparturesView, 0, len(result.StationDepartures)),
	}
	count := 0
	for _, group := range result.StationDepartures {
		refs.AddStation(group.Location)
		gv := stationDeparturesView{
			Location:   group.Location,
			Departures: make([]departureView, 0, len(group.Departures)),
		}
		for _, dep := range group.Departures {
			refs.AddStation(dep.Destination)
			refs.AddProduct(dep.Line.Product)
			gv.Departures = append(gv.Departures, departureView{Departure: dep, Line: newLineView(dep.Line)})
		}
		count += len(group.Departures)
		v.StationDepartures = append(v.StationDepartures, gv)
	}
	return v, refs, count
}

func suggestionsReferences(result *models.SuggestLocationsResult) models.ReferencesModel {
	refs := models.NewEmptyReferences()
	for _, s := range result.Locations {
		refs.AddStation(s.Location)
	}
	return refs
}

func nearbyReferences(result *models.NearbyStationsResult) models.ReferencesModel {
	refs := models.NewEmptyReferences()
	for _, s := range result.Stations {
		refs.AddStation(s.Location)
	}
	return refs
}
