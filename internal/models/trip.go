package models

import "time"

// Stop is a call at a location with planned and realtime times and platforms.
// Nil times and positions are absent.
type Stop struct {
	Location                   Location   `json:"location"`
	PlannedArrival             *time.Time `json:"plannedArrival,omitempty"`
	PredictedArrival           *time.Time `json:"predictedArrival,omitempty"`
	PlannedArrivalPosition     *Position  `json:"plannedArrivalPosition,omitempty"`
	PredictedArrivalPosition   *Position  `json:"predictedArrivalPosition,omitempty"`
	ArrivalCancelled           bool       `json:"arrivalCancelled,omitempty"`
	PlannedDeparture           *time.Time `json:"plannedDeparture,omitempty"`
	PredictedDeparture         *time.Time `json:"predictedDeparture,omitempty"`
	PlannedDeparturePosition   *Position  `json:"plannedDeparturePosition,omitempty"`
	PredictedDeparturePosition *Position  `json:"predictedDeparturePosition,omitempty"`
	DepartureCancelled         bool       `json:"departureCancelled,omitempty"`
}

func (s Stop) ArrivalTime() *time.Time {
	if s.PredictedArrival != nil {
		return s.PredictedArrival
	}
	return s.PlannedArrival
}

func (s Stop) DepartureTime() *time.Time {
	if s.PredictedDeparture != nil {
		return s.PredictedDeparture
	}
	return s.PlannedDeparture
}

// Point is a path vertex in micro-degrees.
type Point struct {
	Lat int32 `json:"lat"`
	Lon int32 `json:"lon"`
}

// Leg is one movement of a trip, either PublicLeg or IndividualLeg.
type Leg interface {
	Departure() Location
	Arrival() Location
	DepartureTime() *time.Time
	ArrivalTime() *time.Time
}

type PublicLeg struct {
	Line              Line      `json:"line"`
	Destination       *Location `json:"destination,omitempty"`
	DepartureStop     Stop      `json:"departureStop"`
	ArrivalStop       Stop      `json:"arrivalStop"`
	IntermediateStops []Stop    `json:"intermediateStops,omitempty"`
	Path              []Point   `json:"-"`
	Message           string    `json:"message,omitempty"`
}

func (l *PublicLeg) Departure() Location       { return l.DepartureStop.Location }
func (l *PublicLeg) Arrival() Location         { return l.ArrivalStop.Location }
func (l *PublicLeg) DepartureTime() *time.Time { return l.DepartureStop.DepartureTime() }
func (l *PublicLeg) ArrivalTime() *time.Time   { return l.ArrivalStop.ArrivalTime() }

type IndividualKind int

const (
	IndividualWalk IndividualKind = iota
	IndividualTransfer
	IndividualBike
	IndividualCar
)

func (k IndividualKind) String() string {
	switch k {
	case IndividualTransfer:
		return "transfer"
	case IndividualBike:
		return "bike"
	case IndividualCar:
		return "car"
	default:
		return "walk"
	}
}

func (k IndividualKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type IndividualLeg struct {
	Kind     IndividualKind `json:"kind"`
	From     Location       `json:"from"`
	Depart   *time.Time     `json:"departureTime,omitempty"`
	To       Location       `json:"to"`
	Arrive   *time.Time     `json:"arrivalTime,omitempty"`
	Path     []Point        `json:"-"`
	Distance int            `json:"distance,omitempty"`
}

func (l *IndividualLeg) Departure() Location       { return l.From }
func (l *IndividualLeg) Arrival() Location         { return l.To }
func (l *IndividualLeg) DepartureTime() *time.Time { return l.Depart }
func (l *IndividualLeg) ArrivalTime() *time.Time   { return l.Arrive }

// AppendIndividual appends leg to legs, merging it into the last leg when that
// is an individual movement of the same kind.
func AppendIndividual(legs []Leg, leg *IndividualLeg) []Leg {
	if n := len(legs); n > 0 {
		if last, ok := legs[n-1].(*IndividualLeg); ok && last.Kind == leg.Kind {
			merged := &IndividualLeg{
				Kind:   leg.Kind,
				From:   last.From,
				Depart: last.Depart,
				To:     leg.To,
				Arrive: leg.Arrive,
			}
			if len(last.Path) > 0 || len(leg.Path) > 0 {
				merged.Path = append(append([]Point{}, last.Path...), leg.Path...)
			}
			legs[n-1] = merged
			return legs
		}
	}
	return append(legs, leg)
}

type Trip struct {
	ID         string   `json:"id,omitempty"`
	From       Location `json:"from"`
	To         Location `json:"to"`
	Legs       []Leg    `json:"-"`
	Path       []Point  `json:"-"`
	Capacity   []int    `json:"capacity,omitempty"`
	NumChanges int      `json:"numChanges"`
}

func (t Trip) FirstDepartureTime() *time.Time {
	for _, leg := range t.Legs {
		if tm := leg.DepartureTime(); tm != nil {
			return tm
		}
	}
	return nil
}

func (t Trip) LastArrivalTime() *time.Time {
	for i := len(t.Legs) - 1; i >= 0; i-- {
		if tm := t.Legs[i].ArrivalTime(); tm != nil {
			return tm
		}
	}
	return nil
}

type Departure struct {
	PlannedTime   time.Time  `json:"plannedTime"`
	PredictedTime *time.Time `json:"predictedTime,omitempty"`
	Line          Line       `json:"line"`
	Position      *Position  `json:"position,omitempty"`
	Destination   Location   `json:"destination"`
	Capacity      []int      `json:"capacity,omitempty"`
	Message       string     `json:"message,omitempty"`
}

type StationDepartures struct {
	Location   Location    `json:"location"`
	Departures []Departure `json:"departures"`
}

type SuggestedLocation struct {
	Location Location `json:"location"`
	Priority int      `json:"priority"`
}

type NearbyStation struct {
	Location Location `json:"location"`
	Weight   int      `json:"weight"`
}
