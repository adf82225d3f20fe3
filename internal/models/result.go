package models

// Status is the semantic outcome of a decoded response. Anything other than
// StatusOK means the backend answered but had nothing usable to offer.
type Status string

const (
	StatusOK                  Status = "OK"
	StatusNoTrips             Status = "NO_TRIPS"
	StatusAmbiguous           Status = "AMBIGUOUS"
	StatusUnknownFrom         Status = "UNKNOWN_FROM"
	StatusUnknownVia          Status = "UNKNOWN_VIA"
	StatusUnknownTo           Status = "UNKNOWN_TO"
	StatusInvalidDate         Status = "INVALID_DATE"
	StatusTooClose            Status = "TOO_CLOSE"
	StatusUnresolvableAddress Status = "UNRESOLVABLE_ADDRESS"
	StatusServiceDown         Status = "SERVICE_DOWN"
	StatusInvalidStation      Status = "INVALID_STATION"
)

type TripsResult struct {
	Status  Status            `json:"status"`
	From    *Location         `json:"from,omitempty"`
	Via     *Location         `json:"via,omitempty"`
	To      *Location         `json:"to,omitempty"`
	Trips   []Trip            `json:"trips"`
	Context PaginationContext `json:"context,omitempty"`
}

func NewTripsStatus(status Status) *TripsResult {
	return &TripsResult{Status: status}
}

type DeparturesResult struct {
	Status            Status              `json:"status"`
	StationDepartures []StationDepartures `json:"stationDepartures"`
}

// FindStationDepartures returns the group for location, or nil.
func (r *DeparturesResult) FindStationDepartures(location Location) *StationDepartures {
	for i := range r.StationDepartures {
		if r.StationDepartures[i].Location.Equal(location) {
			return &r.StationDepartures[i]
		}
	}
	return nil
}

type SuggestLocationsResult struct {
	Status    Status              `json:"status"`
	Locations []SuggestedLocation `json:"locations"`
}

type NearbyStationsResult struct {
	Status   Status          `json:"status"`
	Stations []NearbyStation `json:"stations"`
}
