package models

import (
	"errors"
	"fmt"
	"slices"
)

type LocationType int

const (
	LocationAny LocationType = iota
	LocationStation
	LocationAddress
	LocationPOI
)

func (t LocationType) String() string {
	switch t {
	case LocationStation:
		return "station"
	case LocationAddress:
		return "address"
	case LocationPOI:
		return "poi"
	default:
		return "any"
	}
}

func (t LocationType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ErrPlaceWithoutName is returned when a location carries a place but no name.
var ErrPlaceWithoutName = errors.New("location has place but no name")

// Location is a place in a backend's network. Coordinates are micro-degrees
// (degrees * 1e6), zero meaning unknown.
type Location struct {
	Type  LocationType `json:"type"`
	ID    string       `json:"id,omitempty"`
	Lat   int32        `json:"lat,omitempty"`
	Lon   int32        `json:"lon,omitempty"`
	Place string       `json:"place,omitempty"`
	Name  string       `json:"name,omitempty"`
}

func NewLocation(locationType LocationType, id string, lat, lon int32, place, name string) (Location, error) {
	if name == "" && place != "" {
		return Location{}, fmt.Errorf("%w: place %q", ErrPlaceWithoutName, place)
	}
	return Location{
		Type:  locationType,
		ID:    id,
		Lat:   lat,
		Lon:   lon,
		Place: place,
		Name:  name,
	}, nil
}

// NewStation builds an unpositioned station known only by its id.
func NewStation(id string) Location {
	return Location{Type: LocationStation, ID: id}
}

func (l Location) HasID() bool {
	return l.ID != ""
}

func (l Location) HasLocation() bool {
	return l.Lat != 0 || l.Lon != 0
}

func (l Location) IsIdentified() bool {
	switch l.Type {
	case LocationStation:
		return l.HasID()
	case LocationPOI:
		return true
	case LocationAddress:
		return l.HasLocation()
	default:
		return false
	}
}

// Equal compares by id when present, then by coordinates, then by name and place.
func (l Location) Equal(other Location) bool {
	if l.Type != other.Type {
		return false
	}
	if l.HasID() || other.HasID() {
		return l.ID == other.ID
	}
	if l.HasLocation() || other.HasLocation() {
		return l.Lat == other.Lat && l.Lon == other.Lon
	}
	return l.Name == other.Name && l.Place == other.Place
}

var nonUniqueNames = []string{
	"Bahnhof", "Bf", "Busbahnhof", "Dorf", "Hauptbahnhof", "Hbf", "Kirche",
	"Nord", "Ost", "Süd", "West", "ZOB", "Zentrum",
}

// UniqueShortName returns the name, prefixed with the place when the name alone
// is too generic to tell stations apart.
func (l Location) UniqueShortName() string {
	if l.Place != "" && l.Name != "" && slices.Contains(nonUniqueNames, l.Name) {
		return l.Place + ", " + l.Name
	}
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

func (l Location) String() string {
	s := l.Type.String()
	if l.HasID() {
		s += " " + l.ID
	}
	if l.HasLocation() {
		s += fmt.Sprintf(" %d/%d", l.Lat, l.Lon)
	}
	if name := l.UniqueShortName(); name != "" && name != l.ID {
		s += " " + name
	}
	return s
}
