package models

// ShapeEntry is an encoded polyline as it appears in API responses.
type ShapeEntry struct {
	Points string `json:"points"`
	Length int    `json:"length"`
	Levels string `json:"levels"`
}
