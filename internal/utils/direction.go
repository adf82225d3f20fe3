package utils

import (
	"math"
)

// Degrees converts a micro-degree coordinate into degrees.
func Degrees(microDegrees int32) float64 {
	return float64(microDegrees) / 1e6
}

// Bearing is the initial great-circle bearing in degrees from point 1 to
// point 2, both given in micro-degrees.
func Bearing(lat1, lon1, lat2, lon2 int32) float64 {
	phi1 := Degrees(lat1) * math.Pi / 180
	phi2 := Degrees(lat2) * math.Pi / 180
	deltaLon := (Degrees(lon2) - Degrees(lon1)) * math.Pi / 180

	y := math.Sin(deltaLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLon)

	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// BearingToCompass converts a bearing (0-360°) to 8-point compass direction
func BearingToCompass(bearing float64) string {
	return compassPoints[int((bearing+22.5)/45.0)%8]
}

// CompassDirection is the compass point of travel between two micro-degree
// coordinates, or "" when both are the same point.
func CompassDirection(lat1, lon1, lat2, lon2 int32) string {
	if lat1 == lat2 && lon1 == lon2 {
		return ""
	}
	return BearingToCompass(Bearing(lat1, lon1, lat2, lon2))
}
