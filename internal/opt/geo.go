package opt

import (
	"math"

	"fieldroute/internal/model"
)

const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between a and b.
func DistanceMiles(a, b model.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelTimeMinutes estimates driving time at a constant average speed,
// rounded up to the next whole minute.
func TravelTimeMinutes(a, b model.Coordinate, avgSpeedMph float64) int {
	if avgSpeedMph <= 0 {
		avgSpeedMph = DefaultConfig().AvgSpeedMph
	}
	return int(math.Ceil(DistanceMiles(a, b) / avgSpeedMph * 60))
}

// RouteMiles sums consecutive leg distances, starting with the leg from
// start (when known) to the first stop.
func RouteMiles(start *model.Coordinate, stops []Stop) float64 {
	if len(stops) == 0 {
		return 0
	}
	total := 0.0
	prev := stops[0].Loc
	if start != nil {
		prev = *start
	}
	for _, s := range stops {
		total += DistanceMiles(prev, s.Loc)
		prev = s.Loc
	}
	return total
}
