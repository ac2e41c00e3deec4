// Package geo calcula distancias sobre la esfera terrestre.
package geo

import "math"

// EarthRadiusKM es el radio medio usado por la fórmula de Haversine.
const EarthRadiusKM = 6371.0

// Point es una coordenada en grados decimales.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceKM devuelve la distancia de gran círculo entre a y b en kilómetros (Haversine).
func DistanceKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKM * c
}

// WithinRadius indica si p está a radiusKM o menos de center.
func WithinRadius(center, p Point, radiusKM float64) bool {
	return DistanceKM(center, p) <= radiusKM
}

// Radius es un filtro opcional por cercanía.
type Radius struct {
	Center Point
	KM     float64
}

// Filter conserva, en orden, los items cuya posición cae dentro del radio.
// Se aplica sobre una página ya cortada por offset/limit: no usa índice espacial.
func Filter[T any](items []T, r Radius, pos func(T) Point) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if WithinRadius(r.Center, pos(it), r.KM) {
			out = append(out, it)
		}
	}
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
