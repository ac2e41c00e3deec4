package dogs

import (
	"math"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/geo"
	"pura-pata-api/internal/domain/lifecycle"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ListFilter combina predicados con AND. Campos nil = sin filtrar.
// Status nil en el filtro público se completa con available (ver Normalize).
type ListFilter struct {
	Status   *lifecycle.Status
	Size     *Size
	Gender   *Gender
	Province *string
	AgeMin   *int
	AgeMax   *int

	// Radius se aplica en memoria DESPUÉS de offset/limit.
	// Un perro cercano fuera de la página nunca aparece (limitación conocida).
	Radius *geo.Radius

	Offset int
	Limit  int
}

// Normalize aplica defaults y valida rangos.
func (f *ListFilter) Normalize() error {
	if f.Status == nil {
		st := lifecycle.StatusAvailable
		f.Status = &st
	}
	if !f.Status.Valid() {
		return apperr.Invalid("status", "must be one of available, reserved, adopted")
	}
	if f.Size != nil && !f.Size.Valid() {
		return apperr.Invalid("size", "must be one of small, medium, large")
	}
	if f.Gender != nil && !f.Gender.Valid() {
		return apperr.Invalid("gender", "must be one of male, female")
	}
	if f.Offset < 0 {
		return apperr.Invalid("skip", "must be >= 0")
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return apperr.Invalid("limit", "must be between 1 and 100")
	}
	if f.AgeMin != nil && *f.AgeMin < 0 {
		return apperr.Invalid("age_min", "must be >= 0")
	}
	if f.AgeMax != nil && *f.AgeMax < 0 {
		return apperr.Invalid("age_max", "must be >= 0")
	}
	if f.Radius != nil {
		return validateRadius(*f.Radius)
	}
	return nil
}

func validateRadius(r geo.Radius) error {
	if !finite(r.KM) || r.KM < 0 {
		return apperr.Invalid("radius_km", "must be a finite number >= 0")
	}
	if !finite(r.Center.Lat) || r.Center.Lat < -90 || r.Center.Lat > 90 {
		return apperr.Invalid("latitude", "must be between -90 and 90")
	}
	if !finite(r.Center.Lon) || r.Center.Lon < -180 || r.Center.Lon > 180 {
		return apperr.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
