package dogs

import (
	"time"

	"pura-pata-api/internal/domain/geo"
	"pura-pata-api/internal/domain/lifecycle"
)

// Size define el tamaño del perro.
// @Enum small, medium, large
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Gender define el sexo del perro.
// @Enum male, female
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Dog es una publicación de adopción.
type Dog struct {
	ID          string
	PublisherID string

	Name        string
	AgeYears    int
	AgeMonths   int
	Breed       string
	Size        Size
	Gender      Gender
	Color       string
	Description *string

	Vaccinated   bool
	Sterilized   bool
	Dewormed     bool
	SpecialNeeds *string

	Latitude  float64
	Longitude float64
	Address   *string
	Province  *string

	ContactPhone string
	ContactEmail *string

	// Photos mantiene el orden en que se subieron (1..MaxPhotos).
	Photos      []string
	Certificate *string

	Status lifecycle.Status

	CreatedAt time.Time
	UpdatedAt time.Time
	AdoptedAt *time.Time
}

func (d Dog) Position() geo.Point {
	return geo.Point{Lat: d.Latitude, Lon: d.Longitude}
}

// Files devuelve las URLs de archivos guardados (fotos + certificado).
func (d Dog) Files() []string {
	out := make([]string, 0, len(d.Photos)+1)
	out = append(out, d.Photos...)
	if d.Certificate != nil && *d.Certificate != "" {
		out = append(out, *d.Certificate)
	}
	return out
}

// Publisher es el resumen del usuario que publicó.
// Phone solo se llena en el detalle.
type Publisher struct {
	ID    string
	Name  string
	Email string
	Phone *string
}

// WithPublisher es una publicación enriquecida; Publisher nil si el usuario ya no existe.
type WithPublisher struct {
	Dog
	Publisher *Publisher
}
