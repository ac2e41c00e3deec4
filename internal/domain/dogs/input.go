package dogs

import (
	"encoding/json"
	"strings"
)

// CreateInput es el payload de alta. Las fotos ya vienen subidas (URLs).
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	AgeYears    int     `json:"age_years" validate:"gte=0,lte=30"`
	AgeMonths   int     `json:"age_months" validate:"gte=0,lte=11"`
	Breed       string  `json:"breed" validate:"required,max=100"`
	Size        Size    `json:"size" validate:"required,oneof=small medium large" enums:"small,medium,large"`
	Gender      Gender  `json:"gender" validate:"required,oneof=male female" enums:"male,female"`
	Color       string  `json:"color" validate:"required,max=50"`
	Description *string `json:"description,omitempty"`

	Vaccinated   bool    `json:"vaccinated"`
	Sterilized   bool    `json:"sterilized"`
	Dewormed     bool    `json:"dewormed"`
	SpecialNeeds *string `json:"special_needs,omitempty"`

	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Province  *string `json:"province,omitempty" validate:"omitempty,max=100"`

	ContactPhone string  `json:"contact_phone" validate:"required,max=20"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`

	Photos      []string `json:"photos" validate:"dive,required,url"`
	Certificate *string  `json:"certificate,omitempty" validate:"omitempty,url"`
}

// Optional distingue "campo no enviado" de "campo enviado como null".
// Present=false => no tocar; Present=true && Value=nil => limpiar.
type Optional[T any] struct {
	Present bool
	Value   *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Present = true
	if strings.TrimSpace(string(b)) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Set construye un Optional presente con valor (útil en tests y llamadas internas).
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

// Clear construye un Optional presente en null.
func Clear[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

// UpdateInput es un PATCH real sobre PUT /dogs/{id}:
// punteros nil = no tocar; los opcionales aceptan null para limpiar.
// Photos, si viene, reemplaza la lista completa.
type UpdateInput struct {
	Name      *string `json:"name"`
	AgeYears  *int    `json:"age_years"`
	AgeMonths *int    `json:"age_months"`
	Breed     *string `json:"breed"`
	Size      *Size   `json:"size" enums:"small,medium,large"`
	Gender    *Gender `json:"gender" enums:"male,female"`
	Color     *string `json:"color"`

	Description Optional[string] `json:"description" swaggertype:"string"`

	Vaccinated   *bool            `json:"vaccinated"`
	Sterilized   *bool            `json:"sterilized"`
	Dewormed     *bool            `json:"dewormed"`
	SpecialNeeds Optional[string] `json:"special_needs" swaggertype:"string"`

	Latitude  *float64         `json:"latitude"`
	Longitude *float64         `json:"longitude"`
	Address   Optional[string] `json:"address" swaggertype:"string"`
	Province  Optional[string] `json:"province" swaggertype:"string"`

	ContactPhone *string          `json:"contact_phone"`
	ContactEmail Optional[string] `json:"contact_email" swaggertype:"string"`

	Photos      []string         `json:"photos"`
	Certificate Optional[string] `json:"certificate" swaggertype:"string"`
}

// apply devuelve d con los campos presentes reemplazados.
func (in UpdateInput) apply(d Dog) Dog {
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.AgeYears != nil {
		d.AgeYears = *in.AgeYears
	}
	if in.AgeMonths != nil {
		d.AgeMonths = *in.AgeMonths
	}
	if in.Breed != nil {
		d.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Size != nil {
		d.Size = *in.Size
	}
	if in.Gender != nil {
		d.Gender = *in.Gender
	}
	if in.Color != nil {
		d.Color = strings.TrimSpace(*in.Color)
	}
	if in.Description.Present {
		d.Description = trimPtr(in.Description.Value)
	}
	if in.Vaccinated != nil {
		d.Vaccinated = *in.Vaccinated
	}
	if in.Sterilized != nil {
		d.Sterilized = *in.Sterilized
	}
	if in.Dewormed != nil {
		d.Dewormed = *in.Dewormed
	}
	if in.SpecialNeeds.Present {
		d.SpecialNeeds = trimPtr(in.SpecialNeeds.Value)
	}
	if in.Latitude != nil {
		d.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		d.Longitude = *in.Longitude
	}
	if in.Address.Present {
		d.Address = trimPtr(in.Address.Value)
	}
	if in.Province.Present {
		d.Province = trimPtr(in.Province.Value)
	}
	if in.ContactPhone != nil {
		d.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if in.ContactEmail.Present {
		d.ContactEmail = trimPtr(in.ContactEmail.Value)
	}
	if in.Photos != nil {
		d.Photos = append([]string(nil), in.Photos...)
	}
	if in.Certificate.Present {
		d.Certificate = trimPtr(in.Certificate.Value)
	}
	return d
}

// asInput permite revalidar el estado final de un update con las reglas del alta.
func (d Dog) asInput() CreateInput {
	return CreateInput{
		Name:         d.Name,
		AgeYears:     d.AgeYears,
		AgeMonths:    d.AgeMonths,
		Breed:        d.Breed,
		Size:         d.Size,
		Gender:       d.Gender,
		Color:        d.Color,
		Description:  d.Description,
		Vaccinated:   d.Vaccinated,
		Sterilized:   d.Sterilized,
		Dewormed:     d.Dewormed,
		SpecialNeeds: d.SpecialNeeds,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		Address:      d.Address,
		Province:     d.Province,
		ContactPhone: d.ContactPhone,
		ContactEmail: d.ContactEmail,
		Photos:       d.Photos,
		Certificate:  d.Certificate,
	}
}

// trimPtr recorta y convierte "" en nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
