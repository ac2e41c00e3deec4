package dogs

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/domain/geo"
	"pura-pata-api/internal/domain/lifecycle"
	"pura-pata-api/internal/middleware"
	"pura-pata-api/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Lectura pública
	r.Get("/dogs", listDogsHandler(svc))
	r.Get("/dogs/{dogID}", getDogHandler(svc))

	// Mutaciones (solo el publicador)
	r.Post("/dogs", createDogHandler(svc))
	r.Put("/dogs/{dogID}", updateDogHandler(svc))
	r.Patch("/dogs/{dogID}/status", changeStatusHandler(svc))
	r.Delete("/dogs/{dogID}", deleteDogHandler(svc))

	// Publicaciones por usuario
	r.Get("/users/me/dogs", listMyDogsHandler(svc))
	r.Get("/users/{userID}/dogs", listUserDogsHandler(svc))
}

type dogResponse struct {
	ID          string  `json:"id"`
	PublisherID string  `json:"publisher_id"`
	Name        string  `json:"name"`
	AgeYears    int     `json:"age_years"`
	AgeMonths   int     `json:"age_months"`
	Breed       string  `json:"breed"`
	Size        Size    `json:"size" enums:"small,medium,large"`
	Gender      Gender  `json:"gender" enums:"male,female"`
	Color       string  `json:"color"`
	Description *string `json:"description"`

	Vaccinated   bool    `json:"vaccinated"`
	Sterilized   bool    `json:"sterilized"`
	Dewormed     bool    `json:"dewormed"`
	SpecialNeeds *string `json:"special_needs"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address"`
	Province  *string `json:"province"`

	ContactPhone string  `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`

	Photos      []string `json:"photos"`
	Certificate *string  `json:"certificate"`

	Status    lifecycle.Status `json:"status" enums:"available,reserved,adopted"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	AdoptedAt *time.Time       `json:"adopted_at"`
}

type publisherResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// dogWithPublisherResponse agrega el resumen del publicador (null si ya no existe).
type dogWithPublisherResponse struct {
	dogResponse
	Publisher *publisherResponse `json:"publisher"`
}

type changeStatusRequest struct {
	Status string `json:"status" enums:"available,reserved,adopted"`
}

// listDogsHandler godoc
// @Summary Listar publicaciones
// @Description Lista publicaciones filtradas (AND). Por defecto solo `available`. Orden: más recientes primero. El filtro por radio se aplica sobre la página ya paginada: requiere latitude, longitude y radius_km juntos. Público.
// @Tags dogs
// @Produce json
// @Param status query string false "available | reserved | adopted (default available)"
// @Param size query string false "small | medium | large"
// @Param gender query string false "male | female"
// @Param province query string false "Provincia exacta"
// @Param age_min query int false "Edad mínima en años (inclusive)"
// @Param age_max query int false "Edad máxima en años (inclusive)"
// @Param latitude query number false "Latitud de referencia"
// @Param longitude query number false "Longitud de referencia"
// @Param radius_km query number false "Radio en km"
// @Param skip query int false "Offset (default 0)"
// @Param limit query int false "1-100 (default 50)"
// @Success 200 {array} dogWithPublisherResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /dogs [get]
func listDogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r.URL.Query())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.List(r.Context(), filter)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]dogWithPublisherResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toDogWithPublisherResponse(it))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getDogHandler godoc
// @Summary Detalle de publicación
// @Description Devuelve la publicación con el publicador, incluyendo su teléfono. Público.
// @Tags dogs
// @Produce json
// @Param dogID path string true "ID de la publicación"
// @Success 200 {object} dogWithPublisherResponse
// @Failure 404 {object} httpx.ErrorResponse "dog not found"
// @Router /dogs/{dogID} [get]
func getDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Get(r.Context(), chi.URLParam(r, "dogID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDogWithPublisherResponse(d))
	}
}

// createDogHandler godoc
// @Summary Crear publicación
// @Description Crea una publicación en estado `available` y su primer registro de historial. Requiere 1 a 5 fotos ya subidas. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags dogs
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body CreateInput true "Datos de la publicación"
// @Success 201 {object} dogResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse "user not found"
// @Router /dogs [post]
func createDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		var in CreateInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}

		d, err := svc.Create(r.Context(), claims.UserID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toDogResponse(d))
	}
}

// updateDogHandler godoc
// @Summary Actualizar publicación
// @Description Actualización parcial: solo cambian los campos enviados. Los opcionales aceptan null para limpiar. `photos` reemplaza la lista completa. Solo el publicador.
// @Tags dogs
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param dogID path string true "ID de la publicación"
// @Param payload body UpdateInput true "Campos a modificar"
// @Success 200 {object} dogResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /dogs/{dogID} [put]
func updateDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		dogID := chi.URLParam(r, "dogID")

		// Permisos primero: un no-dueño recibe 403 aunque el body sea inválido.
		if _, err := svc.AuthorizeOwner(r.Context(), dogID, claims.UserID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var in UpdateInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}

		d, err := svc.Update(r.Context(), dogID, claims.UserID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDogResponse(d))
	}
}

// changeStatusHandler godoc
// @Summary Cambiar estado
// @Description available <-> reserved, cualquiera -> adopted. adopted es terminal (409). Pedir el estado actual no genera historial. Solo el publicador.
// @Tags dogs
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param dogID path string true "ID de la publicación"
// @Param payload body changeStatusRequest true "Nuevo estado"
// @Success 200 {object} dogResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "status_conflict"
// @Router /dogs/{dogID}/status [patch]
func changeStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		dogID := chi.URLParam(r, "dogID")
		if _, err := svc.AuthorizeOwner(r.Context(), dogID, claims.UserID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req changeStatusRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		to, err := lifecycle.Parse(req.Status)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		d, err := svc.ChangeStatus(r.Context(), dogID, claims.UserID, to)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDogResponse(d))
	}
}

// deleteDogHandler godoc
// @Summary Eliminar publicación
// @Description Borra la publicación y su historial; luego intenta borrar fotos y certificado del storage. Solo el publicador.
// @Tags dogs
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param dogID path string true "ID de la publicación"
// @Success 204
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /dogs/{dogID} [delete]
func deleteDogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "dogID"), claims.UserID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listMyDogsHandler godoc
// @Summary Mis publicaciones
// @Description Publicaciones del usuario autenticado, en cualquier estado salvo que se filtre.
// @Tags users
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param status query string false "available | reserved | adopted"
// @Success 200 {array} dogResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /users/me/dogs [get]
func listMyDogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		var status *lifecycle.Status
		if v := firstQuery(r.URL.Query(), "status", "status_filter"); v != "" {
			st, err := lifecycle.Parse(v)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			status = &st
		}

		items, err := svc.ListByPublisher(r.Context(), claims.UserID, status)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDogResponses(items))
	}
}

// listUserDogsHandler godoc
// @Summary Publicaciones de un usuario
// @Description Solo las publicaciones `available` del usuario indicado. Público.
// @Tags users
// @Produce json
// @Param userID path string true "ID del usuario"
// @Success 200 {array} dogResponse
// @Failure 404 {object} httpx.ErrorResponse "user not found"
// @Router /users/{userID}/dogs [get]
func listUserDogsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListAvailableByPublisher(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDogResponses(items))
	}
}

func parseListFilter(q url.Values) (ListFilter, error) {
	var f ListFilter

	if v := firstQuery(q, "status", "status_filter"); v != "" {
		st, err := lifecycle.Parse(v)
		if err != nil {
			return ListFilter{}, err
		}
		f.Status = &st
	}
	if v := strings.ToLower(strings.TrimSpace(q.Get("size"))); v != "" {
		s := Size(v)
		f.Size = &s
	}
	if v := strings.ToLower(strings.TrimSpace(q.Get("gender"))); v != "" {
		g := Gender(v)
		f.Gender = &g
	}
	if v := strings.TrimSpace(q.Get("province")); v != "" {
		f.Province = &v
	}

	var err error
	if f.AgeMin, err = intParam(q, "age_min"); err != nil {
		return ListFilter{}, err
	}
	if f.AgeMax, err = intParam(q, "age_max"); err != nil {
		return ListFilter{}, err
	}

	offset, err := intParam(q, "skip", "offset")
	if err != nil {
		return ListFilter{}, err
	}
	if offset != nil {
		f.Offset = *offset
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return ListFilter{}, err
	}
	if limit != nil {
		if *limit == 0 {
			return ListFilter{}, apperr.Invalid("limit", "must be between 1 and 100")
		}
		f.Limit = *limit
	}

	lat, err := floatParam(q, "latitude", "lat")
	if err != nil {
		return ListFilter{}, err
	}
	lon, err := floatParam(q, "longitude", "lon")
	if err != nil {
		return ListFilter{}, err
	}
	radius, err := floatParam(q, "radius_km")
	if err != nil {
		return ListFilter{}, err
	}
	// el radio solo aplica con los tres parámetros
	if lat != nil && lon != nil && radius != nil {
		f.Radius = &geo.Radius{Center: geo.Point{Lat: *lat, Lon: *lon}, KM: *radius}
	}

	return f, nil
}

func firstQuery(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func intParam(q url.Values, keys ...string) (*int, error) {
	v := firstQuery(q, keys...)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperr.Invalid(keys[0], "must be an integer")
	}
	return &n, nil
}

func floatParam(q url.Values, keys ...string) (*float64, error) {
	v := firstQuery(q, keys...)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || !finite(n) {
		return nil, apperr.Invalid(keys[0], "must be a number")
	}
	return &n, nil
}

func toDogResponse(d Dog) dogResponse {
	photos := d.Photos
	if photos == nil {
		photos = []string{}
	}
	return dogResponse{
		ID:           d.ID,
		PublisherID:  d.PublisherID,
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
		Photos:       photos,
		Certificate:  d.Certificate,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		AdoptedAt:    d.AdoptedAt,
	}
}

func toDogResponses(items []Dog) []dogResponse {
	out := make([]dogResponse, 0, len(items))
	for _, d := range items {
		out = append(out, toDogResponse(d))
	}
	return out
}

func toDogWithPublisherResponse(d WithPublisher) dogWithPublisherResponse {
	out := dogWithPublisherResponse{dogResponse: toDogResponse(d.Dog)}
	if d.Publisher != nil {
		out.Publisher = &publisherResponse{
			ID:    d.Publisher.ID,
			Name:  d.Publisher.Name,
			Email: d.Publisher.Email,
			Phone: d.Publisher.Phone,
		}
	}
	return out
}
