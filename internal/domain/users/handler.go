package users

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/middleware"
	"pura-pata-api/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Perfil local sobre la identidad del proveedor externo
	r.Post("/auth/register", registerHandler(svc))
	r.Get("/auth/me", meHandler(svc))
	r.Post("/auth/sync", syncHandler(svc))

	r.Get("/users/me", meHandler(svc))
	r.Put("/users/me", updateMeHandler(svc))
	r.Get("/users/{userID}", getUserHandler(svc))
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	Location  *string   `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// registerHandler godoc
// @Summary Registrar perfil
// @Description Crea el perfil local. La autenticación la maneja el proveedor de identidad; si el request viene autenticado se usa su identidad como id. Email duplicado => 409.
// @Tags auth
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token (opcional)"
// @Param payload body ProfileInput true "Datos del perfil"
// @Success 201 {object} userResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "duplicate"
// @Router /auth/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ProfileInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}

		callerID := ""
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			callerID = claims.UserID
		}

		u, err := svc.Register(r.Context(), callerID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

// meHandler godoc
// @Summary Mi perfil
// @Description Perfil del usuario autenticado. 404 si todavía no se registró/sincronizó.
// @Tags users
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} userResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/me [get]
// @Router /auth/me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		u, err := svc.GetByID(r.Context(), claims.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// syncHandler godoc
// @Summary Sincronizar perfil
// @Description Upsert idempotente por identidad del token: crea el perfil si no existe o actualiza nombre, teléfono y ubicación.
// @Tags auth
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body ProfileInput true "Datos del perfil"
// @Success 200 {object} userResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "duplicate"
// @Router /auth/sync [post]
func syncHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		var in ProfileInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}

		u, err := svc.Sync(r.Context(), claims, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// updateMeHandler godoc
// @Summary Actualizar mi perfil
// @Description Actualización parcial del perfil propio. Enviar "" en phone/location los limpia.
// @Tags users
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body UpdateInput true "Campos a modificar"
// @Success 200 {object} userResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/me [put]
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.ErrUnauthorized)
			return
		}

		var in UpdateInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, err)
			return
		}

		u, err := svc.UpdateProfile(r.Context(), claims.UserID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// getUserHandler godoc
// @Summary Perfil público
// @Tags users
// @Produce json
// @Param userID path string true "ID del usuario"
// @Success 200 {object} userResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{userID} [get]
func getUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetByID(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}
