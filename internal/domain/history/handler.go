package history

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pura-pata-api/internal/domain/lifecycle"
	"pura-pata-api/internal/platform/httpx"
)

// DogFinder confirma que la publicación existe.
// Se usa para evitar ciclos de imports entre módulos (dogs -> history).
type DogFinder interface {
	EnsureExists(ctx context.Context, dogID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, dogs DogFinder) {
	r.Get("/dogs/{dogID}/history", listHistoryHandler(svc, dogs))
}

// entryResponse es una entrada del historial de estados.
type entryResponse struct {
	ID        string            `json:"id"`
	OldStatus *lifecycle.Status `json:"old_status" enums:"available,reserved,adopted"`
	NewStatus lifecycle.Status  `json:"new_status" enums:"available,reserved,adopted"`
	ChangedAt time.Time         `json:"changed_at"`
}

// listHistoryHandler godoc
// @Summary Historial de estados de una publicación
// @Description Devuelve los cambios de estado de la publicación, el más reciente primero. Incluye el registro de creación (old_status null). Público.
// @Tags dogs
// @Produce json
// @Param dogID path string true "ID de la publicación"
// @Success 200 {array} entryResponse
// @Failure 404 {object} httpx.ErrorResponse "dog not found"
// @Failure 500 {object} httpx.ErrorResponse
// @Router /dogs/{dogID}/history [get]
func listHistoryHandler(svc *Service, dogs DogFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dogID := chi.URLParam(r, "dogID")
		if err := dogs.EnsureExists(r.Context(), dogID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.ListByDog(r.Context(), dogID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, entryResponse{
				ID:        e.ID,
				OldStatus: e.OldStatus,
				NewStatus: e.NewStatus,
				ChangedAt: e.ChangedAt,
			})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}
