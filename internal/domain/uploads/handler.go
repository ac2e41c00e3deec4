package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/middleware"
	"pura-pata-api/internal/platform/httpx"
)

// multipartOverhead cubre boundaries y headers de cada parte.
const multipartOverhead = 1 << 20

// multipartMemory es lo que ParseMultipartForm guarda en memoria; el resto va a
// archivos temporales que readFiles borra al terminar.
var multipartMemory int64 = 32 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/uploads/photo", uploadPhotoHandler(svc))
	r.Post("/uploads/photos", uploadPhotosHandler(svc))
	r.Post("/uploads/certificate", uploadCertificateHandler(svc))
	r.Delete("/uploads/file", deleteFileHandler(svc))
	r.Delete("/uploads/files", deleteFilesHandler(svc))
}

type uploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type uploadManyResponse struct {
	URLs  []string `json:"urls"`
	Count int      `json:"count"`
}

type deleteFilesRequest struct {
	URLs []string `json:"urls"`
}

type deleteFilesResponse struct {
	Requested int `json:"requested"`
	Deleted   int `json:"deleted"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// uploadPhotoHandler godoc
// @Summary Subir foto
// @Description Sube una foto (.jpg/.jpeg/.png, image/jpeg o image/png, máx 5MB). Se verifica el contenido real del archivo.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param file formData file true "Imagen"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /uploads/photo [post]
func uploadPhotoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(w, r) {
			return
		}

		limit := svc.Rules().MaxImageBytes
		files, err := readFiles(w, r, "file", limit, limit+multipartOverhead)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if len(files) != 1 {
			httpx.WriteError(w, apperr.Invalid("file", "exactly one file is required"))
			return
		}

		st, err := svc.UploadPhoto(r.Context(), files[0])
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, uploadResponse{URL: st.URL, Filename: st.Filename})
	}
}

// uploadPhotosHandler godoc
// @Summary Subir varias fotos
// @Description Sube hasta 5 fotos en el campo `files`. Si alguna falla en el storage se omite; si fallan todas => 502.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param files formData file true "Imágenes"
// @Success 200 {object} uploadManyResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /uploads/photos [post]
func uploadPhotosHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(w, r) {
			return
		}

		rules := svc.Rules()
		// una foto de más permite responder 400 "máximo N" en vez de 413
		total := int64(rules.MaxPhotos+1)*rules.MaxImageBytes + multipartOverhead
		files, err := readFiles(w, r, "files", rules.MaxImageBytes, total)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		stored, err := svc.UploadPhotos(r.Context(), files)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		urls := make([]string, 0, len(stored))
		for _, st := range stored {
			urls = append(urls, st.URL)
		}
		httpx.WriteJSON(w, http.StatusOK, uploadManyResponse{URLs: urls, Count: len(urls)})
	}
}

// uploadCertificateHandler godoc
// @Summary Subir certificado veterinario
// @Description Sube un PDF (.pdf, application/pdf, máx 10MB).
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param file formData file true "Certificado PDF"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /uploads/certificate [post]
func uploadCertificateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(w, r) {
			return
		}

		limit := svc.Rules().MaxCertificateBytes
		files, err := readFiles(w, r, "file", limit, limit+multipartOverhead)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if len(files) != 1 {
			httpx.WriteError(w, apperr.Invalid("file", "exactly one file is required"))
			return
		}

		st, err := svc.UploadCertificate(r.Context(), files[0])
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, uploadResponse{URL: st.URL, Filename: st.Filename})
	}
}

// deleteFileHandler godoc
// @Summary Borrar archivo
// @Tags uploads
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param file_url query string true "URL pública del archivo"
// @Success 200 {object} messageResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /uploads/file [delete]
func deleteFileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(w, r) {
			return
		}

		if err := svc.DeleteFile(r.Context(), r.URL.Query().Get("file_url")); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
	}
}

// deleteFilesHandler godoc
// @Summary Borrar varios archivos
// @Description Best-effort: informa cuántos se borraron; las fallas no cortan el request.
// @Tags uploads
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body deleteFilesRequest true "URLs a borrar"
// @Success 200 {object} deleteFilesResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /uploads/files [delete]
func deleteFilesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authenticated(w, r) {
			return
		}

		var req deleteFilesRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		deleted := svc.DeleteFiles(r.Context(), req.URLs)
		httpx.WriteJSON(w, http.StatusOK, deleteFilesResponse{Requested: len(req.URLs), Deleted: deleted})
	}
}

func authenticated(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return false
	}
	return true
}

// readFiles lee las partes del campo field. Cada archivo se lee hasta perFile+1
// bytes para que el service pueda responder 413 sin cargar archivos enormes.
func readFiles(w http.ResponseWriter, r *http.Request, field string, perFile, total int64) ([]File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, total)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: request body exceeds %d MB", apperr.ErrTooLarge, total>>20)
		}
		return nil, apperr.Invalid(field, "invalid multipart form: "+err.Error())
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, apperr.Invalid(field, "is required")
	}

	out := make([]File, 0, len(headers))
	for _, h := range headers {
		f, err := readPart(h, perFile)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func readPart(h *multipart.FileHeader, perFile int64) (File, error) {
	src, err := h.Open()
	if err != nil {
		return File{}, apperr.Invalid("file", "cannot open file")
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, perFile+1))
	if err != nil {
		return File{}, apperr.Invalid("file", "cannot read file")
	}
	return File{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
