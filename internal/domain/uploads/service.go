package uploads

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/platform/logger"
	"pura-pata-api/internal/platform/metrics"
	"pura-pata-api/internal/ports/storage"
)

// Kind es el tipo de archivo que se sube.
type Kind string

const (
	KindPhoto       Kind = "photo"
	KindCertificate Kind = "certificate"
)

const (
	PhotosFolder       = "dogs/photos"
	CertificatesFolder = "dogs/certificates"

	DefaultMaxImageBytes       int64 = 5 << 20
	DefaultMaxCertificateBytes int64 = 10 << 20
)

var (
	imageExtensions    = []string{".jpg", ".jpeg", ".png"}
	documentExtensions = []string{".pdf"}
)

// Rules define los límites de subida.
type Rules struct {
	MaxImageBytes       int64
	MaxCertificateBytes int64
	ImageTypes          []string
	MaxPhotos           int
}

func (r Rules) withDefaults() Rules {
	if r.MaxImageBytes <= 0 {
		r.MaxImageBytes = DefaultMaxImageBytes
	}
	if r.MaxCertificateBytes <= 0 {
		r.MaxCertificateBytes = DefaultMaxCertificateBytes
	}
	if len(r.ImageTypes) == 0 {
		r.ImageTypes = []string{"image/jpeg", "image/png"}
	}
	if r.MaxPhotos <= 0 || r.MaxPhotos > 5 {
		r.MaxPhotos = 5
	}
	return r
}

// File es un archivo recibido por multipart.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Stored es el resultado de una subida.
type Stored struct {
	URL      string
	Filename string
}

type Service struct {
	store   storage.ObjectStorage
	rules   Rules
	log     logger.Logger
	metrics *metrics.Metrics

	newName func(ext string) string
}

func NewService(store storage.ObjectStorage, rules Rules, log logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		rules:   rules.withDefaults(),
		log:     log.With(map[string]any{"module": "uploads"}),
		metrics: m,
		newName: func(ext string) string { return uuid.NewString() + ext },
	}
}

func (s *Service) Rules() Rules { return s.rules }

func (s *Service) UploadPhoto(ctx context.Context, f File) (Stored, error) {
	ext, err := s.checkImage(f)
	if err != nil {
		return Stored{}, err
	}
	return s.put(ctx, KindPhoto, PhotosFolder, ext, f)
}

// UploadPhotos valida todo antes de subir. Las fallas individuales del storage
// se saltan; si no se subió ninguna => ErrUpstream.
func (s *Service) UploadPhotos(ctx context.Context, files []File) ([]Stored, error) {
	if len(files) == 0 {
		return nil, apperr.Invalid("files", "at least one file is required")
	}
	if len(files) > s.rules.MaxPhotos {
		return nil, apperr.Invalid("files", fmt.Sprintf("maximum %d photos allowed", s.rules.MaxPhotos))
	}

	exts := make([]string, len(files))
	for i, f := range files {
		ext, err := s.checkImage(f)
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}

	out := make([]Stored, 0, len(files))
	for i, f := range files {
		st, err := s.put(ctx, KindPhoto, PhotosFolder, exts[i], f)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: failed to upload files", apperr.ErrUpstream)
	}
	return out, nil
}

func (s *Service) UploadCertificate(ctx context.Context, f File) (Stored, error) {
	ext := strings.ToLower(path.Ext(f.Name))
	if !slices.Contains(documentExtensions, ext) {
		return Stored{}, apperr.Invalid("file", "invalid file type, must be PDF")
	}
	if baseType(f.ContentType) != "application/pdf" {
		return Stored{}, apperr.Invalid("file", "invalid content type, must be a PDF document")
	}
	if err := checkSize(f, s.rules.MaxCertificateBytes); err != nil {
		return Stored{}, err
	}
	if !mimetype.Detect(f.Content).Is("application/pdf") {
		return Stored{}, apperr.Invalid("file", "content is not a PDF document")
	}
	return s.put(ctx, KindCertificate, CertificatesFolder, ".pdf", f)
}

// DeleteFile borra una URL. Falla del storage => ErrUpstream.
func (s *Service) DeleteFile(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return apperr.Invalid("file_url", "is required")
	}
	if err := s.store.Delete(ctx, url); err != nil {
		s.metrics.FilesCleaned(false, 1)
		s.log.Warn("file delete failed", map[string]any{"url": url, "error": err.Error()})
		return fmt.Errorf("%w: failed to delete file: %v", apperr.ErrUpstream, err)
	}
	s.metrics.FilesCleaned(true, 1)
	return nil
}

// DeleteFiles es best-effort: devuelve cuántas URLs se borraron.
func (s *Service) DeleteFiles(ctx context.Context, urls []string) int {
	deleted := 0
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		if err := s.DeleteFile(ctx, u); err == nil {
			deleted++
		}
	}
	return deleted
}

func (s *Service) checkImage(f File) (string, error) {
	ext := strings.ToLower(path.Ext(f.Name))
	if !slices.Contains(imageExtensions, ext) {
		return "", apperr.Invalid("file", "invalid file type, allowed: "+strings.Join(imageExtensions, ", "))
	}
	declared := baseType(f.ContentType)
	if !slices.Contains(s.rules.ImageTypes, declared) {
		return "", apperr.Invalid("file", "invalid content type, must be an image")
	}
	if err := checkSize(f, s.rules.MaxImageBytes); err != nil {
		return "", err
	}
	// el content-type declarado lo manda el cliente; verificamos los bytes
	if detected := mimetype.Detect(f.Content); !slices.Contains(s.rules.ImageTypes, detected.String()) {
		return "", apperr.Invalid("file", "content does not match an allowed image type")
	}
	return ext, nil
}

func (s *Service) put(ctx context.Context, kind Kind, folder, ext string, f File) (Stored, error) {
	name := s.newName(ext)
	url, err := s.store.Upload(ctx, storage.Object{
		Path:        folder + "/" + name,
		ContentType: baseType(f.ContentType),
		Content:     f.Content,
	})
	if err != nil || strings.TrimSpace(url) == "" {
		s.metrics.Upload(string(kind), false)
		fields := map[string]any{"kind": string(kind), "file": f.Name}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.log.Error("upload failed", fields)
		return Stored{}, fmt.Errorf("%w: failed to upload file", apperr.ErrUpstream)
	}

	s.metrics.Upload(string(kind), true)
	return Stored{URL: url, Filename: name}, nil
}

func checkSize(f File, max int64) error {
	if int64(len(f.Content)) > max {
		return fmt.Errorf("%w: maximum allowed size is %d MB", apperr.ErrTooLarge, max>>20)
	}
	if len(f.Content) == 0 {
		return apperr.Invalid("file", "file is empty")
	}
	return nil
}

// baseType quita parámetros: "image/png; charset=x" -> "image/png".
func baseType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
