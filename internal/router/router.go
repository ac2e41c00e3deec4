package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "pura-pata-api/docs"
	objmem "pura-pata-api/internal/adapters/objectstore/memory"
	mem "pura-pata-api/internal/adapters/storage/memory"
	pg "pura-pata-api/internal/adapters/storage/postgres"
	"pura-pata-api/internal/config"
	"pura-pata-api/internal/domain/dogs"
	"pura-pata-api/internal/domain/history"
	"pura-pata-api/internal/domain/uploads"
	"pura-pata-api/internal/domain/users"
	"pura-pata-api/internal/middleware"
	"pura-pata-api/internal/platform/httpx"
	"pura-pata-api/internal/platform/logger"
	"pura-pata-api/internal/platform/metrics"
	"pura-pata-api/internal/ports/auth"
	"pura-pata-api/internal/ports/storage"
	"pura-pata-api/internal/ports/tx"
)

const Version = "1.0.0"

type Options struct {
	// Config nil => defaults (prefix /api/v1, límites de upload por defecto).
	Config *config.Config

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: si no viene, object store en memoria servido en /files/*.
	Storage storage.ObjectStorage

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

type repos struct {
	dogs    dogs.Repository
	history history.Repository
	users   users.Repository
	tx      tx.Manager
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			dogs:    pg.NewDogsRepo(db),
			history: pg.NewHistoryRepo(db),
			users:   pg.NewUsersRepo(db),
			tx:      pg.NewTxManager(db),
		}
	}

	hist := mem.NewHistoryRepo()
	return repos{
		dogs:    mem.NewDogRepo(hist),
		history: hist,
		users:   mem.NewUserRepo(),
		tx:      mem.NewTxManager(),
	}
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	prefix := "/api/v1"
	var rules uploads.Rules
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
	}
	var filesBaseURL string
	if cfg := opts.Config; cfg != nil {
		prefix = strings.TrimRight(cfg.Server.APIPrefix, "/")
		rules = uploads.Rules{
			MaxImageBytes:       cfg.Storage.MaxImageSize,
			MaxCertificateBytes: cfg.Storage.MaxCertificateSize,
			ImageTypes:          cfg.Storage.ImageTypes(),
			MaxPhotos:           cfg.Storage.MaxPhotosPerDog,
		}
		corsOpts.AllowedOrigins = cfg.CORS.Origins()
		corsOpts.AllowCredentials = cfg.CORS.AllowCredentials
		corsOpts.MaxAge = cfg.CORS.MaxAge
		filesBaseURL = cfg.Storage.PublicBaseURL
	}
	corsOpts.AllowedMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	corsOpts.AllowedHeaders = []string{"*"}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(cors.New(corsOpts).Handler)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Pura Pata API",
			"version": Version,
			"docs":    "/swagger/index.html",
		})
	})
	r.Get("/health", healthHandler(opts.DB))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Object storage: si no te pasan uno, in-memory y lo servimos nosotros
	store := opts.Storage
	if store == nil {
		memStore := objmem.New(filesBaseURL)
		r.Get("/files/*", filesHandler(memStore))
		store = memStore
	}

	rp := newRepos(opts.DB)

	// Services por módulo
	historySvc := history.NewService(rp.history)
	usersSvc := users.NewService(rp.users, log)
	uploadsSvc := uploads.NewService(store, rules, log, opts.Metrics)
	dogsSvc := dogs.NewService(dogs.Deps{
		Repo:       rp.dogs,
		History:    historySvc,
		Tx:         rp.tx,
		Publishers: usersSvc,
		Files:      store,
		Logger:     log,
		Metrics:    opts.Metrics,
		MaxPhotos:  uploadsSvc.Rules().MaxPhotos,
	})

	// Rutas por módulo
	api := func(api chi.Router) {
		users.RegisterRoutes(api, usersSvc)
		dogs.RegisterRoutes(api, dogsSvc)
		history.RegisterRoutes(api, historySvc, dogsSvc)
		uploads.RegisterRoutes(api, uploadsSvc)
	}
	if prefix == "" {
		r.Group(api)
	} else {
		r.Route(prefix, api)
	}

	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// filesHandler sirve el contenido del object store en memoria (solo dev).
func filesHandler(store *objmem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := store.Get(chi.URLParam(r, "*"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(obj.Content)
	}
}
