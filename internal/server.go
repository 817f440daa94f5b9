package internal

import (
	"embed"
	"errors"
	"net/http"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/config"
	"era-vendors-api/internal/handlers"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	Router     *chi.Mux
	Vendors    store.VendorStore
	Users      store.UserStore
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Logger     *zap.Logger

	validate *validator.Validate
}

// NewServer wires the routes over the given stores. A nil logger discards logs.
func NewServer(cfg *config.Config, vendors store.VendorStore, users store.UserStore, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vendors == nil || users == nil {
		return nil, errors.New("vendor and user stores are required")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	s := &Server{
		Router:     chi.NewRouter(),
		Vendors:    vendors,
		Users:      users,
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(requestLogger(logger.Named("http")))
	s.Router.Use(middleware.Recoverer)
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Public routes
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Post("/auth/login", s.loginUser)
	if cfg.EnableDocs {
		s.mountDocs(s.Router)
	}

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s, nil
}

const docsPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Era Vendors API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({ url: '/openapi.yaml', dom_id: '#swagger-ui', deepLinking: true });
        };
    </script>
</body>
</html>`

// mountDocs serves the OpenAPI description of the API
func (s *Server) mountDocs(mux *chi.Mux) {
	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		s.writeDocument(w, r, "application/x-yaml", data)
	})

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		s.writeDocument(w, r, "text/html; charset=utf-8", []byte(docsPage))
	})
}

// writeDocument sends a static body. Once writing started the status is sent, so a failure is only logged.
func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(data); err != nil {
		s.Logger.Warn("write document failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// mountProtectedRoutes mounts all routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	writers := auth.MustRole(models.RoleEditor, models.RoleAdmin)
	admins := auth.MustRole(models.RoleAdmin)

	r.Get("/vendors", s.listVendors)
	r.Get("/vendors/{id}", s.getVendor)
	r.Get("/vendors/{id}/history", s.getVendorHistory)
	r.With(writers).Post("/vendors", s.createVendor)
	r.With(writers).Put("/vendors/{id}", s.updateVendor)
	r.With(admins).Post("/vendors/bulk-delete", s.bulkDeleteVendors)
	r.With(admins).Delete("/vendors/{id}", s.deleteVendor)

	importsHandler := handlers.NewImportsHandler(s.Vendors, s.Logger.Named("import"))
	importsHandler.OnImported = func(n int) { s.Metrics.RecordMutation("import", n) }
	r.With(writers).Post("/vendors/import", importsHandler.UploadExcel)

	r.Get("/auth/profile", s.getUserProfile)
}
