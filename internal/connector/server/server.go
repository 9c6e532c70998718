// Package server provides the HTTP server of the IDE connector. It mounts the connector
// actions under the configured service path and adds version information and health check
// endpoints. CORS handling is optional.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/ideconnector/internal/common/httpx"
	"github.com/tansive/ideconnector/internal/common/logtrace"
	"github.com/tansive/ideconnector/internal/common/middleware"
	"github.com/tansive/ideconnector/internal/connector/config"
	"github.com/tansive/ideconnector/internal/connector/service"
	"github.com/tansive/ideconnector/pkg/api"
)

// ConnectorServer provides the main HTTP server of the connector.
type ConnectorServer struct {
	Router  *chi.Mux // HTTP router for request handling
	config  *config.ConfigParam
	service *service.Service
}

// CreateNewServer creates a new ConnectorServer serving svc with the given configuration.
func CreateNewServer(cfg *config.ConfigParam, svc *service.Service) (*ConnectorServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("connector service is required")
	}
	s := &ConnectorServer{
		config:  cfg,
		service: svc,
	}
	s.Router = chi.NewRouter()
	return s, nil
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *ConnectorServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.config.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in connector router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *ConnectorServer) mountResourceHandlers(r chi.Router) {
	r.Route(s.config.ServicePath, s.service.Router)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrNotFound().Send(w)
	})
}

func (s *ConnectorServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &api.VersionInfo{
		ServerVersion: "IDE Connector Server: " + Version,
		ApiVersion:    api.ProtocolVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *ConnectorServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *ConnectorServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
