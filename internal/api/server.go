package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/mxcamera/internal/api/models"
	"github.com/smazurov/mxcamera/internal/capture"
	"github.com/smazurov/mxcamera/internal/display"
	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/led"
	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/photo"
	"github.com/smazurov/mxcamera/internal/state"
	"github.com/smazurov/mxcamera/internal/streaming"
	"github.com/smazurov/mxcamera/internal/version"
	"github.com/smazurov/mxcamera/ui"
)

const authRealm = `Basic realm="mxcamera"`

// ClientSource reports the connected TCP client.
type ClientSource interface {
	Client() (streaming.ClientInfo, bool)
}

// PhotoTaker captures full resolution stills.
type PhotoTaker interface {
	Capture(ctx context.Context) (photo.Result, error)
}

// DisplayControl pauses and resumes the LCD consumer.
type DisplayControl interface {
	SetPaused(paused bool)
	Paused() bool
}

// Options wires the running pipeline into the API. Nil components disable
// the routes that need them.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	PrometheusHandler http.Handler // Optional Prometheus metrics handler

	EventBus      *events.Bus
	Flags         *state.Flags
	Camera        capture.Format
	DevicePath    string
	Sender        ClientSource
	Photos        PhotoTaker
	Snapshot      *display.Snapshot
	Display       DisplayControl
	LEDController led.Controller

	// ListDevices defaults to capture.ListDevices.
	ListDevices func() ([]capture.DeviceSummary, error)
	// PreviewInterval is the minimum gap between websocket preview frames.
	PreviewInterval time.Duration
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger

	// closing is closed by Stop. Hijacked websocket connections watch it
	// because http.Server.Close does not know about them.
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates the API server using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("mxcamera API", version.String())
	config.Info.Description = "Status and control API for the RAW10 camera pipeline"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	if opts.ListDevices == nil {
		opts.ListDevices = capture.ListDevices
	}
	if opts.PreviewInterval <= 0 {
		opts.PreviewInterval = defaultPreviewInterval
	}
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
		closing:  make(chan struct{}),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if server.authEnabled() {
		api.UseMiddleware(server.basicAuthMiddleware)
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	page := ui.Handler()
	mux.HandleFunc("GET /{$}", page.ServeHTTP)

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and every open connection, including SSE and
// websocket streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	s.closeOnce.Do(func() { close(s.closing) })
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) authEnabled() bool {
	return s.options.AuthUsername != "" && s.options.AuthPassword != ""
}

// checkCredentials validates an Authorization header, falling back to the
// base64 "user:pass" auth query parameter that EventSource and WebSocket
// clients use. It returns an empty string on success.
func (s *Server) checkCredentials(authHeader, queryAuth string) string {
	var encoded string
	switch {
	case authHeader != "":
		const prefix = "Basic "
		if !strings.HasPrefix(authHeader, prefix) {
			return "Invalid authentication type"
		}
		encoded = authHeader[len(prefix):]
	case queryAuth != "":
		encoded = queryAuth
	default:
		return "Authentication required"
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "Invalid credentials format"
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "Invalid credentials format"
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.options.AuthUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.options.AuthPassword)) == 1
	if !userOK || !passOK {
		return "Invalid credentials"
	}
	return ""
}

func (s *Server) basicAuthMiddleware(ctx huma.Context, next func(huma.Context)) {
	// Skip auth for operations without security requirements
	if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
		next(ctx)
		return
	}
	if msg := s.checkCredentials(ctx.Header("Authorization"), ctx.Query("auth")); msg != "" {
		ctx.SetHeader("WWW-Authenticate", authRealm)
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg)
		return
	}
	next(ctx)
}

// requireAuth guards plain mux handlers that Huma middleware does not see.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.authEnabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if msg := s.checkCredentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth")); msg != "" {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, msg, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStatusRoutes()
	s.registerSettingsRoutes()
	s.registerPhotoRoutes()
	s.registerPreviewRoutes()
	s.registerDeviceRoutes()
	s.registerLEDRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
