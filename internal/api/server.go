package api

import (
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/harness"
	"github.com/pixelprobe/pixelprobe/internal/logger"
	"github.com/pixelprobe/pixelprobe/internal/output"
	"github.com/pixelprobe/pixelprobe/internal/process"
	"github.com/pixelprobe/pixelprobe/internal/refwindow"
)

// Scroller injects scroll events on behalf of API clients
type Scroller interface {
	SendScroll(x, y float64) error
}

// Server exposes harness control and observation over HTTP
type Server struct {
	router    *mux.Router
	runner    *harness.Runner
	procs     *process.Manager
	scroller  Scroller // nil when input injection is unavailable
	configMgr *config.Manager
	preview   *output.MJPEGStream
	upgrader  websocket.Upgrader
}

// NewServer creates an API server over the harness components. scroller
// and preview may be nil; the corresponding endpoints then report the
// feature as unavailable.
func NewServer(runner *harness.Runner, procs *process.Manager, scroller Scroller, configMgr *config.Manager, preview *output.MJPEGStream) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		runner:    runner,
		procs:     procs,
		scroller:  scroller,
		configMgr: configMgr,
		preview:   preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tooling only
			},
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Harness observation
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/samples", s.handleSamples).Methods("GET")
	api.HandleFunc("/samples/stream", s.handleSampleStream)
	api.HandleFunc("/screenshot", s.handleScreenshot).Methods("GET")
	if s.preview != nil {
		api.HandleFunc("/preview", s.preview.Handler()).Methods("GET")
	}

	// Helper process control
	api.HandleFunc("/browser/open", s.handleBrowserOpen).Methods("POST")
	api.HandleFunc("/browser/close", s.handleBrowserClose).Methods("POST")
	api.HandleFunc("/refwindow/open", s.handleRefWindowOpen).Methods("POST")
	api.HandleFunc("/refwindow/close", s.handleRefWindowClose).Methods("POST")

	// Input injection
	api.HandleFunc("/input/scroll", s.handleScroll).Methods("POST")

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("API server listening")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// Router exposes the handler for tests and embedding
func (s *Server) Router() http.Handler {
	return s.enableCORS(s.router)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	Harness          harness.Status `json:"harness"`
	BrowserRunning   bool           `json:"browser_running"`
	RefWindowRunning bool           `json:"refwindow_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Harness:          s.runner.Status(),
		BrowserRunning:   s.procs.BrowserRunning(),
		RefWindowRunning: s.procs.ReferenceWindowRunning(),
	})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.runner.Samples())
}

func (s *Server) handleSampleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.runner.Subscribe()
	defer s.runner.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case sample, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(sample); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	frame := s.runner.LatestFrame()
	if frame == nil {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, frame); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("PNG encode failed")
	}
}

type browserOpenRequest struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
	URL     string   `json:"url"`
}

func (s *Server) handleBrowserOpen(w http.ResponseWriter, r *http.Request) {
	var req browserOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.procs.OpenBrowser(req.Program, req.Args, req.URL); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleBrowserClose(w http.ResponseWriter, r *http.Request) {
	if err := s.procs.CloseBrowser(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type refWindowOpenRequest struct {
	Pattern string `json:"pattern"`
}

func (s *Server) handleRefWindowOpen(w http.ResponseWriter, r *http.Request) {
	var req refWindowOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	pattern, err := refwindow.DecodePattern(req.Pattern)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.procs.OpenReferenceWindow(pattern); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRefWindowClose(w http.ResponseWriter, r *http.Request) {
	if err := s.procs.CloseReferenceWindow(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type scrollRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	if s.scroller == nil {
		http.Error(w, "input injection unavailable on this platform", http.StatusNotImplemented)
		return
	}
	var req scrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.scroller.SendScroll(req.X, req.Y); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
