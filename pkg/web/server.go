// Package web serves the live coaching dashboard: current prediction,
// rolling confidence chart, latest pose skeleton, and a websocket feed
// of new results.
package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/strokelab/strokecoach/internal/log"
	"github.com/strokelab/strokecoach/pkg/coach"
	"github.com/strokelab/strokecoach/pkg/hub"
	"github.com/strokelab/strokecoach/pkg/pose"
)

// Session is the controller surface the dashboard drives.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	Keypoints() []pose.Keypoint
}

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	pred      *coach.Prediction
	hist      *coach.History
	sess      Session
	staticDir string

	liveHub *hub.Hub

	mu      sync.Mutex
	lastErr string
}

// Option configures a Server.
type Option func(*Server)

// WithStaticDir overrides where the dashboard frontend is served from.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// NewServer wires the dashboard over the shared coaching state.
func NewServer(pred *coach.Prediction, hist *coach.History, sess Session, opts ...Option) *Server {
	s := &Server{
		pred:      pred,
		hist:      hist,
		sess:      sess,
		liveHub:   hub.New("live"),
		logger:    log.Component("web"),
		staticDir: "./web",
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "StrokeCoach Dashboard",
		DisableStartupMessage: true,
	})

	// Local-only tool; keep CORS open for the dev frontend.
	app.Use(cors.New())
	app.Static("/", s.staticDir)

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/history", s.handleHistory)
	api.Get("/pose", s.handlePose)
	api.Post("/session/start", s.handleSessionStart)
	api.Post("/session/stop", s.handleSessionStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/live", websocket.New(s.handleLiveWS))

	s.app = app
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	go s.liveHub.Run()
	s.logger.Info("dashboard listening", "addr", addr)
	return s.app.Listen(addr)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync(addr string) {
	go func() {
		if err := s.Start(addr); err != nil {
			s.logger.Error("dashboard server exited", "error", err)
		}
	}()
}

// Publish pushes a fresh classification result to websocket clients.
// Wire it as the coordinator's result hook.
func (s *Server) Publish(snap coach.Snapshot, entry coach.Entry) {
	s.setLastError("")
	s.liveHub.BroadcastJSON(liveUpdate{
		Type:       "prediction",
		Prediction: &snap,
		Point:      &entry,
	})
}

// PublishError surfaces a classification failure to clients. Wire it
// as the coordinator's error handler.
func (s *Server) PublishError(err error) {
	s.setLastError(err.Error())
	s.liveHub.BroadcastJSON(liveUpdate{
		Type:  "error",
		Error: err.Error(),
	})
}

// Shutdown stops the websocket hub and the HTTP listener.
func (s *Server) Shutdown() error {
	s.liveHub.Stop()
	return s.app.Shutdown()
}

func (s *Server) setLastError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *Server) lastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
