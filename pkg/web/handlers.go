package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/strokelab/strokecoach/pkg/capture"
	"github.com/strokelab/strokecoach/pkg/coach"
	"github.com/strokelab/strokecoach/pkg/hub"
)

// liveUpdate is one websocket broadcast frame.
type liveUpdate struct {
	Type       string          `json:"type"`
	Prediction *coach.Snapshot `json:"prediction,omitempty"`
	Point      *coach.Entry    `json:"point,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// stateResponse is the /api/state payload. Valid is false until the
// first inference of the session completes.
type stateResponse struct {
	Valid      bool            `json:"valid"`
	Prediction *coach.Snapshot `json:"prediction,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	Active     bool            `json:"session_active"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"session_active": s.sess.Active(),
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	resp := stateResponse{
		Active:    s.sess.Active(),
		LastError: s.lastError(),
	}
	if snap, ok := s.pred.Get(); ok {
		resp.Valid = true
		resp.Prediction = &snap
	}
	return c.JSON(resp)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"points": s.hist.Entries()})
}

func (s *Server) handlePose(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"keypoints": s.sess.Keypoints()})
}

func (s *Server) handleSessionStart(c *fiber.Ctx) error {
	// The session outlives this request; don't tie it to the
	// request context.
	if err := s.sess.Start(context.Background()); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, capture.ErrCameraDenied) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{"detail": err.Error()})
	}
	return c.JSON(fiber.Map{"session_active": true})
}

func (s *Server) handleSessionStop(c *fiber.Ctx) error {
	s.sess.Stop()
	return c.JSON(fiber.Map{"session_active": false})
}

// handleLiveWS streams classification results. The current state goes
// out first so late joiners render immediately.
func (s *Server) handleLiveWS(c *websocket.Conn) {
	if snap, ok := s.pred.Get(); ok {
		c.WriteJSON(liveUpdate{Type: "prediction", Prediction: &snap})
	}
	client := hub.NewClient(s.liveHub, c)
	client.Run()
}
