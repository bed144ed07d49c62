package classifier_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strokelab/strokecoach/pkg/classifier"
)

func frames(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{0xff, 0xd8, byte(i)}
	}
	return out
}

func TestClassify(t *testing.T) {
	var gotFrames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict-live" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Frames []string `json:"frames"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotFrames = req.Frames

		json.NewEncoder(w).Encode(map[string]any{
			"prediction": "High",
			"confidence": 0.913,
			"message":    "Outstanding shot!",
		})
	}))
	defer srv.Close()

	c, err := classifier.NewClient(classifier.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	result, err := c.Classify(context.Background(), frames(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Label != classifier.LabelHigh {
		t.Errorf("expected High, got %q", result.Label)
	}
	if result.Confidence != 0.913 {
		t.Errorf("expected confidence 0.913, got %v", result.Confidence)
	}
	if result.Message != "Outstanding shot!" {
		t.Errorf("unexpected message %q", result.Message)
	}

	if len(gotFrames) != 8 {
		t.Fatalf("expected 8 frames on the wire, got %d", len(gotFrames))
	}
	decoded, err := base64.StdEncoding.DecodeString(gotFrames[0])
	if err != nil {
		t.Fatalf("frame not valid base64: %v", err)
	}
	if decoded[0] != 0xff || decoded[1] != 0xd8 {
		t.Error("frame payload corrupted in transit")
	}
}

func TestClassifyEmptyBatch(t *testing.T) {
	c, _ := classifier.NewClient()
	_, err := c.Classify(context.Background(), nil)
	if !errors.Is(err, classifier.ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if classifier.IsRecoverable(err) {
		t.Error("empty batch is a caller bug, not recoverable")
	}
}

func TestClassifyBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Failed to decode frame 3"})
	}))
	defer srv.Close()

	c, _ := classifier.NewClient(classifier.WithBaseURL(srv.URL))
	_, err := c.Classify(context.Background(), frames(8))

	var apiErr *classifier.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "Failed to decode frame 3" {
		t.Errorf("unexpected detail %q", apiErr.Detail)
	}
	if !classifier.IsRecoverable(err) {
		t.Error("backend errors are recoverable")
	}
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"prediction": "Not High",
			"confidence": 0.72,
			"message":    "Almost there!",
		})
	}))
	defer srv.Close()

	c, _ := classifier.NewClient(
		classifier.WithBaseURL(srv.URL),
		classifier.WithRetry(2, time.Millisecond),
	)

	result, err := c.Classify(context.Background(), frames(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Label != classifier.LabelNotHigh {
		t.Errorf("expected Not High, got %q", result.Label)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClassifyRejectsUnknownLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"prediction": "Medium",
			"confidence": 0.5,
		})
	}))
	defer srv.Close()

	c, _ := classifier.NewClient(classifier.WithBaseURL(srv.URL))
	_, err := c.Classify(context.Background(), frames(8))
	if !errors.Is(err, classifier.ErrBadLabel) {
		t.Errorf("expected ErrBadLabel, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c, _ := classifier.NewClient(classifier.WithBaseURL(srv.URL))
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
