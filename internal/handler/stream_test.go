package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/teacherflow/api/internal/artifact"
	"github.com/teacherflow/api/internal/service"
	"github.com/teacherflow/api/internal/store"
)

const streamContent = "0123456789abcdefghij"

func setupStreamApp(t *testing.T) *fiber.App {
	t.Helper()
	base := t.TempDir()
	artifacts := artifact.NewStore(
		filepath.Join(base, "videos"),
		filepath.Join(base, "audio"),
		filepath.Join(base, "debug"),
		false,
	)
	if err := artifacts.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	path := filepath.Join(artifacts.VideosDir(), "sample.mp4")
	if err := os.WriteFile(path, []byte(streamContent), 0644); err != nil {
		t.Fatalf("write sample video: %v", err)
	}

	svc := service.NewVideoService(store.NewMemoryStore(), nil, nil, artifacts)
	h := NewVideoHandler(svc, validator.New())

	app := fiber.New()
	app.Get("/videos/:filename", h.Stream)
	return app
}

func streamRequest(t *testing.T, app *fiber.App, path, rangeHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestStream_FullFile(t *testing.T) {
	app := setupStreamApp(t)

	resp := streamRequest(t, app, "/videos/sample.mp4", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("expected Accept-Ranges: bytes, got %q", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp4" {
		t.Errorf("expected video/mp4, got %q", got)
	}
	if body := bodyString(t, resp); body != streamContent {
		t.Errorf("unexpected body %q", body)
	}
}

func TestStream_PartialRange(t *testing.T) {
	app := setupStreamApp(t)

	resp := streamRequest(t, app, "/videos/sample.mp4", "bytes=5-9")
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", resp.StatusCode)
	}
	wantRange := fmt.Sprintf("bytes 5-9/%d", len(streamContent))
	if got := resp.Header.Get("Content-Range"); got != wantRange {
		t.Errorf("expected Content-Range %q, got %q", wantRange, got)
	}
	if body := bodyString(t, resp); body != "56789" {
		t.Errorf("expected bytes 5-9, got %q", body)
	}
}

func TestStream_OpenEndedRange(t *testing.T) {
	app := setupStreamApp(t)

	resp := streamRequest(t, app, "/videos/sample.mp4", "bytes=15-")
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", resp.StatusCode)
	}
	if body := bodyString(t, resp); body != "fghij" {
		t.Errorf("expected tail bytes, got %q", body)
	}
}

func TestStream_RepeatedRangeReadsAreIdentical(t *testing.T) {
	app := setupStreamApp(t)

	first := bodyString(t, streamRequest(t, app, "/videos/sample.mp4", "bytes=0-3"))
	second := bodyString(t, streamRequest(t, app, "/videos/sample.mp4", "bytes=0-3"))
	if first != second || first != "0123" {
		t.Errorf("range reads not idempotent: %q vs %q", first, second)
	}
}

func TestStream_UnsatisfiableRange(t *testing.T) {
	app := setupStreamApp(t)

	resp := streamRequest(t, app, "/videos/sample.mp4", "bytes=100-200")
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416, got %d", resp.StatusCode)
	}
	wantRange := fmt.Sprintf("bytes */%d", len(streamContent))
	if got := resp.Header.Get("Content-Range"); got != wantRange {
		t.Errorf("expected Content-Range %q, got %q", wantRange, got)
	}
}

func TestStream_MissingVideo(t *testing.T) {
	app := setupStreamApp(t)

	resp := streamRequest(t, app, "/videos/nope.mp4", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestParseRange(t *testing.T) {
	const size = 100

	tests := []struct {
		header    string
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{"bytes=0-49", 0, 49, false},
		{"bytes=50-", 50, 99, false},
		{"bytes=0-0", 0, 0, false},
		{"bytes=99-99", 99, 99, false},
		{"bytes=-10", 90, 99, false},
		{"bytes=-200", 0, 99, false},
		{"bytes=0-150", 0, 99, false},
		{"bytes=100-", 0, 0, true},
		{"bytes=60-40", 0, 0, true},
		{"bytes=-0", 0, 0, true},
		{"bytes=abc-", 0, 0, true},
		{"bytes=0-49,60-70", 0, 0, true},
		{"items=0-49", 0, 0, true},
		{"bytes=", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			start, end, err := parseRange(tt.header, size)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d-%d", start, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("got %d-%d, want %d-%d", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
