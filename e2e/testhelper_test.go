package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teacherflow/api/internal/artifact"
	"github.com/teacherflow/api/internal/assembler"
	"github.com/teacherflow/api/internal/client"
	"github.com/teacherflow/api/internal/codegen"
	"github.com/teacherflow/api/internal/config"
	"github.com/teacherflow/api/internal/handler"
	"github.com/teacherflow/api/internal/middleware"
	"github.com/teacherflow/api/internal/pipeline"
	"github.com/teacherflow/api/internal/planner"
	"github.com/teacherflow/api/internal/renderer"
	"github.com/teacherflow/api/internal/service"
	"github.com/teacherflow/api/internal/speech"
	"github.com/teacherflow/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds the wired application under test.
type testApp struct {
	app       *fiber.App
	artifacts *artifact.Store
}

// setupApp wires the app the way main does, but without Redis: the job
// store is in-memory and generation jobs run on in-process goroutines.
// The AI client is unconfigured, so accepted jobs fail at the planning
// stage, which is enough to exercise the whole job lifecycle.
func setupApp(t *testing.T, jwtSecret string) *testApp {
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

	jobStore := store.NewMemoryStore()

	aiClient := client.NewOpenAIClient(&config.OpenAIConfig{})
	contentPlanner := planner.New(aiClient)
	synthesizer := speech.New(aiClient, 2)
	codeGenerator := codegen.New(aiClient)
	sceneRenderer := renderer.New(codeGenerator, "manim", "720p30", 2, 1)
	videoAssembler := assembler.New()

	orchestrator := pipeline.New(jobStore, contentPlanner, synthesizer, codeGenerator,
		sceneRenderer, videoAssembler, artifacts, 0)

	validate := validator.New()
	videoService := service.NewVideoService(jobStore, nil, orchestrator, artifacts)
	videoHandler := handler.NewVideoHandler(videoService, validate)

	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)
	rateLimiter := middleware.NewRateLimiter(nil)

	app := fiber.New()
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"services": fiber.Map{
				"openai": aiClient.IsConfigured(),
				"redis":  false,
			},
		})
	})

	app.Post("/generate-video", rateLimiter.GenerateLimit(10000), videoHandler.Generate)
	app.Get("/job-status/:jobId", videoHandler.Status)
	app.Get("/videos/:filename", videoHandler.Stream)
	app.Post("/delete/videos", authMiddleware.Authenticate(), videoHandler.Delete)
	app.Delete("/delete/videos", authMiddleware.Authenticate(), videoHandler.Delete)

	return &testApp{app: app, artifacts: artifacts}
}

// publishVideo drops a file into the public videos directory.
func (ta *testApp) publishVideo(t *testing.T, filename, content string) {
	t.Helper()
	path := filepath.Join(ta.artifacts.VideosDir(), filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("publish test video: %v", err)
	}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// assertStatus fails the test when the response status differs.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Errorf("expected status %d, got %d", want, resp.StatusCode)
	}
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}
