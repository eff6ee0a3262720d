// Package artifact manages filesystem locations for generated audio and
// video files: the public videos directory, the parallel audio directory,
// per-job scratch dirs and the optional debug archive.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store resolves and maintains artifact paths. Filenames are unique per
// job (uuid-derived), so concurrent jobs never collide and no locking is
// needed.
type Store struct {
	videosDir string
	audioDir  string
	debugDir  string
	debugMode bool
}

func NewStore(videosDir, audioDir, debugDir string, debugMode bool) *Store {
	return &Store{
		videosDir: videosDir,
		audioDir:  audioDir,
		debugDir:  debugDir,
		debugMode: debugMode,
	}
}

// EnsureDirs creates the persistent artifact directories.
func (s *Store) EnsureDirs() error {
	dirs := []string{s.videosDir, s.audioDir}
	if s.debugMode {
		dirs = append(dirs, s.debugDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) VideosDir() string { return s.videosDir }

func (s *Store) DebugMode() bool { return s.debugMode }

// NewScratchDir creates a private temp directory for one job's render run.
func (s *Store) NewScratchDir(videoID string) (string, error) {
	dir, err := os.MkdirTemp("", "render-"+videoID+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// RemoveScratchDir deletes a scratch directory and everything under it.
func (s *Store) RemoveScratchDir(dir string) {
	if dir != "" {
		os.RemoveAll(dir)
	}
}

// AudioScenePath returns the audio file location for one narration scene.
func (s *Store) AudioScenePath(videoID string, sceneIndex int) string {
	return filepath.Join(s.audioDir, fmt.Sprintf("%s_scene_%d.mp3", videoID, sceneIndex+1))
}

// RemoveJobAudio deletes every audio artifact generated for a job.
func (s *Store) RemoveJobAudio(videoID string) {
	matches, err := filepath.Glob(filepath.Join(s.audioDir, videoID+"_scene_*.mp3"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}

// PublishVideo copies the finished video into the public videos directory.
// The copy lands under a hidden temp name and is renamed into place, so
// the public path never holds a partial file.
func (s *Store) PublishVideo(src, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	tmp := filepath.Join(s.videosDir, ".incoming-"+filename)
	if err := copyFile(src, tmp); err != nil {
		return "", fmt.Errorf("stage video: %w", err)
	}
	final := filepath.Join(s.videosDir, filename)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish video: %w", err)
	}
	if s.debugMode {
		copyFile(final, filepath.Join(s.jobDebugDir(strings.TrimSuffix(filename, filepath.Ext(filename))), filename))
	}
	return final, nil
}

// ResolveVideo maps a public filename to its on-disk path, rejecting
// traversal attempts and missing files.
func (s *Store) ResolveVideo(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	path := filepath.Join(s.videosDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// DeleteVideo removes a published video file.
func (s *Store) DeleteVideo(filename string) error {
	path, err := s.ResolveVideo(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// ErrInvalidFilename marks filenames that contain path separators.
var ErrInvalidFilename = fmt.Errorf("invalid filename")

// ValidateFilename rejects names with path separator characters as a
// path-traversal guard.
func ValidateFilename(filename string) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return ErrInvalidFilename
	}
	return nil
}

// SaveDebugPlan archives the raw structured plan JSON for a job.
// No-op outside debug mode.
func (s *Store) SaveDebugPlan(videoID, planJSON string) {
	if !s.debugMode {
		return
	}
	dir := s.jobDebugDir(videoID)
	os.WriteFile(filepath.Join(dir, videoID+".json"), []byte(planJSON), 0644)
}

// SaveDebugAttempt archives one generated code attempt, failing attempts
// with the renderer error appended. No-op outside debug mode.
func (s *Store) SaveDebugAttempt(videoID string, sceneIndex, attempt int, code, errMsg string, ok bool) {
	if !s.debugMode {
		return
	}
	dir := s.jobDebugDir(videoID)
	name := fmt.Sprintf("scene%d-success-%d.py", sceneIndex+1, attempt)
	content := code
	if !ok {
		name = fmt.Sprintf("scene%d-fail-%d.py", sceneIndex+1, attempt)
		content = fmt.Sprintf("%s\n\n# Error details from rendering:\nerror_message = \"\"\"%s\"\"\"\n", code, errMsg)
	}
	os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

func (s *Store) jobDebugDir(videoID string) string {
	dir := filepath.Join(s.debugDir, videoID)
	os.MkdirAll(dir, 0755)
	return dir
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
