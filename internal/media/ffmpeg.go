// Package media wraps the ffmpeg/ffprobe command line tools used for
// probing, silence padding and lossless concatenation.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultDuration is assumed when a file's duration cannot be probed.
const DefaultDuration = 5.0

// Duration returns the duration of a media file in seconds via ffprobe,
// falling back to DefaultDuration when the file cannot be read.
func Duration(ctx context.Context, path string) float64 {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return DefaultDuration
	}
	var dur float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err != nil || dur <= 0 {
		return DefaultDuration
	}
	return dur
}

// HasAudioStream reports whether the file carries at least one audio stream.
func HasAudioStream(ctx context.Context, path string) (bool, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return strings.Contains(string(out), "audio"), nil
}

// PadWithSilence writes a copy of a silent video segment with an AAC
// silence track matching its duration, so concatenation with voiced
// segments keeps audio and video time-aligned.
func PadWithSilence(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", src,
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg silence pad: %w: %s", err, stderr.String())
	}
	return nil
}

// Concat losslessly joins the given files in order via the concat demuxer
// with stream copy. listDir holds the generated concat list file.
func Concat(ctx context.Context, files []string, listDir, outPath string) (string, error) {
	var lines []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("file '%s'", abs))
	}

	listFile := filepath.Join(listDir, "concat.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stderr.String(), fmt.Errorf("ffmpeg concat: %w", err)
	}
	return "", nil
}
