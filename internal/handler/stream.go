package handler

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teacherflow/api/pkg/response"
)

// Stream handles GET /videos/:filename with HTTP range support: 200 with
// the full file when no Range header is present, 206 with the requested
// slice otherwise, 416 on a malformed or out-of-bounds range.
func (h *VideoHandler) Stream(c *fiber.Ctx) error {
	filename := c.Params("filename")

	path, err := h.service.ResolveVideo(filename)
	if err != nil {
		return response.NotFound(c, "Video not found")
	}

	info, err := os.Stat(path)
	if err != nil {
		return response.NotFound(c, "Video not found")
	}
	size := info.Size()

	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderContentType, "video/mp4")

	rangeHeader := c.Get(fiber.HeaderRange)
	if rangeHeader == "" {
		f, err := os.Open(path)
		if err != nil {
			return response.ServiceError(c, "Failed to open video")
		}
		return c.SendStream(f, int(size))
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", size))
		return response.InvalidRange(c, "Requested range not satisfiable")
	}

	f, err := os.Open(path)
	if err != nil {
		return response.ServiceError(c, "Failed to open video")
	}
	if _, err := f.Seek(start, 0); err != nil {
		f.Close()
		return response.ServiceError(c, "Failed to seek video")
	}

	length := end - start + 1
	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Status(fiber.StatusPartialContent)
	return c.SendStream(f, int(length))
}

// parseRange parses a single "bytes=start-end" range against a file
// size. Open-ended (start-) and suffix (-n) forms are accepted; anything
// malformed, empty or out of bounds is an error that maps to 416.
func parseRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("unsupported range %q", header)
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed range %q", header)
	}

	if startStr == "" {
		// Suffix form: last n bytes.
		n, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed suffix range %q", header)
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("malformed range start %q", header)
	}

	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("malformed range end %q", header)
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return 0, 0, fmt.Errorf("range %q out of bounds for size %d", header, size)
	}

	return start, end, nil
}
