package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/gmp-id/gmpcms/internal/httpx"
)

const (
	maxImageEdge = 1920
	webpQuality  = 82
)

var uploadTypes = map[string][]string{
	"image": {"image/jpeg", "image/png", "image/gif", "image/webp"},
	"pdf":   {"application/pdf"},
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// UploadHandler stores admin uploads below Dir, served under /uploads.
type UploadHandler struct {
	Dir      string
	MaxBytes int64
}

// HandleUpload accepts a multipart "file" of the given "type". Images are
// re-encoded as WebP no larger than 1920x1920; PDFs are stored untouched.
func (h *UploadHandler) HandleUpload(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "No file uploaded")
	}

	kind := c.FormValue("type", "image")
	allowed, ok := uploadTypes[kind]
	if !ok {
		return httpx.BadRequest(c, "Invalid upload type. Allowed types: image, pdf")
	}
	if fh.Size > h.MaxBytes {
		return httpx.Error(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %d MB", h.MaxBytes>>20))
	}

	src, err := fh.Open()
	if err != nil {
		return httpx.Internal(c, "Failed to upload file", err)
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(io.LimitReader(src, h.MaxBytes+1))
	if err != nil {
		return httpx.Internal(c, "Failed to upload file", err)
	}
	if int64(len(data)) > h.MaxBytes {
		return httpx.Error(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %d MB", h.MaxBytes>>20))
	}

	// Trust the bytes, not the client's Content-Type.
	detected := http.DetectContentType(data)
	if !slices.Contains(allowed, detected) {
		return httpx.BadRequest(c, "Invalid file type. Allowed types: "+strings.Join(allowed, ", "))
	}

	var (
		subdir, name, mime string
		out                []byte
	)
	switch kind {
	case "image":
		out, err = convertToWebP(data)
		if err != nil {
			return httpx.BadRequest(c, "Could not decode image")
		}
		subdir, mime = "images", "image/webp"
		name = uuid.NewString() + ".webp"
	default:
		out = data
		subdir, mime = "documents", detected
		name = uuid.NewString() + "-" + sanitizeFilename(fh.Filename, ".pdf")
	}

	dir := filepath.Join(h.Dir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return httpx.Internal(c, "Failed to upload file", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), out, 0o644); err != nil {
		return httpx.Internal(c, "Failed to upload file", err)
	}

	return httpx.OK(c, fiber.Map{
		"success":      true,
		"url":          "/uploads/" + subdir + "/" + name,
		"filename":     name,
		"originalName": fh.Filename,
		"size":         len(out),
		"type":         mime,
	})
}

// convertToWebP decodes data honoring EXIF orientation, fits it into the
// maximum edge and encodes lossy WebP.
func convertToWebP(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, maxImageEdge, maxImageEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeFilename keeps a readable, path-safe name ending in ext.
func sanitizeFilename(name, ext string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "._-")
	if len(base) > 80 {
		base = base[:80]
	}
	if base == "" {
		base = "file"
	}
	return base + ext
}
