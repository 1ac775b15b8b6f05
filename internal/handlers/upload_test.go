package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, kind, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if kind != "" {
		require.NoError(t, w.WriteField("type", kind))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 240, G: 109, B: 152, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newUploadApp(t *testing.T, maxBytes int64) (*fiber.App, string) {
	t.Helper()
	dir := t.TempDir()
	app := fiber.New()
	app.Post("/upload", (&UploadHandler{Dir: dir, MaxBytes: maxBytes}).HandleUpload)
	return app, dir
}

func TestUploadConvertsImagesToWebP(t *testing.T) {
	app, dir := newUploadApp(t, 5<<20)

	resp, body := perform(t, app, multipartUpload(t, "", "banner.png", pngBytes(t, 40, 20)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "image/webp", body["type"])
	assert.Equal(t, "banner.png", body["originalName"])
	url := body["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/images/"))
	assert.True(t, strings.HasSuffix(url, ".webp"))

	stored, err := os.ReadFile(filepath.Join(dir, "images", body["filename"].(string)))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(stored[:4]))
	assert.Equal(t, "WEBP", string(stored[8:12]))
}

func TestUploadStoresPDFUnchanged(t *testing.T) {
	app, dir := newUploadApp(t, 5<<20)
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")

	resp, body := perform(t, app, multipartUpload(t, "pdf", "Laporan Tahunan.pdf", pdf))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	name := body["filename"].(string)
	assert.True(t, strings.HasSuffix(name, "-Laporan_Tahunan.pdf"))
	stored, err := os.ReadFile(filepath.Join(dir, "documents", name))
	require.NoError(t, err)
	assert.Equal(t, pdf, stored)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		content  []byte
		maxBytes int64
		status   int
		message  string
	}{
		{"unknown type", "video", []byte("x"), 1 << 20, fiber.StatusBadRequest, "Invalid upload type. Allowed types: image, pdf"},
		{"text posing as pdf", "pdf", []byte("hello world"), 1 << 20, fiber.StatusBadRequest, "Invalid file type. Allowed types: application/pdf"},
		{"too large", "pdf", bytes.Repeat([]byte("a"), 2<<20), 1 << 20, fiber.StatusRequestEntityTooLarge, "File too large. Maximum size is 1 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newUploadApp(t, tt.maxBytes)
			resp, body := perform(t, app, multipartUpload(t, tt.kind, "file.bin", tt.content))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestUploadRequiresFile(t *testing.T) {
	app, _ := newUploadApp(t, 1<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("type", "image"))
	require.NoError(t, w.Close())
	req, _ := http.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, body := perform(t, app, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", body["error"])
}
