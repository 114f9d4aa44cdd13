package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rigelhq/rigel/internal/apperror"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

// makeUpload builds a real multipart file/header pair the way net/http would
// hand it to a handler.
func makeUpload(t *testing.T, filename, contentType string, body []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	partHeader := make(map[string][]string)
	partHeader["Content-Disposition"] = []string{`form-data; name="image"; filename="` + filename + `"`}
	partHeader["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("creating part: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	writer.Close()

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("reading form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	headers := form.File["image"]
	if len(headers) != 1 {
		t.Fatalf("expected 1 file, got %d", len(headers))
	}
	file, err := headers[0].Open()
	if err != nil {
		t.Fatalf("opening file: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	return file, headers[0]
}

func TestSave_AcceptsImage(t *testing.T) {
	store := newTestStore(t)
	file, header := makeUpload(t, "cat.png", "image/png", []byte("pretend-png-bytes"))

	url, err := store.Save(file, header)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.HasPrefix(url, URLPrefix+"/") {
		t.Errorf("url = %q, want %q prefix", url, URLPrefix+"/")
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q, want .png suffix", url)
	}

	// The bytes landed on disk under the store directory.
	saved, err := os.ReadFile(filepath.Join(store.Dir(), filepath.Base(url)))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(saved) != "pretend-png-bytes" {
		t.Errorf("saved bytes = %q, want original content", saved)
	}
}

func TestSave_RejectsDisallowedFiles(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name        string
		filename    string
		contentType string
	}{
		{"executable extension", "payload.exe", "application/octet-stream"},
		{"exe with lying content type", "payload.exe", "image/png"},
		{"image extension but non-image type", "fake.png", "application/x-msdownload"},
		{"script", "evil.js", "text/javascript"},
		{"no extension", "noext", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, header := makeUpload(t, tt.filename, tt.contentType, []byte("data"))

			_, err := store.Save(file, header)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}

			// A rejected upload leaves nothing on disk.
			entries, readErr := os.ReadDir(store.Dir())
			if readErr != nil {
				t.Fatalf("reading store dir: %v", readErr)
			}
			if len(entries) != 0 {
				t.Errorf("store dir has %d files after rejection, want 0", len(entries))
			}
		})
	}
}

func TestSave_ContentTypeParametersIgnored(t *testing.T) {
	store := newTestStore(t)
	file, header := makeUpload(t, "cat.gif", "image/gif; charset=binary", []byte("gif"))

	if _, err := store.Save(file, header); err != nil {
		t.Errorf("Save() error = %v, want content-type parameters to be ignored", err)
	}
}

func TestSave_UniqueFilenames(t *testing.T) {
	store := newTestStore(t)

	urls := map[string]bool{}
	for i := 0; i < 5; i++ {
		file, header := makeUpload(t, "same-name.jpg", "image/jpeg", []byte("x"))
		url, err := store.Save(file, header)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if urls[url] {
			t.Fatalf("duplicate url %q for repeated uploads of the same filename", url)
		}
		urls[url] = true
	}
}
