package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeObjects struct {
	stored map[string][]byte
	types  map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{stored: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Upload(_ context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.stored[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.stored[key]
	return ok, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://media.example.com/" + key
}

func TestSpeakerKey(t *testing.T) {
	tests := []struct {
		name      string
		sourceURL string
		slug      string
		prefix    string
		suffix    string
	}{
		{"simple filename", "https://example.com/img/ada.jpeg", "ada-lovelace", "speakers/ada-lovelace/", "-ada.png"},
		{"spaces", "https://example.com/img/Ada Headshot.png", "ada", "speakers/ada/", "-Ada_Headshot.png"},
		{"no filename", "https://example.com/", "ada", "speakers/ada/", "-headshot.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := speakerKey(tt.sourceURL, tt.slug, "image/png")
			if !strings.HasPrefix(got, tt.prefix) || !strings.HasSuffix(got, tt.suffix) {
				t.Errorf("expected %s...%s, got %q", tt.prefix, tt.suffix, got)
			}
		})
	}

	if speakerKey("https://a.example/x.png", "ada", "image/png") == speakerKey("https://b.example/x.png", "ada", "image/png") {
		t.Error("expected different sources to get different keys")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"headshot", "headshot"},
		{"my photo", "my_photo"},
		{"file:name?", "file_name_"},
		{"path/to/file", "path_to_file"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestImportSpeakerImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ada.png":
			w.Write(pngHeader)
		case "/page.html":
			w.Write([]byte("<html><body>not an image</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	objects := newFakeObjects()
	s := NewStore(objects)
	ctx := context.Background()

	res, err := s.ImportSpeakerImage(ctx, srv.URL+"/ada.png", "ada-lovelace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", res.ContentType)
	}
	if !bytes.Equal(objects.stored[res.Key], pngHeader) {
		t.Error("expected image bytes stored")
	}
	if res.URL != "https://media.example.com/"+res.Key {
		t.Errorf("unexpected URL %s", res.URL)
	}

	if _, err := s.ImportSpeakerImage(ctx, srv.URL+"/page.html", "ada"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := s.ImportSpeakerImage(ctx, srv.URL+"/missing.png", "ada"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := s.ImportSpeakerImage(ctx, "ftp://example.com/a.png", "ada"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestStoreUpload(t *testing.T) {
	objects := newFakeObjects()
	s := NewStore(objects)
	s.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	res, err := s.StoreUpload(context.Background(), bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.Key, "uploads/2026/05/") || !strings.HasSuffix(res.Key, ".png") {
		t.Errorf("unexpected key %s", res.Key)
	}
	if objects.types[res.Key] != "image/png" {
		t.Errorf("expected image/png stored, got %s", objects.types[res.Key])
	}

	if _, err := s.StoreUpload(context.Background(), strings.NewReader("plain text")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}

	big := io.MultiReader(bytes.NewReader(pngHeader), bytes.NewReader(make([]byte, MaxImageSize)))
	if _, err := s.StoreUpload(context.Background(), big); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
