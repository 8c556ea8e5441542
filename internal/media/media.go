// Package media imports and uploads speaker images into object storage.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	downloadTimeout = 30 * time.Second
	// MaxImageSize caps both imports and uploads.
	MaxImageSize = 10 * 1024 * 1024
	userAgent    = "Mozilla/5.0 (compatible; SpeakAboutAIBot/1.0)"
)

var (
	// ErrTooLarge is returned for images over MaxImageSize.
	ErrTooLarge = errors.New("image too large")
	// ErrUnsupportedType is returned for anything that is not a web image.
	ErrUnsupportedType = errors.New("unsupported image type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore is the subset of the R2 client used here.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

// Store handles image import and storage.
type Store struct {
	objects ObjectStore
	client  *http.Client
	now     func() time.Time
}

// NewStore creates a media store backed by objects.
func NewStore(objects ObjectStore) *Store {
	return &Store{
		objects: objects,
		client: &http.Client{
			Timeout: downloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		now: time.Now,
	}
}

// Result describes a stored image.
type Result struct {
	SourceURL   string `json:"source_url,omitempty"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ImportSpeakerImage downloads a headshot from sourceURL and stores it under
// the speaker's prefix. Re-importing the same URL reuses the stored object.
func (s *Store) ImportSpeakerImage(ctx context.Context, sourceURL, slug string) (*Result, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid image URL %q", sourceURL)
	}

	data, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	key := speakerKey(sourceURL, slug, contentType)
	result := &Result{
		SourceURL:   sourceURL,
		Key:         key,
		URL:         s.objects.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}

	if exists, err := s.objects.Exists(ctx, key); err == nil && exists {
		return result, nil
	}
	if err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, err
	}
	return result, nil
}

// StoreUpload saves an uploaded image under uploads/YYYY/MM/ with a random
// name. The content type is sniffed from the data, not trusted from the form.
func (s *Store) StoreUpload(ctx context.Context, body io.Reader) (*Result, error) {
	data, err := readLimited(body)
	if err != nil {
		return nil, err
	}
	contentType, err := detectImage(data)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := fmt.Sprintf("uploads/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.NewString(), extensions[contentType])
	if err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, err
	}
	return &Result{
		Key:         key,
		URL:         s.objects.PublicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// download fetches an image and validates its size and type.
func (s *Store) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d downloading image", resp.StatusCode)
	}
	if resp.ContentLength > MaxImageSize {
		return nil, "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, resp.ContentLength, MaxImageSize)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType, err := detectImage(data)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: max %d bytes", ErrTooLarge, MaxImageSize)
	}
	return data, nil
}

func detectImage(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

// speakerKey builds speakers/{slug}/{hash}-{filename}{ext}.
func speakerKey(sourceURL, slug, contentType string) string {
	hash := sha256.Sum256([]byte(sourceURL))
	prefix := fmt.Sprintf("speakers/%s/%x", sanitizeFilename(slug), hash[:4])

	name := "headshot"
	if u, err := url.Parse(sourceURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			name = strings.TrimSuffix(base, path.Ext(base))
		}
	}
	return prefix + "-" + sanitizeFilename(name) + extensions[contentType]
}

// sanitizeFilename removes problematic characters from filenames.
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	filename = replacer.Replace(filename)

	if len(filename) > 100 {
		filename = filename[:100]
	}
	return filename
}
