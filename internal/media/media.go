// Package media stores report evidence in S3-compatible object storage.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/platform"
)

// ErrUnsupportedType is returned for uploads that are neither images nor videos.
var ErrUnsupportedType = errors.New("unsupported media type")

// maxParallelUploads bounds concurrent PutObject calls per request.
const maxParallelUploads = 4

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// File is one piece of evidence awaiting upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// TypeOf maps image/* to PHOTO and video/* to VIDEO.
func TypeOf(contentType string) (model.MediaType, error) {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return model.MediaVideo, nil
	case strings.HasPrefix(contentType, "image/"):
		return model.MediaPhoto, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
}

// ObjectKey builds a collision-free key under the report's prefix.
func ObjectKey(reportID, filename string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("reports/%s/%d-%s", reportID, at.Unix(), platform.Suffix()+"-"+base)
}

// UploadAll uploads files in parallel and returns their URLs in input order.
// The media type is VIDEO if any file is a video.
func UploadAll(ctx context.Context, up Uploader, reportID string, files []File, at time.Time) ([]string, model.MediaType, error) {
	if len(files) == 0 {
		return nil, "", nil
	}

	mediaType := model.MediaPhoto
	for _, f := range files {
		t, err := TypeOf(f.ContentType)
		if err != nil {
			return nil, "", fmt.Errorf("upload %s: %w", f.Name, err)
		}
		if t == model.MediaVideo {
			mediaType = model.MediaVideo
		}
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		g.Go(func() error {
			body, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", f.Name, err)
			}
			defer body.Close()

			url, err := up.Upload(gctx, ObjectKey(reportID, f.Name, at), f.ContentType, body, f.Size)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return urls, mediaType, nil
}
