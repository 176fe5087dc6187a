package mediakeys

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
	"github.com/rescale-labs/wa-media-core/internal/pathutil"
)

// Source describes where plaintext comes from for the encrypting
// pipeline. Exactly one field should be set.
type Source struct {
	// Buffer supplies an in-memory plaintext payload.
	Buffer []byte

	// FilePath supplies a local file to stream. Relative paths and a
	// leading "~" are expanded before opening.
	FilePath string

	// URL supplies a remote object to stream via HTTP GET. Only used when
	// it has an http:// or https:// scheme; any other string is treated as
	// a file path.
	URL string

	// Reader passes an existing stream through unchanged. Takes precedence
	// over Buffer/FilePath/URL when set.
	Reader io.Reader
}

// Open adapts a Source into a single-use io.ReadCloser. The returned stream
// is consumed exactly once; closing it releases any underlying file handle
// or HTTP response body.
func (s Source) Open(ctx context.Context, client *http.Client) (io.ReadCloser, error) {
	if s.Reader != nil {
		if rc, ok := s.Reader.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(s.Reader), nil
	}

	if s.Buffer != nil {
		return io.NopCloser(strings.NewReader(string(s.Buffer))), nil
	}

	if s.URL != "" && (strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://")) {
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("mediakeys: building source request: %w", mediaerr.ErrStreamError)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("mediakeys: fetching source url: %w", mediaerr.ErrStreamError)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("mediakeys: source url returned status %d: %w", resp.StatusCode, mediaerr.ErrStreamError)
		}
		return resp.Body, nil
	}

	path := s.FilePath
	if path == "" {
		path = s.URL
	}
	if path == "" {
		return nil, fmt.Errorf("mediakeys: no source specified: %w", mediaerr.ErrStreamError)
	}

	resolved, err := pathutil.Resolve(path)
	if err != nil {
		resolved = path
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("mediakeys: opening source file: %w", mediaerr.ErrStreamError)
	}
	return f, nil
}
