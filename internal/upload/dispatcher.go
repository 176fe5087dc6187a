package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rescale-labs/wa-media-core/internal/constants"
	"github.com/rescale-labs/wa-media-core/internal/logging"
	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
	"github.com/rescale-labs/wa-media-core/internal/transporthttp"
)

// Result is the outcome of a successful dispatch.
type Result struct {
	MediaURL   string
	DirectPath string
	Handle     string
}

// Params configures one upload attempt.
type Params struct {
	MediaType     mediakeys.MediaType
	FileEncSha256 []byte
	Newsletter    bool
	TimeoutMs     int64

	// CustomHosts are tried, in order, ahead of the server-supplied hosts.
	CustomHosts []Host

	// Origin is sent as the Origin header on every POST.
	Origin string
}

// serverResponse is the JSON body WhatsApp's media servers return on a
// successful upload.
type serverResponse struct {
	URL        string `json:"url"`
	DirectPath string `json:"direct_path"`
	Handle     string `json:"handle"`
}

// Dispatcher tries an ordered list of upload hosts, refreshing auth between
// failures, until one accepts the ciphertext body: validate
// params, build the body once, try each host in turn, and contextualize
// every error with the host that produced it.
type Dispatcher struct {
	Client *http.Client
	Conn   *ConnInfoCache
	Retry  transporthttp.RetryConfig

	// Scheme overrides "https" for the upload URL template; tests point it
	// at a plain-HTTP httptest server.
	Scheme string

	// Log receives per-host attempt/failure events. Nil disables logging.
	Log *logging.Logger
}

// NewDispatcher builds a Dispatcher from a shared HTTP client and a
// connection-info refresher.
func NewDispatcher(client *http.Client, refresh RefreshFunc) *Dispatcher {
	return &Dispatcher{
		Client: client,
		Conn:   NewConnInfoCache(refresh),
		Retry: transporthttp.RetryConfig{
			MaxRetries:   constants.DefaultMaxRetries,
			InitialDelay: constants.DefaultRetryInitialDelay,
			MaxDelay:     constants.DefaultRetryMaxDelay,
		},
	}
}

// Upload collects ciphertext (the server requires a contiguous body, not a
// stream) and tries each host in turn until one accepts it.
func (d *Dispatcher) Upload(ctx context.Context, ciphertext io.Reader, params Params) (*Result, error) {
	if len(params.FileEncSha256) == 0 {
		return nil, fmt.Errorf("upload: FileEncSha256 is required: %w", mediaerr.ErrInvalidMediaURL)
	}

	body, err := io.ReadAll(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("upload: reading ciphertext: %w", mediaerr.ErrStreamError)
	}

	conn, err := d.Conn.Get(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("upload: acquiring connection info: %w", err)
	}

	hosts := append(append([]Host(nil), params.CustomHosts...), conn.Hosts...)
	if len(hosts) == 0 {
		return nil, fmt.Errorf("upload: no upload hosts available: %w", mediaerr.ErrUploadFailed)
	}

	path := resolvePath(params.MediaType, params.Newsletter)
	encHash := urlSafeBase64NoPadding(params.FileEncSha256)

	var lastErr error
	auth := conn.Auth

	for _, host := range hosts {
		if host.MaxContentLengthBytes > 0 && int64(len(body)) > host.MaxContentLengthBytes {
			lastErr = mediaerr.NewStatusError(mediaerr.ErrBodyTooLarge, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("body of %d bytes exceeds host %s max of %d", len(body), host.Hostname, host.MaxContentLengthBytes), nil)
			if d.Log != nil {
				d.Log.Stage("upload").Warn().Str("host", host.Hostname).Int64("max", host.MaxContentLengthBytes).Msg("skipping host, body too large")
			}
			continue
		}

		result, err := d.postToHost(ctx, host, path, encHash, auth, body, params)
		if err == nil {
			if d.Log != nil {
				d.Log.Stage("upload").Info().Str("host", host.Hostname).Msg("upload accepted")
			}
			return result, nil
		}
		lastErr = err
		if d.Log != nil {
			d.Log.Stage("upload").Warn().Str("host", host.Hostname).Err(err).Msg("host rejected upload, trying next")
		}

		refreshed, rerr := d.Conn.Get(ctx, true)
		if rerr == nil {
			auth = refreshed.Auth
		}
	}

	return nil, mediaerr.NewStatusError(mediaerr.ErrUploadFailed, http.StatusBadGateway,
		fmt.Sprintf("all hosts rejected the object, last error: %v", lastErr), lastErr)
}

func (d *Dispatcher) postToHost(ctx context.Context, host Host, path, encHash, auth string, body []byte, params Params) (*Result, error) {
	timeout := constants.DefaultUploadTimeout
	if params.TimeoutMs > 0 {
		timeout = time.Duration(params.TimeoutMs) * time.Millisecond
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scheme := d.Scheme
	if scheme == "" {
		scheme = "https"
	}
	target := fmt.Sprintf("%s://%s%s/%s?auth=%s&token=%s",
		scheme, host.Hostname, path, encHash, url.QueryEscape(auth), encHash)

	retryCfg := d.Retry
	if retryCfg.OnRetry == nil && d.Log != nil {
		retryCfg.OnRetry = func(attempt int, err error) {
			d.Log.Stage("upload").Debug().Str("host", host.Hostname).Int("attempt", attempt).Err(err).Msg("re-attempting POST")
		}
	}

	var resp *http.Response
	err := transporthttp.ExecuteWithRetry(reqCtx, retryCfg, func() error {
		req, rerr := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
		if rerr != nil {
			return fmt.Errorf("upload: building request: %w", rerr)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		if params.Origin != "" {
			req.Header.Set("Origin", params.Origin)
		}
		req.ContentLength = int64(len(body))

		client := d.Client
		if client == nil {
			client = http.DefaultClient
		}
		r, derr := client.Do(req)
		if derr != nil {
			return fmt.Errorf("upload: posting to %s: %w", host.Hostname, derr)
		}
		if r.StatusCode >= 400 {
			r.Body.Close()
			return &transporthttp.HostError{Host: host.Hostname, StatusCode: r.StatusCode}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed serverResponse
	if derr := json.NewDecoder(resp.Body).Decode(&parsed); derr != nil {
		return nil, fmt.Errorf("upload: decoding response from %s: %w", host.Hostname, derr)
	}

	if parsed.URL == "" && parsed.DirectPath == "" {
		return nil, fmt.Errorf("upload: host %s returned neither url nor direct_path (status %d)",
			host.Hostname, resp.StatusCode)
	}

	return &Result{MediaURL: parsed.URL, DirectPath: parsed.DirectPath, Handle: parsed.Handle}, nil
}

// resolvePath resolves the server path segment for mt, additionally
// rewriting it to the newsletter form when the caller requests it
// explicitly (separately from MediaType's own newsletter variants).
func resolvePath(mt mediakeys.MediaType, newsletter bool) string {
	path := mediakeys.MediaPath(mt)
	if newsletter && strings.HasPrefix(path, "/mms/") {
		return "/newsletter/newsletter-" + path[len("/mms/"):]
	}
	return path
}

// urlSafeBase64NoPadding encodes data as URL-safe base64 with padding
// stripped, the form the upload URL template embeds twice.
func urlSafeBase64NoPadding(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
