// Package media wires the KDF, stream source, encrypt/decrypt pipelines,
// and upload dispatcher together into the two end-to-end data flows:
// encrypt-then-upload, and resolve-then-download.
package media

import (
	"context"
	"io"
	"net/http"

	"github.com/rescale-labs/wa-media-core/internal/mediacrypto"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
	"github.com/rescale-labs/wa-media-core/internal/upload"
)

// DownloadableMessage is the input to a download: the media
// key plus enough location information to resolve a download URL.
type DownloadableMessage struct {
	MediaKey   []byte
	DirectPath string
	URL        string
	Type       mediakeys.MediaType
}

// ResolveURL picks between DirectPath and URL, trusting URL only when it
// is rooted at the canonical media host.
func (m DownloadableMessage) ResolveURL() (string, error) {
	return mediakeys.ResolveDownloadURL(m.URL, m.DirectPath)
}

// UploadArtifact bundles an EncryptingPipeline result with the dispatcher
// result that placed it on the server.
type UploadArtifact struct {
	*mediacrypto.EncryptedArtifact
	*upload.Result
}

// Client ties the crypto pipelines to a shared HTTP client and upload
// dispatcher, giving callers (the CLI, or a higher-level messaging layer)
// a single entry point per direction.
type Client struct {
	HTTP       *http.Client
	Dispatcher *upload.Dispatcher
	Origin     string

	// SourceHTTP is used to fetch mediakeys.Source URLs in UploadSource.
	// Nil falls back to HTTP. Callers that expect to stream from remote
	// URLs should set this to a transporthttp.NewRetryableClient so a
	// single dropped connection doesn't fail the whole upload.
	SourceHTTP *http.Client
}

// UploadParams carries the dispatcher-facing knobs UploadFile layers on top
// of the encrypting pipeline: per-host custom hosts, newsletter path
// rewriting, and a per-host POST timeout.
type UploadParams struct {
	Newsletter  bool
	TimeoutMs   int64
	CustomHosts []upload.Host
}

// UploadFile streams plaintext from src through the encrypting pipeline and
// on to the upload dispatcher, returning the combined artifact.
func (c *Client) UploadFile(ctx context.Context, src io.Reader, mt mediakeys.MediaType, opts mediacrypto.EncryptOptions, params UploadParams) (*UploadArtifact, error) {
	var ciphertext bytesBuffer
	artifact, err := mediacrypto.EncryptingPipeline(ctx, src, mt, opts, &ciphertext)
	if err != nil {
		return nil, err
	}

	result, err := c.Dispatcher.Upload(ctx, &ciphertext, upload.Params{
		MediaType:     mt,
		FileEncSha256: artifact.FileEncSha256[:],
		Newsletter:    params.Newsletter,
		TimeoutMs:     params.TimeoutMs,
		CustomHosts:   params.CustomHosts,
		Origin:        c.Origin,
	})
	if err != nil {
		return nil, err
	}

	return &UploadArtifact{EncryptedArtifact: artifact, Result: result}, nil
}

// UploadSource adapts src into a single-use stream via
// mediakeys.Source.Open, then encrypts and uploads it exactly like
// UploadFile. Use this when the plaintext isn't already an open io.Reader.
func (c *Client) UploadSource(ctx context.Context, src mediakeys.Source, mt mediakeys.MediaType, opts mediacrypto.EncryptOptions, params UploadParams) (*UploadArtifact, error) {
	httpClient := c.SourceHTTP
	if httpClient == nil {
		httpClient = c.HTTP
	}
	rc, err := src.Open(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return c.UploadFile(ctx, rc, mt, opts, params)
}

// DownloadFile resolves msg's URL, derives its keys, and decrypts the
// fetched ciphertext into dst, optionally restricted to [startByte,
// endByte).
func (c *Client) DownloadFile(ctx context.Context, msg DownloadableMessage, opts mediacrypto.DecryptOptions, dst io.Writer) error {
	url, err := msg.ResolveURL()
	if err != nil {
		return err
	}
	return c.DownloadFromURL(ctx, url, msg.MediaKey, msg.Type, opts, dst)
}

// DownloadFromURL derives keys for mediaKey/mt and decrypts the object
// fetched from url into dst. Split out from DownloadFile so callers (and
// tests) can bypass the mmg.whatsapp.net host trust check when the caller
// has already resolved or otherwise authenticated the URL.
func (c *Client) DownloadFromURL(ctx context.Context, url string, mediaKey []byte, mt mediakeys.MediaType, opts mediacrypto.DecryptOptions, dst io.Writer) error {
	keys, err := mediakeys.DeriveKeys(mediaKey, mt)
	if err != nil {
		return err
	}
	defer keys.Zero()

	if opts.Origin == "" {
		opts.Origin = c.Origin
	}

	return mediacrypto.Decrypt(ctx, c.HTTP, url, keys, opts, dst)
}

// bytesBuffer is the minimal io.ReadWriter the upload path needs: write the
// ciphertext as the encrypting pipeline produces it, then hand the whole
// thing to the dispatcher as a single reader.
type bytesBuffer struct {
	data []byte
	pos  int
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
