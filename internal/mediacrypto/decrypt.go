package mediacrypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strconv"

	"github.com/rescale-labs/wa-media-core/internal/constants"
	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

// DecryptOptions configures one DecryptingPipeline run.
type DecryptOptions struct {
	// StartByte is the first plaintext byte (inclusive) the caller wants.
	StartByte int64

	// EndByte is the last plaintext byte (exclusive) the caller wants, or
	// nil for "to the end of the object".
	EndByte *int64

	// VerifyMAC, when true and StartByte==0 && EndByte==nil, accumulates an
	// HMAC over the ciphertext and compares it against the trailing 10-byte
	// tag before returning.
	VerifyMAC bool

	// Origin is sent as the Origin header on the HTTP GET.
	Origin string
}

func floorBlock(n int64) int64 {
	return (n / int64(constants.BlockSize)) * int64(constants.BlockSize)
}

// rangeHeader computes the byte-range fetch window for opts and whether
// the first received block must be consumed as the CBC IV.
func rangeHeader(opts DecryptOptions) (header string, chunkStart int64, firstBlockIsIV bool) {
	if opts.StartByte <= 0 && opts.EndByte == nil {
		return "", 0, false
	}

	chunkStart = floorBlock(opts.StartByte)
	firstBlockIsIV = chunkStart > 0

	offset, length := FetchWindow(opts)
	if length >= 0 {
		header = "bytes=" + strconv.FormatInt(offset, 10) + "-" + strconv.FormatInt(offset+length-1, 10)
	} else if offset > 0 {
		header = "bytes=" + strconv.FormatInt(offset, 10) + "-"
	}

	return header, chunkStart, firstBlockIsIV
}

// FetchWindow returns the ciphertext offset DecryptStream expects its
// reader positioned at for opts and, when opts bounds the range, the
// number of ciphertext bytes to supply from that offset. A length of -1
// means "through the end of the object". Callers decrypting a local
// ciphertext file use this to seek before handing the file to
// DecryptStream; the HTTP path derives the same window via rangeHeader.
func FetchWindow(opts DecryptOptions) (offset, length int64) {
	if opts.StartByte <= 0 && opts.EndByte == nil {
		return 0, -1
	}

	chunkStart := floorBlock(opts.StartByte)
	offset = chunkStart
	if chunkStart > 0 {
		offset = chunkStart - int64(constants.BlockSize)
	}
	if opts.EndByte != nil {
		return offset, floorBlock(*opts.EndByte) + int64(constants.BlockSize) - offset
	}
	return offset, -1
}

// Fetch issues the HTTP GET for a download, setting Origin and Range
// headers as required by opts, and returns the response body for
// DecryptStream to consume.
func Fetch(ctx context.Context, client *http.Client, url string, opts DecryptOptions) (io.ReadCloser, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("mediacrypto: building download request: %w", mediaerr.ErrStreamError)
	}
	if opts.Origin != "" {
		req.Header.Set("Origin", opts.Origin)
	}
	if header, _, _ := rangeHeader(opts); header != "" {
		req.Header.Set("Range", header)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediacrypto: fetching download: %w", mediaerr.ErrStreamError)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("mediacrypto: download returned status %d: %w", resp.StatusCode, mediaerr.ErrStreamError)
	}
	return resp.Body, nil
}

// Decrypt fetches url and decrypts it into dst, per opts.
func Decrypt(ctx context.Context, client *http.Client, url string, keys *mediakeys.MediaKeys, opts DecryptOptions, dst io.Writer) error {
	body, err := Fetch(ctx, client, url, opts)
	if err != nil {
		return err
	}
	defer body.Close()
	return DecryptStream(body, keys, opts, dst)
}

// DecryptStream is the pure streaming transform behind Decrypt: given a
// ciphertext reader already positioned at the offset rangeHeader would
// have requested, it decrypts and writes exactly the requested plaintext
// window to dst. Kept independent of HTTP so ranged-decrypt behavior is
// directly testable.
func DecryptStream(src io.Reader, keys *mediakeys.MediaKeys, opts DecryptOptions, dst io.Writer) error {
	_, chunkStart, firstBlockIsIV := rangeHeader(opts)
	disablePadding := opts.EndByte != nil

	block, err := aes.NewCipher(keys.CipherKey[:])
	if err != nil {
		return fmt.Errorf("mediacrypto: creating cipher: %w", err)
	}

	var mode cipher.BlockMode
	if !firstBlockIsIV {
		mode = cipher.NewCBCDecrypter(block, keys.IV[:])
	}

	verifyMAC := opts.VerifyMAC && opts.StartByte == 0 && opts.EndByte == nil
	var macHash hash.Hash
	var macLookahead []byte
	if verifyMAC {
		macHash = hmac.New(sha256.New, keys.MacKey[:])
		macHash.Write(keys.IV[:])
	}

	absOffset := chunkStart
	var remaining []byte

	emit := func(decrypted []byte) error {
		if len(decrypted) == 0 {
			return nil
		}
		start := int64(0)
		if opts.StartByte > absOffset {
			start = opts.StartByte - absOffset
		}
		end := int64(len(decrypted))
		if opts.EndByte != nil {
			rel := *opts.EndByte - absOffset
			if rel < end {
				if rel < 0 {
					rel = 0
				}
				end = rel
			}
		}
		absOffset += int64(len(decrypted))
		if start < end {
			if _, werr := dst.Write(decrypted[start:end]); werr != nil {
				return fmt.Errorf("mediacrypto: writing plaintext: %w", werr)
			}
		}
		return nil
	}

	buf := make([]byte, constants.StreamChunkSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]

			var ciphertext []byte
			if !disablePadding {
				// The wire body always carries a trailing 10-byte MAC tag
				// after the ciphertext when the fetch isn't a bounded
				// range: hold back that many bytes so they
				// never reach the block cipher, regardless of whether the
				// caller asked for MAC verification.
				macLookahead = append(macLookahead, chunk...)
				if len(macLookahead) > constants.MacTagSize {
					cut := len(macLookahead) - constants.MacTagSize
					ciphertext = append(ciphertext, macLookahead[:cut]...)
					if verifyMAC {
						macHash.Write(ciphertext)
					}
					macLookahead = macLookahead[cut:]
				}
			} else {
				ciphertext = chunk
			}

			if len(ciphertext) > 0 {
				remaining = append(remaining, ciphertext...)
			}

			if mode == nil && firstBlockIsIV && len(remaining) >= constants.BlockSize {
				iv := append([]byte(nil), remaining[:constants.BlockSize]...)
				remaining = remaining[constants.BlockSize:]
				mode = cipher.NewCBCDecrypter(block, iv)
			}

			if mode != nil {
				full := int(floorBlock(int64(len(remaining))))
				// With padding enabled the final block must stay in
				// remaining until EOF so it can be unpadded, not emitted
				// raw; hold one block back whenever the buffer is exactly
				// block-aligned.
				if !disablePadding && full == len(remaining) {
					full -= constants.BlockSize
				}
				if full > 0 {
					toDecrypt := remaining[:full]
					decrypted := make([]byte, len(toDecrypt))
					mode.CryptBlocks(decrypted, toDecrypt)
					if werr := emit(decrypted); werr != nil {
						return werr
					}
					remaining = remaining[full:]
				}
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("mediacrypto: reading ciphertext source: %w", mediaerr.ErrStreamError)
		}
	}

	if mode == nil {
		return fmt.Errorf("mediacrypto: truncated ciphertext, never received IV block: %w", mediaerr.ErrDecryptError)
	}

	if len(remaining) > 0 {
		if len(remaining)%constants.BlockSize != 0 {
			return fmt.Errorf("mediacrypto: truncated ciphertext: %w", mediaerr.ErrDecryptError)
		}
		decrypted := make([]byte, len(remaining))
		mode.CryptBlocks(decrypted, remaining)
		if !disablePadding {
			decrypted, err = pkcs7Unpad(decrypted)
			if err != nil {
				return err
			}
		}
		if werr := emit(decrypted); werr != nil {
			return werr
		}
	} else if !disablePadding {
		return fmt.Errorf("mediacrypto: missing final padded block: %w", mediaerr.ErrDecryptError)
	}

	if !disablePadding {
		if len(macLookahead) != constants.MacTagSize {
			return fmt.Errorf("mediacrypto: truncated mac tag: %w", mediaerr.ErrDecryptError)
		}
		if verifyMAC {
			computed := macHash.Sum(nil)[:constants.MacTagSize]
			if !hmac.Equal(computed, macLookahead) {
				return mediaerr.ErrMACMismatch
			}
		}
	}

	return nil
}
