package mediacrypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/rescale-labs/wa-media-core/internal/constants"
	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

// EncryptedArtifact is the output of an EncryptingPipeline run.
type EncryptedArtifact struct {
	MediaKey      []byte
	FileLength    int64
	FileSha256    [32]byte
	FileEncSha256 [32]byte
	Mac           [10]byte
	BodyPath      string
}

// EncryptOptions configures one EncryptingPipeline run.
type EncryptOptions struct {
	// MaxContentLength fails the run with mediaerr.ErrSizeExceeded once
	// plaintext read so far exceeds this many bytes. Zero means unlimited.
	MaxContentLength int64

	// SaveOriginalPath, if non-empty, tees the plaintext to this path as it
	// is read. The file is removed if the run fails.
	SaveOriginalPath string
}

// EncryptingPipeline streams plaintext from src through AES-256-CBC +
// HMAC-SHA256 to dst, generating a fresh random media key for the run.
// Encryption is a single streaming pass: plaintext and ciphertext SHA-256
// digests accumulate concurrently with the cipher and MAC.
func EncryptingPipeline(ctx context.Context, src io.Reader, mt mediakeys.MediaType, opts EncryptOptions, dst io.Writer) (artifact *EncryptedArtifact, err error) {
	mediaKey := make([]byte, constants.MediaKeySize)
	if _, rerr := rand.Read(mediaKey); rerr != nil {
		return nil, fmt.Errorf("mediacrypto: generating media key: %w", rerr)
	}

	keys, err := mediakeys.DeriveKeys(mediaKey, mt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keys.CipherKey[:])
	if err != nil {
		keys.Zero()
		return nil, fmt.Errorf("mediacrypto: creating cipher: %w", err)
	}
	mode := cipher.NewCBCEncrypter(block, keys.IV[:])

	mac := hmac.New(sha256.New, keys.MacKey[:])
	mac.Write(keys.IV[:])

	shaPlain := sha256.New()
	shaEnc := sha256.New()

	var tempFile *os.File
	if opts.SaveOriginalPath != "" {
		tempFile, err = os.Create(opts.SaveOriginalPath)
		if err != nil {
			keys.Zero()
			return nil, fmt.Errorf("mediacrypto: creating save-original file: %w", err)
		}
	}

	defer func() {
		keys.Zero()
		if tempFile != nil {
			tempFile.Close()
			if err != nil {
				os.Remove(opts.SaveOriginalPath)
			}
		}
	}()

	bufPtr := getStreamBuffer()
	defer putStreamBuffer(bufPtr)
	buf := *bufPtr

	var total int64
	var pending []byte

	emit := func(e []byte) error {
		if len(e) == 0 {
			return nil
		}
		mac.Write(e)
		shaEnc.Write(e)
		_, werr := dst.Write(e)
		return werr
	}

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			total += int64(n)
			if opts.MaxContentLength > 0 && total > opts.MaxContentLength {
				return nil, fmt.Errorf("mediacrypto: plaintext exceeds %d bytes: %w", opts.MaxContentLength, mediaerr.ErrSizeExceeded)
			}

			shaPlain.Write(chunk)
			if tempFile != nil {
				if _, werr := tempFile.Write(chunk); werr != nil {
					return nil, fmt.Errorf("mediacrypto: writing save-original copy: %w", werr)
				}
			}

			pending = append(pending, chunk...)
			full := (len(pending) / aes.BlockSize) * aes.BlockSize
			if full > 0 {
				toEncrypt := pending[:full]
				encrypted := make([]byte, len(toEncrypt))
				mode.CryptBlocks(encrypted, toEncrypt)
				if werr := emit(encrypted); werr != nil {
					return nil, fmt.Errorf("mediacrypto: writing ciphertext: %w", werr)
				}
				pending = pending[full:]
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("mediacrypto: reading plaintext source: %w", mediaerr.ErrStreamError)
		}
	}

	padded := pkcs7Pad(pending, aes.BlockSize)
	finalBlocks := make([]byte, len(padded))
	mode.CryptBlocks(finalBlocks, padded)
	if werr := emit(finalBlocks); werr != nil {
		return nil, fmt.Errorf("mediacrypto: writing final ciphertext block: %w", werr)
	}

	var macTag [10]byte
	copy(macTag[:], mac.Sum(nil)[:10])
	shaEnc.Write(macTag[:])
	if _, werr := dst.Write(macTag[:]); werr != nil {
		return nil, fmt.Errorf("mediacrypto: writing mac: %w", werr)
	}

	artifact = &EncryptedArtifact{
		MediaKey:   mediaKey,
		FileLength: total,
		Mac:        macTag,
		BodyPath:   opts.SaveOriginalPath,
	}
	copy(artifact.FileSha256[:], shaPlain.Sum(nil))
	copy(artifact.FileEncSha256[:], shaEnc.Sum(nil))
	return artifact, nil
}

// pkcs7Pad applies PKCS#7 padding to data for blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

// pkcs7Unpad removes and validates PKCS#7 padding.
func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		return nil, fmt.Errorf("mediacrypto: empty block: %w", mediaerr.ErrDecryptError)
	}
	padding := int(data[length-1])
	if padding == 0 || padding > length || padding > aes.BlockSize {
		return nil, fmt.Errorf("mediacrypto: invalid padding size %d: %w", padding, mediaerr.ErrDecryptError)
	}
	for i := 0; i < padding; i++ {
		if data[length-1-i] != byte(padding) {
			return nil, fmt.Errorf("mediacrypto: invalid padding byte: %w", mediaerr.ErrDecryptError)
		}
	}
	return data[:length-padding], nil
}
