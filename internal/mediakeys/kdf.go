package mediakeys

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/rescale-labs/wa-media-core/internal/constants"
	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
)

// infoString builds the ASCII "WhatsApp <Label> Keys" info string for t.
// The label table is part of the protocol ABI and must
// not be reworded.
func infoString(t MediaType) (string, error) {
	label, ok := infoLabels[t]
	if !ok {
		return "", fmt.Errorf("mediakeys: unknown media type %q: %w", t, mediaerr.ErrInvalidKey)
	}
	return "WhatsApp " + label + " Keys", nil
}

// NormalizeMediaKey accepts a raw 32-byte key or a base64-encoded key,
// optionally carrying a "data:;base64," prefix, and returns the raw bytes.
func NormalizeMediaKey(in []byte) ([]byte, error) {
	if len(in) == constants.MediaKeySize {
		return in, nil
	}

	s := strings.TrimPrefix(string(in), "data:;base64,")
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("mediakeys: malformed media key: %w", mediaerr.ErrInvalidKey)
	}
	if len(decoded) != constants.MediaKeySize {
		return nil, fmt.Errorf("mediakeys: media key must decode to %d bytes, got %d: %w",
			constants.MediaKeySize, len(decoded), mediaerr.ErrInvalidKey)
	}
	return decoded, nil
}

// DeriveKeys expands mediaKey via HKDF-SHA256 (empty salt) into a 112-byte
// block split into iv(16)/cipherKey(32)/macKey(32)/refKey(32), using the
// info string selected by t. Deterministic: the same (mediaKey, t) always
// yields the same MediaKeys.
func DeriveKeys(mediaKey []byte, t MediaType) (*MediaKeys, error) {
	raw, err := NormalizeMediaKey(mediaKey)
	if err != nil {
		return nil, err
	}

	info, err := infoString(t)
	if err != nil {
		return nil, err
	}

	material := make([]byte, constants.DerivedKeyMaterialSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw, nil, []byte(info)), material); err != nil {
		return nil, fmt.Errorf("mediakeys: hkdf expansion failed: %w", err)
	}

	keys := &MediaKeys{}
	copy(keys.IV[:], material[0:16])
	copy(keys.CipherKey[:], material[16:48])
	copy(keys.MacKey[:], material[48:80])
	copy(keys.RefKey[:], material[80:112])
	return keys, nil
}
