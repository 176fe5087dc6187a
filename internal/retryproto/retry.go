package retryproto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"

	"github.com/rescale-labs/wa-media-core/internal/constants"
	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
)

// retryInfo is the HKDF info string for the media-retry subkey, part of
// the protocol ABI.
const retryInfo = "WhatsApp Media Retry Notification"

// statusCodeByTag maps the retry error node's textual code to the
// HTTP-like status the caller sees.
var statusCodeByTag = map[string]int{
	"success":          200,
	"decryption-error": 412,
	"not-found":        404,
	"general-error":    418,
}

// MessageKey identifies a single message within a chat.
type MessageKey struct {
	ID          string
	RemoteJID   string
	FromMe      bool
	Participant string
}

// RetryCiphertext is the encrypted payload extracted from a retry node's
// encrypt child.
type RetryCiphertext struct {
	Ciphertext []byte
	IV         []byte
}

// MediaUpdateEvent is what decoding a retry node yields: either an error
// status from the peer, or an encrypted notification to decrypt.
type MediaUpdateEvent struct {
	Key        MessageKey
	StatusCode int
	Ciphertext *RetryCiphertext
}

// MediaRetryNotification is the decoded payload of a successful retry
// response: the stanza ID of the message whose media is being re-offered.
type MediaRetryNotification struct {
	StanzaID string
}

func deriveRetryKey(mediaKey []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, mediaKey, nil, []byte(retryInfo)), key); err != nil {
		return nil, fmt.Errorf("retryproto: deriving retry key: %w", err)
	}
	return key, nil
}

func gcmFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("retryproto: creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// marshalServerErrorReceipt wire-encodes a ServerErrorReceipt{stanzaId}
// message: a single string field (protobuf field 1), matching the
// WhatsApp protocol's media-retry receipt payload.
func marshalServerErrorReceipt(stanzaID string) []byte {
	out := make([]byte, 0, len(stanzaID)+10)
	out = append(out, 0x0A) // field 1, wire type 2 (length-delimited)
	out = appendVarint(out, uint64(len(stanzaID)))
	out = append(out, stanzaID...)
	return out
}

// unmarshalServerErrorReceipt decodes the payload marshalServerErrorReceipt
// produces.
func unmarshalServerErrorReceipt(data []byte) (string, error) {
	if len(data) < 2 || data[0] != 0x0A {
		return "", fmt.Errorf("retryproto: malformed receipt payload: %w", mediaerr.ErrRetryError)
	}
	length, n := readVarint(data[1:])
	if n == 0 || 1+n+int(length) > len(data) {
		return "", fmt.Errorf("retryproto: truncated receipt payload: %w", mediaerr.ErrRetryError)
	}
	return string(data[1+n : 1+n+int(length)]), nil
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readVarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// EncryptRetryRequest builds the "receipt" node a client sends to ask a
// peer to re-upload media for msgKey. meJid is normalized
// before being placed in the "to" attribute.
func EncryptRetryRequest(msgKey MessageKey, mediaKey []byte, meJid string) (Node, error) {
	retryKey, err := deriveRetryKey(mediaKey)
	if err != nil {
		return Node{}, err
	}

	aead, err := gcmFor(retryKey)
	if err != nil {
		return Node{}, err
	}

	iv := make([]byte, constants.RetryNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return Node{}, fmt.Errorf("retryproto: generating iv: %w", err)
	}

	plaintext := marshalServerErrorReceipt(msgKey.ID)
	aad := []byte(msgKey.ID)
	ciphertext := aead.Seal(nil, iv, plaintext, aad)

	rmrAttrs := map[string]string{
		"jid":     msgKey.RemoteJID,
		"from_me": strconv.FormatBool(msgKey.FromMe),
	}
	if msgKey.Participant != "" {
		rmrAttrs["participant"] = msgKey.Participant
	}

	return Node{
		Tag: "receipt",
		Attrs: map[string]string{
			"id":   msgKey.ID,
			"to":   NormalizeJID(meJid),
			"type": "server-error",
		},
		Children: []Node{
			{
				Tag: "encrypt",
				Attrs: map[string]string{
					"enc_p":  string(ciphertext),
					"enc_iv": string(iv),
				},
			},
			{Tag: "rmr", Attrs: rmrAttrs},
		},
	}, nil
}

// DecodeRetryNode reads a received retry response node into a
// MediaUpdateEvent: either an error status, or the
// ciphertext/iv pair to decrypt with DecryptRetryData.
func DecodeRetryNode(node Node) (*MediaUpdateEvent, error) {
	rmr := node.Child("rmr")
	if rmr == nil {
		return nil, fmt.Errorf("retryproto: retry node missing rmr child: %w", mediaerr.ErrRetryError)
	}

	key := MessageKey{
		ID:          node.Attrs["id"],
		RemoteJID:   rmr.Attrs["jid"],
		FromMe:      rmr.Attrs["from_me"] == "true",
		Participant: rmr.Attrs["participant"],
	}

	if errNode := node.Child("error"); errNode != nil {
		code, ok := statusCodeByTag[errNode.Attrs["code"]]
		if !ok {
			code = statusCodeByTag["general-error"]
		}
		return &MediaUpdateEvent{Key: key, StatusCode: code}, nil
	}

	enc := node.Child("encrypt")
	if enc == nil {
		return nil, fmt.Errorf("retryproto: retry node missing encrypt child: %w", mediaerr.ErrRetryError)
	}
	encP, okP := enc.Attrs["enc_p"]
	encIV, okIV := enc.Attrs["enc_iv"]
	if !okP || !okIV {
		return &MediaUpdateEvent{Key: key, StatusCode: 404}, nil
	}

	return &MediaUpdateEvent{
		Key:        key,
		StatusCode: 200,
		Ciphertext: &RetryCiphertext{Ciphertext: []byte(encP), IV: []byte(encIV)},
	}, nil
}

// DecryptRetryData decrypts the ciphertext/iv pair a MediaUpdateEvent
// carries into the notification's stanza ID, using msgID as GCM AAD
// exactly as EncryptRetryRequest bound it.
func DecryptRetryData(ct RetryCiphertext, mediaKey []byte, msgID string) (*MediaRetryNotification, error) {
	retryKey, err := deriveRetryKey(mediaKey)
	if err != nil {
		return nil, err
	}

	aead, err := gcmFor(retryKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, ct.IV, ct.Ciphertext, []byte(msgID))
	if err != nil {
		return nil, fmt.Errorf("retryproto: decrypting retry payload: %w", mediaerr.ErrRetryError)
	}

	stanzaID, err := unmarshalServerErrorReceipt(plaintext)
	if err != nil {
		return nil, err
	}

	return &MediaRetryNotification{StanzaID: stanzaID}, nil
}
