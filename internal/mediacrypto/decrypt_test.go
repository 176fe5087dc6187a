package mediacrypto

import (
	"bytes"
	"testing"

	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

func TestRangedDecryptMatchesSlice(t *testing.T) {
	plaintext := make([]byte, 100)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	ciphertext := wire[:len(wire)-10]

	startByte := int64(20)
	endByte := int64(40)
	opts := DecryptOptions{StartByte: startByte, EndByte: &endByte}

	header, chunkStart, firstBlockIsIV := rangeHeader(opts)
	if !firstBlockIsIV {
		t.Fatal("expected firstBlockIsIV for a mid-stream range starting past block 0")
	}
	if chunkStart != 16 {
		t.Fatalf("chunkStart = %d, want 16", chunkStart)
	}
	if header == "" {
		t.Fatal("expected a non-empty Range header for a ranged request")
	}

	// Simulate the fetched window: one block earlier than chunkStart through
	// floorBlock(endByte)+blockSize, taken directly from the full ciphertext
	// since this test exercises the streaming transform, not HTTP transport.
	fetchFrom := chunkStart - 16
	fetchTo := floorBlock(endByte) + 16
	window := ciphertext[fetchFrom:fetchTo]

	var out bytes.Buffer
	if err := DecryptStream(bytes.NewReader(window), keys, opts, &out); err != nil {
		t.Fatalf("DecryptStream: %v", err)
	}

	want := plaintext[startByte:endByte]
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("ranged decrypt = %v, want %v", out.Bytes(), want)
	}
}

func TestOpenEndedRangeDecryptsToEOF(t *testing.T) {
	plaintext := make([]byte, 100)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	opts := DecryptOptions{StartByte: 20}
	offset, length := FetchWindow(opts)
	if length != -1 {
		t.Fatalf("FetchWindow length = %d, want -1 for an open-ended range", length)
	}

	// An open-ended range fetch runs through the end of the object, so the
	// window includes the trailing mac tag.
	var out bytes.Buffer
	if err := DecryptStream(bytes.NewReader(wire[offset:]), keys, opts, &out); err != nil {
		t.Fatalf("DecryptStream: %v", err)
	}
	if !bytes.Equal(out.Bytes(), plaintext[20:]) {
		t.Fatalf("open-ended range = %v, want plaintext[20:]", out.Bytes())
	}
}

func TestFetchWindow(t *testing.T) {
	end := int64(40)
	cases := []struct {
		name       string
		opts       DecryptOptions
		wantOffset int64
		wantLength int64
	}{
		{"unranged", DecryptOptions{}, 0, -1},
		{"mid-block start", DecryptOptions{StartByte: 20, EndByte: &end}, 0, 48},
		{"start in first block", DecryptOptions{StartByte: 5}, 0, -1},
		{"block-aligned start", DecryptOptions{StartByte: 32}, 16, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			offset, length := FetchWindow(c.opts)
			if offset != c.wantOffset || length != c.wantLength {
				t.Errorf("FetchWindow = (%d, %d), want (%d, %d)", offset, length, c.wantOffset, c.wantLength)
			}
		})
	}
}

func TestDecryptTruncatedCiphertextErrors(t *testing.T) {
	plaintext := make([]byte, 100)
	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	// Chop mid-block: the held-back mac bytes absorb the tail, leaving a
	// non-block-aligned ciphertext remainder.
	truncated := wire[:len(wire)-13]

	var out bytes.Buffer
	if derr := DecryptStream(bytes.NewReader(truncated), keys, DecryptOptions{}, &out); derr == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}

func TestWholeObjectRangeEquivalentToFullDecrypt(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}
	ciphertext := wire[:len(wire)-10]

	full := int64(len(plaintext))
	opts := DecryptOptions{StartByte: 0, EndByte: &full}

	var out bytes.Buffer
	if err := DecryptStream(bytes.NewReader(ciphertext), keys, opts, &out); err != nil {
		t.Fatalf("DecryptStream: %v", err)
	}
	if !bytes.Equal(out.Bytes(), plaintext) {
		t.Fatalf("startByte=0,endByte=len(P) should behave like whole-file decrypt")
	}
}

func TestDecryptFullWireDefaultOptions(t *testing.T) {
	plaintext := []byte("the default decrypt path, no verify-mac, no range")
	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	var out bytes.Buffer
	if err := DecryptStream(bytes.NewReader(wire), keys, DecryptOptions{}, &out); err != nil {
		t.Fatalf("DecryptStream with full wire bytes and default options: %v", err)
	}
	if !bytes.Equal(out.Bytes(), plaintext) {
		t.Fatalf("decrypt = %q, want %q", out.Bytes(), plaintext)
	}
}

func TestDecryptVerifyMACAcceptsValidTag(t *testing.T) {
	plaintext := []byte("verify me")
	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	var out bytes.Buffer
	opts := DecryptOptions{VerifyMAC: true}
	if err := DecryptStream(bytes.NewReader(wire), keys, opts, &out); err != nil {
		t.Fatalf("DecryptStream with VerifyMAC: %v", err)
	}
	if !bytes.Equal(out.Bytes(), plaintext) {
		t.Fatal("verified decrypt did not reproduce plaintext")
	}
}

func TestDecryptVerifyMACRejectsTamperedTag(t *testing.T) {
	plaintext := []byte("verify me")
	artifact, wire := encryptAll(t, plaintext)
	keys, err := mediakeys.DeriveKeys(artifact.MediaKey, mediakeys.MediaImage)
	if err != nil {
		t.Fatalf("DeriveKeys: %v", err)
	}

	tampered := append([]byte(nil), wire...)
	tampered[len(tampered)-1] ^= 0xFF

	var out bytes.Buffer
	opts := DecryptOptions{VerifyMAC: true}
	err = DecryptStream(bytes.NewReader(tampered), keys, opts, &out)
	if err == nil {
		t.Fatal("expected mac mismatch error for tampered tag")
	}
}
