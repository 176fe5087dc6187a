package retryproto

import (
	"crypto/rand"
	"testing"
)

func randomMediaKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return key
}

func TestEncryptDecodeDecryptRoundTrip(t *testing.T) {
	mediaKey := randomMediaKey(t)
	msgKey := MessageKey{ID: "3EB0C767D", RemoteJID: "123456@s.whatsapp.net", FromMe: true}

	node, err := EncryptRetryRequest(msgKey, mediaKey, "1234:1@s.whatsapp.net")
	if err != nil {
		t.Fatalf("EncryptRetryRequest: %v", err)
	}

	if node.Tag != "receipt" {
		t.Fatalf("node.Tag = %q, want receipt", node.Tag)
	}
	if node.Attrs["to"] != "1234@s.whatsapp.net" {
		t.Fatalf("to attr = %q, want normalized jid without device suffix", node.Attrs["to"])
	}

	enc := node.Child("encrypt")
	if enc == nil {
		t.Fatal("expected encrypt child")
	}
	if len(enc.Attrs["enc_iv"]) != 12 {
		t.Fatalf("enc_iv length = %d, want 12", len(enc.Attrs["enc_iv"]))
	}
	// plaintext (stanzaId field) + 16-byte GCM tag.
	wantCtLen := len(marshalServerErrorReceipt(msgKey.ID)) + 16
	if len(enc.Attrs["enc_p"]) != wantCtLen {
		t.Fatalf("enc_p length = %d, want %d", len(enc.Attrs["enc_p"]), wantCtLen)
	}

	rmr := node.Child("rmr")
	if rmr == nil || rmr.Attrs["jid"] != msgKey.RemoteJID || rmr.Attrs["from_me"] != "true" {
		t.Fatalf("unexpected rmr node: %+v", rmr)
	}

	// Simulate receiving this node back as a server response and decoding it.
	serverNode := Node{
		Tag:   "receipt",
		Attrs: map[string]string{"id": msgKey.ID},
		Children: []Node{
			*enc,
			*rmr,
		},
	}

	event, err := DecodeRetryNode(serverNode)
	if err != nil {
		t.Fatalf("DecodeRetryNode: %v", err)
	}
	if event.Ciphertext == nil {
		t.Fatal("expected ciphertext in decoded event")
	}

	notification, err := DecryptRetryData(*event.Ciphertext, mediaKey, msgKey.ID)
	if err != nil {
		t.Fatalf("DecryptRetryData: %v", err)
	}
	if notification.StanzaID != msgKey.ID {
		t.Fatalf("StanzaID = %q, want %q", notification.StanzaID, msgKey.ID)
	}
}

func TestDecodeRetryNodeMissingRmr(t *testing.T) {
	_, err := DecodeRetryNode(Node{Tag: "receipt"})
	if err == nil {
		t.Fatal("expected error for missing rmr")
	}
}

func TestDecodeRetryNodeErrorStatusMapping(t *testing.T) {
	node := Node{
		Tag: "receipt",
		Children: []Node{
			{Tag: "rmr", Attrs: map[string]string{"jid": "x@s.whatsapp.net"}},
			{Tag: "error", Attrs: map[string]string{"code": "decryption-error"}},
		},
	}
	event, err := DecodeRetryNode(node)
	if err != nil {
		t.Fatalf("DecodeRetryNode: %v", err)
	}
	if event.StatusCode != 412 {
		t.Fatalf("StatusCode = %d, want 412", event.StatusCode)
	}
}

func TestMarshalUnmarshalServerErrorReceipt(t *testing.T) {
	encoded := marshalServerErrorReceipt("3EB0C767D")
	decoded, err := unmarshalServerErrorReceipt(encoded)
	if err != nil {
		t.Fatalf("unmarshalServerErrorReceipt: %v", err)
	}
	if decoded != "3EB0C767D" {
		t.Fatalf("decoded = %q, want 3EB0C767D", decoded)
	}
}

func TestDecryptRetryDataRejectsWrongAAD(t *testing.T) {
	mediaKey := randomMediaKey(t)
	msgKey := MessageKey{ID: "AAA", RemoteJID: "1@s.whatsapp.net"}
	node, err := EncryptRetryRequest(msgKey, mediaKey, "1@s.whatsapp.net")
	if err != nil {
		t.Fatalf("EncryptRetryRequest: %v", err)
	}
	enc := node.Child("encrypt")
	ct := RetryCiphertext{Ciphertext: []byte(enc.Attrs["enc_p"]), IV: []byte(enc.Attrs["enc_iv"])}

	if _, err := DecryptRetryData(ct, mediaKey, "different-msg-id"); err == nil {
		t.Fatal("expected decryption failure with mismatched AAD")
	}
}
