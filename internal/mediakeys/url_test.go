package mediakeys

import "testing"

func TestDirectPathToURL(t *testing.T) {
	got, err := DirectPathToURL("/v/t.enc")
	if err != nil {
		t.Fatalf("DirectPathToURL: %v", err)
	}
	if got != "https://mmg.whatsapp.net/v/t.enc" {
		t.Fatalf("unexpected url: %s", got)
	}

	if _, err := DirectPathToURL(""); err == nil {
		t.Fatal("expected error for empty directPath")
	}
}

func TestResolveDownloadURLPrefersTrustedURL(t *testing.T) {
	got, err := ResolveDownloadURL("https://mmg.whatsapp.net/v/a.enc", "/v/b.enc")
	if err != nil {
		t.Fatalf("ResolveDownloadURL: %v", err)
	}
	if got != "https://mmg.whatsapp.net/v/a.enc" {
		t.Fatalf("expected trusted url to take precedence, got %s", got)
	}
}

func TestResolveDownloadURLFallsBackOnUntrustedHost(t *testing.T) {
	got, err := ResolveDownloadURL("https://cdn.other/x", "/v/t.enc")
	if err != nil {
		t.Fatalf("ResolveDownloadURL: %v", err)
	}
	if got != "https://mmg.whatsapp.net/v/t.enc" {
		t.Fatalf("expected directPath fallback, got %s", got)
	}
}
