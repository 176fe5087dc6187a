package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rescale-labs/wa-media-core/internal/mediaerr"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

func staticRefresh(hosts []Host) RefreshFunc {
	return func(ctx context.Context, force bool) (*ConnInfo, error) {
		return &ConnInfo{Auth: "tok", Hosts: hosts}, nil
	}
}

func TestUploadFallsThroughBodyTooLargeHost(t *testing.T) {
	var hitSecond bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitSecond = true
		json.NewEncoder(w).Encode(serverResponse{URL: "https://mmg.whatsapp.net/v/t.enc", DirectPath: "/v/t.enc", Handle: "h"})
	}))
	defer srv.Close()

	body := bytes.Repeat([]byte{0x01}, 100)

	d := NewDispatcher(srv.Client(), staticRefresh(nil))
	d.Scheme = "http"
	d.Retry.MaxRetries = 1

	params := Params{
		MediaType:     mediakeys.MediaImage,
		FileEncSha256: bytes.Repeat([]byte{0xAA}, 32),
		CustomHosts: []Host{
			{Hostname: "oversized.example", MaxContentLengthBytes: 10},
			{Hostname: srv.Listener.Addr().String()},
		},
	}

	result, err := d.Upload(context.Background(), bytes.NewReader(body), params)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !hitSecond {
		t.Fatal("expected second host to be hit after first was skipped")
	}
	if result.DirectPath != "/v/t.enc" {
		t.Fatalf("DirectPath = %q, want /v/t.enc", result.DirectPath)
	}
}

func TestUploadRefreshesAuthAfterEmptyResponse(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(serverResponse{URL: "https://mmg.whatsapp.net/v/x.enc", DirectPath: "/v/x.enc"})
	}))
	defer good.Close()

	var forced bool
	d := NewDispatcher(http.DefaultClient, func(ctx context.Context, force bool) (*ConnInfo, error) {
		if force {
			forced = true
		}
		return &ConnInfo{Auth: "tok"}, nil
	})
	d.Scheme = "http"
	d.Retry.MaxRetries = 1

	params := Params{
		MediaType:     mediakeys.MediaImage,
		FileEncSha256: bytes.Repeat([]byte{0xAA}, 32),
		CustomHosts: []Host{
			{Hostname: bad.Listener.Addr().String()},
			{Hostname: good.Listener.Addr().String()},
		},
	}

	result, err := d.Upload(context.Background(), bytes.NewReader([]byte("x")), params)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.DirectPath != "/v/x.enc" {
		t.Fatalf("DirectPath = %q, want /v/x.enc", result.DirectPath)
	}
	if !forced {
		t.Fatal("expected a forced auth refresh after the empty response")
	}
}

func TestUploadAllHostsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.Client(), staticRefresh(nil))
	d.Scheme = "http"
	d.Retry.MaxRetries = 1

	params := Params{
		MediaType:     mediakeys.MediaImage,
		FileEncSha256: bytes.Repeat([]byte{0xAA}, 32),
		CustomHosts: []Host{
			{Hostname: srv.Listener.Addr().String()},
		},
	}

	_, err := d.Upload(context.Background(), bytes.NewReader([]byte("x")), params)
	if err == nil {
		t.Fatal("expected error when all hosts fail")
	}
	if !mediaerr.IsUploadFailedError(err) {
		t.Fatalf("expected UploadFailed, got %v", err)
	}
}
