package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestDownload_WritesFile(t *testing.T) {
	payload := strings.Repeat("x", 2048)
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		if _, err := w.Write([]byte(payload)); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client := newTestClient(t)
	dir := t.TempDir()

	path, err := client.Download(context.Background(), svr.URL, dir, "image", "jpg", 1024)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Errorf("Expected .jpg suffix, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != payload {
		t.Error("Written payload does not match response body")
	}
}

func TestDownload_RejectsUndersizedPayload(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		if _, err := w.Write([]byte("not found")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client := newTestClient(t)

	if _, err := client.Download(context.Background(), svr.URL, t.TempDir(), "image", "jpg", 1024); err == nil {
		t.Fatal("Expected error for undersized payload, got nil")
	}
}

func TestDownload_DataURI(t *testing.T) {
	client := newTestClient(t)
	dir := t.TempDir()

	// "hello postcard" base64-encoded
	uri := "data:image/png;base64,aGVsbG8gcG9zdGNhcmQ="

	path, err := client.Download(context.Background(), uri, dir, "inline", "png", 1)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello postcard" {
		t.Errorf("Decoded payload = %q, want %q", data, "hello postcard")
	}
}

func TestDecodeDataURI_Malformed(t *testing.T) {
	if _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Fatal("Expected error for data URI without comma")
	}
	if _, err := decodeDataURI("data:image/png;base64,!!!"); err == nil {
		t.Fatal("Expected error for invalid base64 payload")
	}
}
