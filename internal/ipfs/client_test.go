package ipfs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/winetrace/winetracego/internal/config"
)

func newTestClient(apiURL string) *Client {
	return NewClient(config.IPFSConfig{
		APIURL:     apiURL,
		GatewayURL: "http://127.0.0.1:8080",
	})
}

func TestAddReturnsHash(t *testing.T) {
	var gotPath, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer file.Close()
			gotFilename = header.Filename
			payload, _ := io.ReadAll(file)
			if string(payload) != "certificate body" {
				t.Errorf("payload = %q", payload)
			}
		}
		w.Write([]byte(`{"Name":"cert.pdf","Hash":"QmTestCid123","Size":"16"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	cid, err := client.Add(context.Background(), "cert.pdf", strings.NewReader("certificate body"))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if cid != "QmTestCid123" {
		t.Errorf("cid = %q, want QmTestCid123", cid)
	}
	if gotPath != "/api/v0/add" {
		t.Errorf("path = %q, want /api/v0/add", gotPath)
	}
	if gotFilename != "cert.pdf" {
		t.Errorf("filename = %q, want cert.pdf", gotFilename)
	}
}

func TestAddRejectsEmptyHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Name":"cert.pdf","Hash":""}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Add(context.Background(), "cert.pdf", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty hash")
	}
}

func TestAddDaemonUnreachable(t *testing.T) {
	// nothing listens here
	client := newTestClient("http://127.0.0.1:59999")
	_, err := client.Add(context.Background(), "cert.pdf", strings.NewReader("x"))
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/version" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		w.Write([]byte(`{"Version":"0.29.0","Commit":"abc123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	info, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if info.Version != "0.29.0" || info.Commit != "abc123" {
		t.Errorf("info = %+v", info)
	}
}

func TestVersionDaemonUnreachable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:59999")
	_, err := client.Version(context.Background())
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestGatewayURL(t *testing.T) {
	client := NewClient(config.IPFSConfig{
		APIURL:     "http://127.0.0.1:5001",
		GatewayURL: "http://127.0.0.1:8080/",
	})
	got := client.GatewayURL("QmTestCid123")
	want := "http://127.0.0.1:8080/ipfs/QmTestCid123"
	if got != want {
		t.Errorf("GatewayURL = %q, want %q", got, want)
	}
}
