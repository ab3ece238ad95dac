package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/winetrace/winetracego/internal/config"
)

// ErrGatewayUnavailable: the IPFS daemon cannot be reached
var ErrGatewayUnavailable = errors.New("IPFS daemon unreachable")

// VersionInfo is the daemon's version response
type VersionInfo struct {
	Version string `json:"Version"`
	Commit  string `json:"Commit"`
}

// Client wraps the IPFS daemon HTTP API: file upload, connectivity probe and
// gateway URL construction.
type Client struct {
	apiURL     string
	gatewayURL string
	httpClient *http.Client
}

// NewClient creates an IPFS client for the configured daemon
func NewClient(cfg config.IPFSConfig) *Client {
	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Add uploads a file to the daemon and returns its content identifier
func (c *Client) Add(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to IPFS: %w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("IPFS add returned status %d", resp.StatusCode)
	}

	var result struct {
		Hash string `json:"Hash"`
		Name string `json:"Name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse IPFS add response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("IPFS add returned no hash")
	}
	return result.Hash, nil
}

// Version probes daemon connectivity. Returns nil info when unreachable,
// so callers can gate uploads on a working daemon.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/version", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe IPFS daemon: %w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("IPFS version returned status %d", resp.StatusCode)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse IPFS version response: %w", err)
	}
	return &info, nil
}

// GatewayURL builds the public read URL for a content identifier.
// Pure string templating, no network call.
func (c *Client) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", c.gatewayURL, cid)
}
