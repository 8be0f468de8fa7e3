// Package confluence publishes documents to a Confluence space over the
// REST API (v1 content endpoints).
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Page struct {
	ID    string
	Title string
	URL   string
}

type Client struct {
	baseURL  string
	apiURL   string
	username string
	token    string
	spaceKey string
	client   *http.Client
}

func NewClient(baseURL, username, token, spaceKey string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:  baseURL,
		apiURL:   baseURL + "/wiki/rest/api",
		username: username,
		token:    token,
		spaceKey: spaceKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SpaceKey() string { return c.spaceKey }

type storageBody struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

type createPageRequest struct {
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Space     map[string]string   `json:"space"`
	Body      map[string]any      `json:"body"`
	Ancestors []map[string]string `json:"ancestors,omitempty"`
}

type contentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// Ping checks that the configured space is reachable with the credentials
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/space/"+c.spaceKey, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// CreatePage creates a page in storage format. parentID may be empty.
func (c *Client) CreatePage(ctx context.Context, title, storage, parentID string) (*Page, error) {
	payload := createPageRequest{
		Type:  "page",
		Title: title,
		Space: map[string]string{"key": c.spaceKey},
		Body: map[string]any{
			"storage": storageBody{Value: storage, Representation: "storage"},
		},
	}
	if parentID != "" {
		payload.Ancestors = []map[string]string{{"id": parentID}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/content", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, "application/json")
	if err != nil {
		return nil, fmt.Errorf("create page %q: %w", title, err)
	}
	defer resp.Body.Close()

	var out contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &Page{ID: out.ID, Title: title, URL: c.baseURL + "/wiki" + out.Links.WebUI}, nil
}

// AttachFile uploads a local file as a page attachment
func (c *Client) AttachFile(ctx context.Context, pageID, path, comment string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if comment != "" {
		if err := w.WriteField("comment", comment); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/content/"+pageID+"/child/attachment", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("X-Atlassian-Token", "nocheck")

	resp, err := c.do(req, w.FormDataContentType())
	if err != nil {
		return fmt.Errorf("attach %s: %w", filepath.Base(path), err)
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(req *http.Request, contentType string) (*http.Response, error) {
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("confluence api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
