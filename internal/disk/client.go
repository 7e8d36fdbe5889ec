package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const cloudAPIBaseURL = "https://cloud-api.yandex.net/v1/disk"

// ErrNotFound marks a path that does not exist on the drive.
var ErrNotFound = errors.New("disk path not found")

// Client is a thin typed wrapper over the Yandex Disk REST API.
type Client struct {
	token  string
	base   string
	client *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token: token,
		base:  cloudAPIBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Resource is the API's metadata record for a file or folder.
type Resource struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"` // "file" or "dir"
	File     string `json:"file"` // direct download URL, files only
	Size     int64  `json:"size"`
	Embedded struct {
		Items []Resource `json:"items"`
	} `json:"_embedded"`
}

type apiError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// GetResource fetches metadata for a path. For folders the listing is
// included under Embedded.Items.
func (c *Client) GetResource(ctx context.Context, path string) (*Resource, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("limit", "100")

	var res Resource
	if err := c.get(ctx, "/resources?"+q.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DownloadURL resolves a short-lived direct download link for a file.
func (c *Client) DownloadURL(ctx context.Context, path string) (string, error) {
	q := url.Values{}
	q.Set("path", path)

	var link struct {
		Href string `json:"href"`
	}
	if err := c.get(ctx, "/resources/download?"+q.Encode(), &link); err != nil {
		return "", err
	}
	if link.Href == "" {
		return "", fmt.Errorf("no download link returned for %s", path)
	}
	return link.Href, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("disk API error (status %d): %s", resp.StatusCode, apiErr.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
