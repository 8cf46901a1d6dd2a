package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"jigpipe/internal/faults"
	"jigpipe/internal/httpx"
	"jigpipe/internal/logging"
	"jigpipe/internal/media"
	"jigpipe/internal/modules"
)

// Client talks to the platform's provisioning and admin endpoints. It is a
// thin translation layer over the shared HTTP client; retries and breaker
// state live there, response semantics live here.
type Client struct {
	http    *httpx.Client
	baseURL string
	logger  *slog.Logger
}

// New constructs a platform client rooted at baseURL.
func New(httpClient *httpx.Client, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(logging.String(logging.FieldComponent, "platform")),
	}
}

// CreateJIGRequest is the POST /v1/jig payload.
type CreateJIGRequest struct {
	DisplayName string     `json:"display_name"`
	CreatorID   string     `json:"creator_id"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
}

// JIGPatch is the PATCH /v1/jig payload. Nil fields are omitted so the
// platform's conditional update leaves them alone.
type JIGPatch struct {
	DisplayName *string    `json:"display_name,omitempty"`
	AuthorID    *string    `json:"author_id,omitempty"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
}

// ModuleDraftRequest is the POST /v1/module/draft payload.
type ModuleDraftRequest struct {
	JIGID uuid.UUID    `json:"jig_id"`
	Kind  modules.Kind `json:"kind"`
}

// ModuleDraftPatch is the PATCH /v1/module/draft payload.
type ModuleDraftPatch struct {
	Body     *modules.Body `json:"body,omitempty"`
	Index    *uint16       `json:"index,omitempty"`
	Complete *bool         `json:"complete,omitempty"`
}

type idResponse struct {
	ID uuid.UUID `json:"id"`
}

// CreateJIG provisions a new jig and returns its id.
func (c *Client) CreateJIG(ctx context.Context, req CreateJIGRequest) (uuid.UUID, error) {
	resp, err := c.postJSON(ctx, c.baseURL+"/v1/jig", req)
	if err != nil {
		return uuid.Nil, err
	}
	if httpx.IsAuthDenied(resp.Status) {
		return uuid.Nil, faults.AuthDeniedErr(resp.Status)
	}
	if resp.Status != http.StatusCreated && resp.Status != http.StatusOK {
		return uuid.Nil, fmt.Errorf("create jig: unexpected status %d", resp.Status)
	}
	var out idResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return uuid.Nil, fmt.Errorf("create jig: decode response: %w", err)
	}
	return out.ID, nil
}

// UpdateJIG patches the jig and reports whether it exists. The platform
// answers 204 on success and 404 when the jig is absent.
func (c *Client) UpdateJIG(ctx context.Context, id uuid.UUID, patch JIGPatch) (bool, error) {
	resp, err := c.patchJSON(ctx, c.baseURL+"/v1/jig/"+id.String(), patch)
	if err != nil {
		return false, err
	}
	switch {
	case resp.Status == http.StatusNoContent:
		return true, nil
	case resp.Status == http.StatusNotFound:
		return false, nil
	case httpx.IsAuthDenied(resp.Status):
		return false, faults.AuthDeniedErr(resp.Status)
	default:
		return false, fmt.Errorf("update jig %s: unexpected status %d", id, resp.Status)
	}
}

// CreateModuleDraft allocates an empty module of the given kind bound to
// the jig and returns the draft id.
func (c *Client) CreateModuleDraft(ctx context.Context, jigID uuid.UUID, kind modules.Kind) (uuid.UUID, error) {
	resp, err := c.postJSON(ctx, c.baseURL+"/v1/module/draft", ModuleDraftRequest{JIGID: jigID, Kind: kind})
	if err != nil {
		return uuid.Nil, err
	}
	if httpx.IsAuthDenied(resp.Status) {
		return uuid.Nil, faults.AuthDeniedErr(resp.Status)
	}
	if resp.Status != http.StatusCreated && resp.Status != http.StatusOK {
		return uuid.Nil, fmt.Errorf("create module draft: unexpected status %d", resp.Status)
	}
	var out idResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return uuid.Nil, fmt.Errorf("create module draft: decode response: %w", err)
	}
	return out.ID, nil
}

// UpdateModuleDraft patches a draft module's body, index, or completion.
func (c *Client) UpdateModuleDraft(ctx context.Context, moduleID uuid.UUID, patch ModuleDraftPatch) error {
	resp, err := c.patchJSON(ctx, c.baseURL+"/v1/module/draft/"+moduleID.String(), patch)
	if err != nil {
		return err
	}
	switch {
	case resp.Status == http.StatusNoContent || resp.Status == http.StatusOK:
		return nil
	case resp.Status == http.StatusNotFound:
		return faults.ClassifiedErr(media.ResolutionNotFound, resp.Status)
	case httpx.IsAuthDenied(resp.Status):
		return faults.AuthDeniedErr(resp.Status)
	default:
		return fmt.Errorf("update module draft %s: unexpected status %d", moduleID, resp.Status)
	}
}

// RefreshMedia issues the conditional reprocessing call for one stored
// media item and returns the raw status for the caller to classify. An
// absent etag sends If-None-Match: * so the platform only acts when the
// item was never uploaded; a present etag sends If-Match so it only acts
// when the stored bytes still carry that etag.
func (c *Client) RefreshMedia(ctx context.Context, library media.Library, id string, etag string) (int, error) {
	url := fmt.Sprintf("%s/v0/admin/media/refresh/%s/image/%s", c.baseURL, string(library), id)
	opts := httpx.RequestOptions{}
	if etag == "" {
		opts.IfNoneMatch = "*"
	} else {
		opts.IfMatch = etag
	}
	resp, err := c.http.Do(ctx, http.MethodPost, url, opts)
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (*httpx.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, url, payload)
}

func (c *Client) patchJSON(ctx context.Context, url string, payload any) (*httpx.Response, error) {
	return c.sendJSON(ctx, http.MethodPatch, url, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, payload any) (*httpx.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encode request: %w", method, url, err)
	}
	return c.http.Do(ctx, method, url, httpx.RequestOptions{
		Body:        body,
		ContentType: "application/json",
	})
}
