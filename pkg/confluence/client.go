// Package confluence implements a typed REST client for the Confluence
// wiki API. It covers the small surface the sync workflow needs: reading
// and writing page bodies with optimistic concurrency, managing page
// attachments, and resolving page references.
package confluence

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/httputil"
)

const (
	httpTimeout    = 30 * time.Second
	attachmentPage = 200
)

// Credentials carries resolved authentication material. Either Token is
// set (bearer auth) or Username/Password are (basic auth). Resolution
// from the environment happens at the CLI boundary, never here.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// IsZero reports whether no authentication material is present.
func (c Credentials) IsZero() bool {
	return c.Token == "" && c.Username == ""
}

func (c Credentials) apply(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
		return
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// PageStore is the remote surface the publish workflow depends on.
// *Client is the production implementation; tests substitute fakes.
type PageStore interface {
	GetPage(ctx context.Context, pageID string) (*Page, error)
	FindPage(ctx context.Context, spaceKey, title string) (*Page, error)
	UpdateBody(ctx context.Context, pageID, title, body string, expectedVersion int) (*Page, error)
	ListAttachments(ctx context.Context, pageID string) ([]*Attachment, error)
	GetAttachment(ctx context.Context, pageID, filename string) (*Attachment, error)
	UploadAttachment(ctx context.Context, pageID, filename string, data []byte, mediaType string) (*Attachment, error)
	DownloadAttachment(ctx context.Context, att *Attachment) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the instance root, e.g. "https://wiki.example.com".
	// A trailing slash is tolerated.
	BaseURL     string
	Credentials Credentials
	// SSLVerify disables certificate verification when false. Some
	// on-prem instances run with self-signed certificates.
	SSLVerify bool
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to a single Confluence instance.
type Client struct {
	base  string
	http  *http.Client
	creds Credentials
}

// NewClient creates a Client for the given instance.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New(errors.ErrCodeNotConfigured, "confluence base URL is not set")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: httpTimeout}
		if !opts.SSLVerify {
			hc.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	return &Client{base: base, http: hc, creds: opts.Credentials}, nil
}

// BaseURL returns the configured instance root.
func (c *Client) BaseURL() string { return c.base }

// TestConnection verifies that the instance is reachable and the
// credentials are accepted.
func (c *Client) TestConnection(ctx context.Context) error {
	var out struct {
		Size int `json:"size"`
	}
	return c.getJSON(ctx, "/rest/api/space?limit=1", &out)
}

// GetPage fetches a page by ID with its storage body and version.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var out pageResponse
	path := "/rest/api/content/" + url.PathEscape(pageID) + "?expand=body.storage,version,space"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.toPage(c.base), nil
}

// FindPage resolves a page by space key and title. It returns
// REMOTE_NOT_FOUND if no page matches.
func (c *Client) FindPage(ctx context.Context, spaceKey, title string) (*Page, error) {
	q := url.Values{}
	q.Set("spaceKey", spaceKey)
	q.Set("title", title)
	q.Set("expand", "body.storage,version,space")
	var out contentListResponse
	if err := c.getJSON(ctx, "/rest/api/content?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, errors.New(errors.ErrCodeRemoteNotFound, "no page %q in space %s", title, spaceKey)
	}
	return out.Results[0].toPage(c.base), nil
}

// UpdateBody replaces the page body, asserting that the remote version
// still equals expectedVersion. The server compares the incremented
// number against its current state and answers 409 when someone else
// wrote in between; that conflict is surfaced as REMOTE_CONFLICT and is
// never retried.
func (c *Client) UpdateBody(ctx context.Context, pageID, title, body string, expectedVersion int) (*Page, error) {
	payload := map[string]any{
		"id":    pageID,
		"type":  "page",
		"title": title,
		"version": map[string]any{
			"number": expectedVersion + 1,
		},
		"body": map[string]any{
			"storage": map[string]any{
				"value":          body,
				"representation": "storage",
			},
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding page update")
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/rest/api/content/"+url.PathEscape(pageID), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out pageResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.toPage(c.base), nil
}

// ListAttachments returns all attachments on the page.
func (c *Client) ListAttachments(ctx context.Context, pageID string) ([]*Attachment, error) {
	path := fmt.Sprintf("/rest/api/content/%s/child/attachment?expand=version&limit=%d",
		url.PathEscape(pageID), attachmentPage)
	var out attachmentListResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	atts := make([]*Attachment, 0, len(out.Results))
	for _, r := range out.Results {
		atts = append(atts, r.toAttachment())
	}
	return atts, nil
}

// GetAttachment finds an attachment by exact filename. A missing
// attachment is not an error: it returns (nil, nil) so callers can
// distinguish "create" from "replace".
func (c *Client) GetAttachment(ctx context.Context, pageID, filename string) (*Attachment, error) {
	atts, err := c.ListAttachments(ctx, pageID)
	if err != nil {
		return nil, err
	}
	for _, att := range atts {
		if att.Filename == filename {
			return att, nil
		}
	}
	return nil, nil
}

// UploadAttachment creates the named attachment, or replaces its data
// when an attachment with that filename already exists. The returned
// Attachment carries the new version number.
func (c *Client) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, mediaType string) (*Attachment, error) {
	existing, err := c.GetAttachment(ctx, pageID, filename)
	if err != nil {
		return nil, err
	}

	path := "/rest/api/content/" + url.PathEscape(pageID) + "/child/attachment"
	if existing != nil {
		path += "/" + url.PathEscape(existing.ID) + "/data"
	}

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", mediaType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building upload request")
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building upload request")
	}
	if err := w.WriteField("minorEdit", "true"); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building upload request")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building upload request")
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "nocheck")

	// Creating returns a results list, replacing returns the item.
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	var list attachmentListResponse
	if err := json.Unmarshal(raw, &list); err == nil && len(list.Results) > 0 {
		return list.Results[0].toAttachment(), nil
	}
	var single attachmentResponse
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decoding attachment response")
	}
	return single.toAttachment(), nil
}

// DownloadAttachment fetches the attachment content.
func (c *Client) DownloadAttachment(ctx context.Context, att *Attachment) ([]byte, error) {
	if att.DownloadURL == "" {
		return nil, errors.New(errors.ErrCodeAttachmentNotFound, "attachment %q has no download link", att.Filename)
	}
	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, att.DownloadURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "downloading %s", att.Filename))
		}
		defer resp.Body.Close()
		if err := c.checkStatus(resp); err != nil {
			return err
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "downloading %s", att.Filename))
		}
		return nil
	})
	return data, err
}

// getJSON performs a GET with retry and decodes the JSON response into v.
// Only reads retry; writes go through do exactly once.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return c.do(req, v)
	})
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		u = c.base + u
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	c.creds.apply(req)
	return req, nil
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", req.Method, req.URL.Path))
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "decoding response from %s", req.URL.Path)
	}
	return nil
}

// checkStatus maps HTTP status classes onto domain error codes.
// Conflicts and auth failures are terminal and must not be wrapped as
// retryable; only transient classes are.
func (c *Client) checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.New(errors.ErrCodeAuthFailed, "authentication rejected by %s (status %d)", c.base, code)
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeRemoteNotFound, "%s not found", resp.Request.URL.Path)
	case code == http.StatusConflict:
		return errors.New(errors.ErrCodeRemoteConflict, "page was modified remotely (status 409)")
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "%s returned status %d", c.base, code))
	default:
		return errors.New(errors.ErrCodeNetwork, "%s returned status %d: %s", c.base, code, readErrorBody(resp.Body))
	}
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(data))
}
