package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/httputil"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{Token: "test-token"},
		HTTPClient:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func pageJSON(id, title, space string, version int, body string) map[string]any {
	return map[string]any{
		"id":      id,
		"title":   title,
		"space":   map[string]any{"key": space},
		"version": map[string]any{"number": version},
		"body": map[string]any{
			"storage": map[string]any{"value": body},
		},
		"_links": map[string]any{"webui": "/display/" + space + "/" + title},
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	if !errors.Is(err, errors.ErrCodeNotConfigured) {
		t.Errorf("NewClient() error = %v, want NOT_CONFIGURED", err)
	}
}

func TestGetPage(t *testing.T) {
	var gotPath, gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(pageJSON("12345", "Architecture", "DEV", 7, "<p>hello</p>"))
	}))

	page, err := c.GetPage(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if gotPath != "/rest/api/content/12345" {
		t.Errorf("request path = %q, want /rest/api/content/12345", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if page.ID != "12345" || page.Title != "Architecture" || page.SpaceKey != "DEV" {
		t.Errorf("page = %+v, want id=12345 title=Architecture space=DEV", page)
	}
	if page.Version != 7 {
		t.Errorf("page.Version = %d, want 7", page.Version)
	}
	if page.Body != "<p>hello</p>" {
		t.Errorf("page.Body = %q, want stored body", page.Body)
	}
	if !strings.HasSuffix(page.URL, "/display/DEV/Architecture") {
		t.Errorf("page.URL = %q, want webui link appended to base", page.URL)
	}
}

func TestGetPageNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetPage(context.Background(), "999")
	if !errors.Is(err, errors.ErrCodeRemoteNotFound) {
		t.Errorf("GetPage() error = %v, want REMOTE_NOT_FOUND", err)
	}
	if httputil.IsRetryable(err) {
		t.Error("404 must not be retryable")
	}
}

func TestGetPageAuthFailed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetPage(context.Background(), "12345")
	if !errors.Is(err, errors.ErrCodeAuthFailed) {
		t.Errorf("GetPage() error = %v, want AUTH_FAILED", err)
	}
	if httputil.IsRetryable(err) {
		t.Error("401 must not be retryable")
	}
}

func TestGetPageRetriesServerErrors(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(pageJSON("12345", "Doc", "DEV", 2, ""))
	}))

	page, err := c.GetPage(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetPage() error = %v, want success after retries", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
	if page.Version != 2 {
		t.Errorf("page.Version = %d, want 2", page.Version)
	}
}

func TestFindPage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("spaceKey") != "DEV" || r.URL.Query().Get("title") != "My Page" {
			t.Errorf("query = %v, want spaceKey=DEV title=My Page", r.URL.Query())
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{pageJSON("42", "My Page", "DEV", 3, "")},
		})
	}))

	page, err := c.FindPage(context.Background(), "DEV", "My Page")
	if err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if page.ID != "42" {
		t.Errorf("page.ID = %q, want 42", page.ID)
	}
}

func TestFindPageNoResults(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))

	_, err := c.FindPage(context.Background(), "DEV", "Missing")
	if !errors.Is(err, errors.ErrCodeRemoteNotFound) {
		t.Errorf("FindPage() error = %v, want REMOTE_NOT_FOUND", err)
	}
}

func TestUpdateBodyIncrementsVersion(t *testing.T) {
	var payload map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		json.NewEncoder(w).Encode(pageJSON("12345", "Doc", "DEV", 8, "<p>new</p>"))
	}))

	page, err := c.UpdateBody(context.Background(), "12345", "Doc", "<p>new</p>", 7)
	if err != nil {
		t.Fatalf("UpdateBody() error = %v", err)
	}
	version := payload["version"].(map[string]any)
	if version["number"].(float64) != 8 {
		t.Errorf("sent version.number = %v, want expectedVersion+1 = 8", version["number"])
	}
	body := payload["body"].(map[string]any)["storage"].(map[string]any)
	if body["representation"] != "storage" {
		t.Errorf("representation = %v, want storage", body["representation"])
	}
	if page.Version != 8 {
		t.Errorf("returned version = %d, want 8", page.Version)
	}
}

func TestUpdateBodyConflict(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := c.UpdateBody(context.Background(), "12345", "Doc", "<p>x</p>", 7)
	if !errors.Is(err, errors.ErrCodeRemoteConflict) {
		t.Errorf("UpdateBody() error = %v, want REMOTE_CONFLICT", err)
	}
	if httputil.IsRetryable(err) {
		t.Error("conflict must not be retryable")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want exactly 1 (writes are never retried)", calls)
	}
}

func TestUpdateBodyServerErrorNotRetried(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.UpdateBody(context.Background(), "12345", "Doc", "<p>x</p>", 7)
	if err == nil {
		t.Fatal("UpdateBody() error = nil, want error")
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want exactly 1", calls)
	}
}

func attachmentJSON(id, title string, version int) map[string]any {
	return map[string]any{
		"id":         id,
		"title":      title,
		"version":    map[string]any{"number": version},
		"extensions": map[string]any{"mediaType": "image/png"},
		"_links":     map[string]any{"download": "/download/attachments/1/" + title},
	}
}

func TestListAttachments(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/child/attachment") {
			t.Errorf("path = %q, want child/attachment endpoint", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				attachmentJSON("att1", "flow.png", 2),
				attachmentJSON("att2", "flow.drawio", 5),
			},
		})
	}))

	atts, err := c.ListAttachments(context.Background(), "12345")
	if err != nil {
		t.Fatalf("ListAttachments() error = %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("len(atts) = %d, want 2", len(atts))
	}
	if atts[0].Filename != "flow.png" || atts[0].Version != 2 {
		t.Errorf("atts[0] = %+v, want flow.png v2", atts[0])
	}
	if atts[0].MediaType != "image/png" {
		t.Errorf("atts[0].MediaType = %q, want image/png", atts[0].MediaType)
	}
}

func TestGetAttachmentMissingIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{attachmentJSON("att1", "other.png", 1)},
		})
	}))

	att, err := c.GetAttachment(context.Background(), "12345", "flow.png")
	if err != nil {
		t.Fatalf("GetAttachment() error = %v", err)
	}
	if att != nil {
		t.Errorf("GetAttachment() = %+v, want nil for missing attachment", att)
	}
}

func TestUploadAttachmentCreate(t *testing.T) {
	var uploadPath, token string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// No existing attachment.
			json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}
		uploadPath = r.URL.Path
		token = r.Header.Get("X-Atlassian-Token")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer f.Close()
		if header.Filename != "flow.png" {
			t.Errorf("uploaded filename = %q, want flow.png", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part Content-Type = %q, want image/png", ct)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{attachmentJSON("att9", "flow.png", 1)},
		})
	}))

	att, err := c.UploadAttachment(context.Background(), "12345", "flow.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UploadAttachment() error = %v", err)
	}
	if uploadPath != "/rest/api/content/12345/child/attachment" {
		t.Errorf("upload path = %q, want create endpoint", uploadPath)
	}
	if token != "nocheck" {
		t.Errorf("X-Atlassian-Token = %q, want nocheck", token)
	}
	if att.ID != "att9" || att.Version != 1 {
		t.Errorf("att = %+v, want att9 v1", att)
	}
}

func TestUploadAttachmentReplace(t *testing.T) {
	var uploadPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{
				"results": []any{attachmentJSON("att1", "flow.png", 3)},
			})
			return
		}
		uploadPath = r.URL.Path
		json.NewEncoder(w).Encode(attachmentJSON("att1", "flow.png", 4))
	}))

	att, err := c.UploadAttachment(context.Background(), "12345", "flow.png", []byte("new-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UploadAttachment() error = %v", err)
	}
	if uploadPath != "/rest/api/content/12345/child/attachment/att1/data" {
		t.Errorf("upload path = %q, want replace endpoint for existing attachment", uploadPath)
	}
	if att.Version != 4 {
		t.Errorf("att.Version = %d, want 4", att.Version)
	}
}

func TestDownloadAttachment(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/attachments/1/flow.png" {
			t.Errorf("path = %q, want download link", r.URL.Path)
		}
		w.Write([]byte("png-bytes"))
	}))

	data, err := c.DownloadAttachment(context.Background(), &Attachment{
		Filename:    "flow.png",
		DownloadURL: "/download/attachments/1/flow.png",
	})
	if err != nil {
		t.Fatalf("DownloadAttachment() error = %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("data = %q, want png-bytes", data)
	}
}

func TestBasicAuthCredentials(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			t.Errorf("basic auth = %q/%q ok=%v, want alice/secret", user, pass, ok)
		}
		json.NewEncoder(w).Encode(map[string]any{"size": 1})
	}))
	c.creds = Credentials{Username: "alice", Password: "secret"}

	if err := c.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection() error = %v", err)
	}
}
