package confluence

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

// PageRef is a parsed page reference. Exactly one of ID or the
// SpaceKey/Title pair is populated; title references need a remote
// lookup to resolve to an ID.
type PageRef struct {
	ID       string
	SpaceKey string
	Title    string
}

var (
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	modernPageID = regexp.MustCompile(`/pages/(\d+)`)
)

// ParsePageRef interprets a user-supplied page reference. Accepted
// forms, tried in order:
//
//	123456                                        raw page ID
//	.../pages/viewpage.action?pageId=123456       legacy view URL
//	.../spaces/KEY/pages/123456/Title             modern URL
//	.../display/KEY/Page+Title                    pretty URL
func ParsePageRef(ref string) (PageRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PageRef{}, errors.New(errors.ErrCodeInvalidInput, "empty page reference")
	}
	if digitsOnly.MatchString(ref) {
		return PageRef{ID: ref}, nil
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return PageRef{}, errors.New(errors.ErrCodeInvalidInput, "page reference %q is neither a page ID nor a URL", ref)
	}

	if id := u.Query().Get("pageId"); digitsOnly.MatchString(id) {
		return PageRef{ID: id}, nil
	}
	if m := modernPageID.FindStringSubmatch(u.Path); m != nil {
		return PageRef{ID: m[1]}, nil
	}
	if space, title, ok := displayRef(u.Path); ok {
		return PageRef{SpaceKey: space, Title: title}, nil
	}
	return PageRef{}, errors.New(errors.ErrCodeInvalidInput, "cannot extract a page from URL %q", ref)
}

// displayRef parses /display/SPACE/Page+Title paths. Confluence encodes
// spaces in pretty URLs as '+'.
func displayRef(path string) (space, title string, ok bool) {
	idx := strings.Index(path, "/display/")
	if idx < 0 {
		return "", "", false
	}
	rest := strings.TrimPrefix(path[idx:], "/display/")
	space, rawTitle, found := strings.Cut(rest, "/")
	if !found || space == "" || rawTitle == "" {
		return "", "", false
	}
	title, err := url.QueryUnescape(rawTitle)
	if err != nil {
		return "", "", false
	}
	return space, title, true
}

// Resolve turns a PageRef into a concrete page, performing the remote
// title lookup when needed.
func (r PageRef) Resolve(ctx context.Context, store PageStore) (*Page, error) {
	if r.ID != "" {
		return store.GetPage(ctx, r.ID)
	}
	return store.FindPage(ctx, r.SpaceKey, r.Title)
}
