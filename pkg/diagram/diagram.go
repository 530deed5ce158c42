// Package diagram parses draw.io mxfile containers and extracts the
// hyperlinks embedded in diagram shapes.
//
// A container is either a multi-page <mxfile> element whose <diagram>
// children each hold a page (inline <mxGraphModel> markup or a compressed
// text payload, mixed freely within one file), or a bare <mxGraphModel>
// root for single-page exports. Pages that cannot be decoded are skipped
// individually; an unrecognized root element is fatal for the whole file.
package diagram

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

// Link is a hyperlink found in a diagram shape.
// Identity is the (Label, URL) pair; CellID is provenance only.
type Link struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	CellID string `json:"cell_id,omitempty"`
}

// Document is the parsed form of a diagram container: the page names in
// document order and the deduplicated link set across all pages.
// Immutable after construction.
type Document struct {
	Name  string
	Pages []string
	Links []Link
}

// containerFile mirrors the <mxfile> root element.
type containerFile struct {
	Pages []rawPage `xml:"diagram"`
}

// rawPage is one <diagram> entry. A page carries either an inline
// <mxGraphModel> child or an opaque text payload, never meaningfully both.
type rawPage struct {
	Name    string      `xml:"name,attr"`
	Content string      `xml:",chardata"`
	Inner   string      `xml:",innerxml"`
	Model   *struct{}   `xml:"mxGraphModel"`
}

// ParseFile parses a .drawio file.
func ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseInvalid, err, "cannot read diagram file %s", path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(content, stem)
}

// Parse parses diagram container content. The name is used as the document
// name and as the page name for single-page mxGraphModel roots.
func Parse(content []byte, name string) (*Document, error) {
	root, err := rootElement(content)
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: name}
	var links []Link

	switch root {
	case "mxfile":
		var cf containerFile
		if err := unmarshalLenient(content, &cf); err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseInvalid, err, "malformed container")
		}
		for _, page := range cf.Pages {
			pageName := page.Name
			if pageName == "" {
				pageName = "Page"
			}
			doc.Pages = append(doc.Pages, pageName)

			markup, ok := pageMarkup(page)
			if !ok {
				continue
			}
			pageLinks, err := ExtractLinks(markup)
			if err != nil {
				// Undecodable page: skip it, keep the rest.
				continue
			}
			links = append(links, pageLinks...)
		}

	case "mxGraphModel":
		doc.Pages = append(doc.Pages, name)
		pageLinks, err := ExtractLinks(string(content))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseInvalid, err, "malformed graph model")
		}
		links = append(links, pageLinks...)

	default:
		return nil, errors.New(errors.ErrCodeParseInvalid, "unexpected root element <%s>", root)
	}

	doc.Links = dedupeLinks(links)
	return doc, nil
}

// pageMarkup returns the structured markup for a page. Inline pages pass
// their XML through untouched; text payloads go through the decoder.
func pageMarkup(page rawPage) (string, bool) {
	if page.Model != nil {
		return page.Inner, true
	}
	payload := strings.TrimSpace(page.Content)
	if payload == "" {
		return "", false
	}
	return DecodeContent(payload), true
}

// rootElement returns the local name of the first element in content.
func rootElement(content []byte) (string, error) {
	d := lenientDecoder(bytes.NewReader(content))
	for {
		tok, err := d.Token()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeParseInvalid, err, "invalid XML")
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func unmarshalLenient(content []byte, v any) error {
	return lenientDecoder(bytes.NewReader(content)).Decode(v)
}

// lenientDecoder builds an XML decoder that tolerates the HTML entities
// (&nbsp; and friends) draw.io leaves in shape values.
func lenientDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.Entity = xml.HTMLEntity
	return d
}

// dedupeLinks removes duplicate (label, url) pairs, keeping the first
// occurrence and preserving discovery order.
func dedupeLinks(links []Link) []Link {
	seen := make(map[[2]string]struct{}, len(links))
	var out []Link
	for _, l := range links {
		key := [2]string{l.Label, l.URL}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// ValidateFile reports whether path looks like a valid diagram container:
// right extension and a recognized root element.
func ValidateFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".drawio" && ext != ".xml" {
		return false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	root, err := rootElement(content)
	if err != nil {
		return false
	}
	return root == "mxfile" || root == "mxGraphModel"
}
