package diagram

import (
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// entityReplacer decodes the entities draw.io emits in shape values.
// Deliberately not a full entity table: the format only ever produces these.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&nbsp;", " ",
)

// shape is an element of interest found while walking page markup.
type shape struct {
	id    string
	value string // mxCell value attribute (may contain HTML)
	style string // mxCell style attribute
	label string // object/UserObject label attribute
	link  string // object/UserObject link attribute
}

// ExtractLinks extracts all hyperlinks from page markup, in document order
// of discovery. Three sources are scanned: link= tokens in mxCell style
// attributes, inline <a> anchors in mxCell values, and the explicit link
// attribute on object/UserObject elements. The result is not deduplicated;
// dedup happens at the document level so duplicates across pages collapse.
func ExtractLinks(markup string) ([]Link, error) {
	cells, objects, err := collectShapes(markup)
	if err != nil {
		return nil, err
	}

	var links []Link
	for _, c := range cells {
		links = append(links, cellLinks(c)...)
	}
	for _, o := range objects {
		if o.link == "" {
			continue
		}
		label := StripLabel(o.label)
		if label == "" {
			label = "Link " + o.id
		}
		links = append(links, Link{Label: label, URL: o.link, CellID: o.id})
	}
	return links, nil
}

// collectShapes walks the markup and gathers mxCell and object/UserObject
// elements at any depth, preserving document order within each group.
func collectShapes(markup string) (cells, objects []shape, err error) {
	d := lenientDecoder(strings.NewReader(markup))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return cells, objects, nil
		}
		if err != nil {
			return nil, nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "mxCell":
			var s shape
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "id":
					s.id = a.Value
				case "value":
					s.value = a.Value
				case "style":
					s.style = a.Value
				}
			}
			cells = append(cells, s)
		case "object", "UserObject":
			var s shape
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "id":
					s.id = a.Value
				case "label":
					s.label = a.Value
				case "link":
					s.link = a.Value
				}
			}
			objects = append(objects, s)
		}
	}
}

// cellLinks extracts links carried by one mxCell: a link= style token and
// any inline anchors in the cell value.
func cellLinks(c shape) []Link {
	var links []Link

	if raw, ok := styleLink(c.style); ok {
		target := raw
		if unescaped, err := url.PathUnescape(raw); err == nil {
			target = unescaped
		}
		label := StripLabel(c.value)
		if label == "" {
			label = "Link " + c.id
		}
		links = append(links, Link{Label: label, URL: target, CellID: c.id})
	}

	if strings.Contains(strings.ToLower(c.value), "<a ") {
		for _, a := range extractAnchors(c.value) {
			links = append(links, Link{Label: a.label, URL: a.href, CellID: c.id})
		}
	}
	return links
}

// styleLink finds a link= token in a style attribute. Style attributes are
// semicolon-separated tokens ("rounded=0;link=https%3A%2F%2F...;").
func styleLink(style string) (string, bool) {
	for _, part := range strings.Split(style, ";") {
		if v, ok := strings.CutPrefix(part, "link="); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

type anchor struct {
	label string
	href  string
}

// extractAnchors pulls every <a href=...>text</a> out of an HTML fragment.
// The label is the trimmed inner text, falling back to the href itself when
// the anchor has no visible text.
func extractAnchors(fragment string) []anchor {
	var (
		anchors []anchor
		href    string
		text    strings.Builder
		open    bool
	)

	flush := func() {
		if !open {
			return
		}
		label := strings.TrimSpace(text.String())
		if label == "" {
			label = href
		}
		anchors = append(anchors, anchor{label: label, href: href})
		open = false
		text.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return anchors
		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			flush() // unterminated previous anchor
			for _, attr := range tok.Attr {
				if attr.Key == "href" && attr.Val != "" {
					href = attr.Val
					open = true
					text.Reset()
					break
				}
			}
		case html.TextToken:
			if open {
				text.WriteString(z.Token().Data)
			}
		case html.EndTagToken:
			if z.Token().Data == "a" {
				flush()
			}
		}
	}
}

// StripLabel extracts a plain-text label from a shape value that may
// contain HTML: tags removed, entities decoded, whitespace collapsed to
// single spaces and trimmed.
func StripLabel(value string) string {
	if value == "" {
		return ""
	}
	text := tagPattern.ReplaceAllString(value, "")
	text = entityReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
