package publish

import (
	"fmt"
	"strings"

	"github.com/mlorenz/drawbridge/pkg/diagram"
)

// Marker comments bracket the generated block inside a page body.
// Confluence storage format round-trips XML comments, so the marker
// survives edits made elsewhere on the page and gives the block a
// stable identity independent of attachment names.
const (
	markerOpenFmt  = "<!-- drawbridge:block %s -->"
	markerCloseFmt = "<!-- /drawbridge:block %s -->"
)

var labelEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// RenderBlock produces the storage-format fragment this tool owns on a
// page: the embedded image, a download link for the diagram source,
// and the list of links found in the diagram. When markerID is
// non-empty the fragment is wrapped in identifying comments.
func RenderBlock(markerID, imageFilename, sourceFilename string, links []diagram.Link) string {
	var sections []string

	sections = append(sections, fmt.Sprintf(
		`<ac:image ac:align="center" ac:layout="center">`+
			`<ri:attachment ri:filename="%s" />`+
			`</ac:image>`, imageFilename))

	sections = append(sections, fmt.Sprintf(
		`<p><em>Source: `+
			`<ac:link><ri:attachment ri:filename="%s" />`+
			`<ac:plain-text-link-body><![CDATA[%s]]></ac:plain-text-link-body>`+
			`</ac:link></em></p>`, sourceFilename, sourceFilename))

	if section := linksSection(links); section != "" {
		sections = append(sections, section)
	}

	block := strings.Join(sections, "\n")
	if markerID == "" {
		return block
	}
	return fmt.Sprintf(markerOpenFmt, markerID) + "\n" + block + "\n" + fmt.Sprintf(markerCloseFmt, markerID)
}

// linksSection renders the link listing, empty for a diagram without
// links.
func linksSection(links []diagram.Link) string {
	if len(links) == 0 {
		return ""
	}
	lines := []string{"<h3>Links in this diagram</h3>", "<ul>"}
	for _, l := range links {
		lines = append(lines, fmt.Sprintf(`  <li><a href="%s">%s</a></li>`, l.URL, labelEscaper.Replace(l.Label)))
	}
	lines = append(lines, "</ul>")
	return strings.Join(lines, "\n")
}

// Merge splices newBlock into body. An existing block for this diagram
// is located first by marker ID, then by attachment filename, and
// replaced in place; when neither matches, the block is appended. The
// operation is idempotent: merging an unchanged block into an
// unchanged body returns the body as-is.
func Merge(body, newBlock, diagramStem, markerID string) string {
	start, end, found := markerBounds(body, markerID)
	if !found {
		start, end, found = filenameBounds(body, diagramStem)
	}
	if found {
		return body[:start] + newBlock + body[end:]
	}
	if strings.TrimSpace(body) == "" {
		return newBlock
	}
	return strings.TrimRight(body, " \t\r\n") + "\n\n" + newBlock
}

// markerBounds finds a block bracketed by marker comments for the
// given ID. The returned range includes both markers.
func markerBounds(body, markerID string) (start, end int, found bool) {
	if markerID == "" {
		return 0, 0, false
	}
	opening := fmt.Sprintf(markerOpenFmt, markerID)
	closing := fmt.Sprintf(markerCloseFmt, markerID)

	start = strings.Index(body, opening)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(body[start:], closing)
	if rel < 0 {
		return 0, 0, false
	}
	return start, start + rel + len(closing), true
}

// filenameBounds locates an existing block by its image attachment
// name. This is the fallback for pages written before marker comments
// existed and for hand-edited bodies that lost them. Detection is
// textual, so a page embedding two diagrams with the same stem can
// mis-locate; the marker path avoids that entirely.
func filenameBounds(body, diagramStem string) (start, end int, found bool) {
	if diagramStem == "" {
		return 0, 0, false
	}
	for _, ext := range []string{".png", ".svg"} {
		needle := `ri:filename="` + diagramStem + ext + `"`
		at := strings.Index(body, needle)
		if at < 0 {
			continue
		}
		start = strings.LastIndex(body[:at], "<ac:image")
		if start < 0 {
			continue
		}
		pos := at + len(needle)

		// Prefer the end of the links listing when one belongs to this
		// block, otherwise the source-link paragraph.
		if ulEnd := strings.Index(body[pos:], "</ul>"); ulEnd >= 0 &&
			strings.Contains(body[pos:pos+ulEnd], "Links in this diagram") {
			return start, pos + ulEnd + len("</ul>"), true
		}
		if pEnd := strings.Index(body[pos:], "</p>"); pEnd >= 0 {
			return start, pos + pEnd + len("</p>"), true
		}
		return start, pos, true
	}
	return 0, 0, false
}
