package diagram

import (
	"fmt"
	"time"
)

// NewEmptyContainer returns the XML for an empty single-page diagram,
// suitable for seeding a new .drawio file.
func NewEmptyContainer(name string) string {
	modified := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<mxfile host="app.diagrams.net" modified="%s" type="device">
  <diagram id="diagram-1" name="%s">
    <mxGraphModel dx="1434" dy="836" grid="1" gridSize="10" guides="1" tooltips="1" connect="1" arrows="1" fold="1" page="1" pageScale="1" pageWidth="827" pageHeight="1169" math="0" shadow="0">
      <root>
        <mxCell id="0" />
        <mxCell id="1" parent="0" />
      </root>
    </mxGraphModel>
  </diagram>
</mxfile>
`, modified, name)
}
