// Package state tracks which local diagrams map to which remote pages.
//
// A Record per diagram remembers the target page, the published
// attachment version, the links the page was last rendered with, and
// the marker identifier used to find the generated block in the page
// body. Records change only after a confirmed remote write; an aborted
// publish leaves them untouched.
//
// Two backends implement Store: a JSON file inside the workspace for
// single-user setups, and MongoDB when a team shares sync state.
package state

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mlorenz/drawbridge/pkg/diagram"
)

// Record is the sync record for one tracked diagram.
type Record struct {
	LocalPath             string         `json:"-" bson:"_id"`
	PageID                string         `json:"page_id,omitempty" bson:"page_id,omitempty"`
	PageURL               string         `json:"page_url,omitempty" bson:"page_url,omitempty"`
	MarkerID              string         `json:"marker_id,omitempty" bson:"marker_id,omitempty"`
	LastSync              time.Time      `json:"last_sync,omitzero" bson:"last_sync,omitempty"`
	LastAttachmentVersion int            `json:"last_attachment_version,omitempty" bson:"last_attachment_version,omitempty"`
	LastLocalModified     time.Time      `json:"last_local_modified,omitzero" bson:"last_local_modified,omitempty"`
	Links                 []diagram.Link `json:"links,omitempty" bson:"links,omitempty"`
}

// Linked reports whether the diagram has a target page.
func (r *Record) Linked() bool {
	return r != nil && r.PageID != ""
}

// Store persists sync records keyed by local diagram path.
// Get returns (nil, nil) for an untracked path.
type Store interface {
	Get(ctx context.Context, localPath string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, localPath string) error
	List(ctx context.Context) ([]*Record, error)
	Close() error
}

// NormalizePath cleans a diagram path for use as a record key so that
// "./docs/flow.drawio" and "docs/flow.drawio" address the same record.
func NormalizePath(p string) string {
	return filepath.Clean(p)
}
