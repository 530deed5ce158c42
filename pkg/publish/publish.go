// Package publish coordinates pushing a local draw.io diagram to its
// wiki page: attachments are uploaded, the generated block is merged
// into the page body under optimistic concurrency, and the local sync
// record is updated only after the remote write is confirmed.
package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/diagram"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/export"
	"github.com/mlorenz/drawbridge/pkg/state"
)

// sourceMediaType is the MIME type used for .drawio attachments.
const sourceMediaType = "application/xml"

// ImageExporter is the rendering dependency; *export.Chain satisfies it.
type ImageExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// Coordinator runs publish and checkout operations. One operation runs
// start to finish before the next; there is no internal parallelism,
// and correctness against concurrent external editors rests on the
// store's version check at commit time.
type Coordinator struct {
	store    confluence.PageStore
	records  state.Store
	exporter ImageExporter
	logger   *log.Logger

	// Format is the image format published to pages, png by default.
	Format string
}

// NewCoordinator wires a coordinator. logger may be nil.
func NewCoordinator(store confluence.PageStore, records state.Store, exporter ImageExporter, logger *log.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		records:  records,
		exporter: exporter,
		logger:   logger,
		Format:   "png",
	}
}

// Request describes one publish operation.
type Request struct {
	// Path is the local .drawio file.
	Path string
	// PageRef overrides the page from the sync record (ID or URL).
	PageRef string
	// SkipContent uploads attachments but leaves the page body alone.
	SkipContent bool
	// ForceExport renders fresh instead of reusing existing artifacts.
	ForceExport bool
}

// Result reports a completed publish.
type Result struct {
	Path             string
	PageID           string
	PageURL          string
	SourceAttachment *confluence.Attachment
	ImageAttachment  *confluence.Attachment
	LinkCount        int
	PageUpdated      bool
	// ExportMethod names the strategy that produced the image, empty
	// when the publish ran degraded without one.
	ExportMethod string
}

// Publish pushes one diagram to its page.
//
// The body and version used for the merge are the ones read before any
// upload; they are never re-fetched, so a concurrent edit between read
// and commit surfaces as REMOTE_CONFLICT rather than being overwritten.
// A failed export degrades the publish (source still uploaded, body
// untouched) instead of aborting it. The sync record is written last
// and only on success.
func (c *Coordinator) Publish(ctx context.Context, req Request) (*Result, error) {
	path := state.NormalizePath(req.Path)
	doc, err := diagram.ParseFile(path)
	if err != nil {
		return nil, err
	}

	rec, err := c.records.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	page, err := c.resolveTarget(ctx, path, req.PageRef, rec)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Path:      path,
		PageID:    page.ID,
		PageURL:   page.URL,
		LinkCount: len(doc.Links),
	}

	// Export first so a hung renderer costs nothing but time; the
	// degraded path continues without an image.
	imagePath, method := c.exportImage(ctx, path, req.ForceExport)
	res.ExportMethod = method

	srcBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", path)
	}
	srcAtt, err := c.store.UploadAttachment(ctx, page.ID, filepath.Base(path), srcBytes, sourceMediaType)
	if err != nil {
		return nil, err
	}
	res.SourceAttachment = srcAtt

	if imagePath != "" {
		imgBytes, err := os.ReadFile(imagePath)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeExportFailed, err, "reading exported image")
		}
		imgAtt, err := c.store.UploadAttachment(ctx, page.ID, filepath.Base(imagePath), imgBytes, export.MediaType(c.format()))
		if err != nil {
			return nil, err
		}
		res.ImageAttachment = imgAtt
	}

	markerID := ""
	if rec != nil {
		markerID = rec.MarkerID
	}
	if markerID == "" {
		markerID = uuid.NewString()
	}

	// The body merge runs only when an image exists; a degraded
	// publish never rewrites the page to point at a stale image.
	if !req.SkipContent && res.ImageAttachment != nil {
		block := RenderBlock(markerID, res.ImageAttachment.Filename, srcAtt.Filename, doc.Links)
		merged := Merge(page.Body, block, stem(path), markerID)
		if merged != page.Body {
			if _, err := c.store.UpdateBody(ctx, page.ID, page.Title, merged, page.Version); err != nil {
				return nil, err
			}
			res.PageUpdated = true
		}
	}

	if err := c.updateRecord(ctx, path, page, srcAtt, markerID, doc.Links); err != nil {
		return nil, err
	}
	return res, nil
}

// resolveTarget picks the page: explicit reference first, then the
// stored record.
func (c *Coordinator) resolveTarget(ctx context.Context, path, pageRef string, rec *state.Record) (*confluence.Page, error) {
	if pageRef != "" {
		ref, err := confluence.ParsePageRef(pageRef)
		if err != nil {
			return nil, err
		}
		return ref.Resolve(ctx, c.store)
	}
	if rec.Linked() {
		return c.store.GetPage(ctx, rec.PageID)
	}
	return nil, errors.New(errors.ErrCodeTargetUnresolved,
		"no page linked to %s; pass --page or check the diagram out first", filepath.Base(path))
}

func (c *Coordinator) exportImage(ctx context.Context, path string, force bool) (outputPath, method string) {
	res, err := c.exporter.Export(ctx, export.Request{
		Source: path,
		Format: c.format(),
		Force:  force,
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("export failed, publishing without image", "diagram", filepath.Base(path), "error", err)
		}
		return "", ""
	}
	return res.OutputFile, res.Method
}

func (c *Coordinator) updateRecord(ctx context.Context, path string, page *confluence.Page, srcAtt *confluence.Attachment, markerID string, links []diagram.Link) error {
	rec := &state.Record{
		LocalPath:             path,
		PageID:                page.ID,
		PageURL:               page.URL,
		MarkerID:              markerID,
		LastSync:              time.Now().UTC(),
		LastAttachmentVersion: srcAtt.Version,
		Links:                 links,
	}
	if info, err := os.Stat(path); err == nil {
		rec.LastLocalModified = info.ModTime().UTC()
	}
	return c.records.Put(ctx, rec)
}

func (c *Coordinator) format() string {
	if c.Format == "" {
		return "png"
	}
	return c.Format
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BatchResult summarizes a publish-all run.
type BatchResult struct {
	Published []*Result
	Failed    map[string]error
}

// PublishAll publishes every linked diagram whose file still exists.
// Failures are isolated per diagram; one broken diagram never stops
// the rest of the batch.
func (c *Coordinator) PublishAll(ctx context.Context, force bool) (*BatchResult, error) {
	recs, err := c.records.List(ctx)
	if err != nil {
		return nil, err
	}
	batch := &BatchResult{Failed: map[string]error{}}
	for _, rec := range recs {
		if !rec.Linked() {
			continue
		}
		if _, err := os.Stat(rec.LocalPath); err != nil {
			batch.Failed[rec.LocalPath] = errors.New(errors.ErrCodeInvalidPath, "file missing locally")
			continue
		}
		res, err := c.Publish(ctx, Request{Path: rec.LocalPath, ForceExport: force})
		if err != nil {
			batch.Failed[rec.LocalPath] = err
			continue
		}
		batch.Published = append(batch.Published, res)
	}
	return batch, nil
}
