package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/state"
)

// CheckoutRequest describes one checkout operation.
type CheckoutRequest struct {
	// PageRef is the source page (ID or URL).
	PageRef string
	// OutputDir receives the file, created if missing.
	OutputDir string
	// Filename picks one attachment when the page carries several
	// .drawio files. Empty is fine with a single candidate.
	Filename string
}

// CheckoutResult reports a completed checkout.
type CheckoutResult struct {
	Path       string
	PageID     string
	PageURL    string
	Attachment *confluence.Attachment
}

// DrawioAttachments lists the .drawio attachments of a page, for
// callers that want to offer a choice before checking out.
func (c *Coordinator) DrawioAttachments(ctx context.Context, pageRef string) (*confluence.Page, []*confluence.Attachment, error) {
	ref, err := confluence.ParsePageRef(pageRef)
	if err != nil {
		return nil, nil, err
	}
	page, err := ref.Resolve(ctx, c.store)
	if err != nil {
		return nil, nil, err
	}
	atts, err := c.store.ListAttachments(ctx, page.ID)
	if err != nil {
		return nil, nil, err
	}
	var candidates []*confluence.Attachment
	for _, att := range atts {
		if strings.HasSuffix(att.Filename, ".drawio") {
			candidates = append(candidates, att)
		}
	}
	return page, candidates, nil
}

// Checkout downloads a diagram attachment from a page and starts
// tracking it. With several candidates and no filename given it fails
// with ATTACHMENT_AMBIGUOUS rather than guessing.
func (c *Coordinator) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	page, candidates, err := c.DrawioAttachments(ctx, req.PageRef)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New(errors.ErrCodeAttachmentNotFound, "no .drawio attachments on page %q", page.Title)
	}

	var att *confluence.Attachment
	switch {
	case req.Filename != "":
		for _, cand := range candidates {
			if cand.Filename == req.Filename {
				att = cand
				break
			}
		}
		if att == nil {
			return nil, errors.New(errors.ErrCodeAttachmentNotFound, "attachment %q not on page %q", req.Filename, page.Title)
		}
	case len(candidates) > 1:
		names := make([]string, len(candidates))
		for i, cand := range candidates {
			names[i] = cand.Filename
		}
		return nil, errors.New(errors.ErrCodeAttachmentAmbiguous,
			"page %q has several diagrams (%s); pick one with --filename", page.Title, strings.Join(names, ", "))
	default:
		att = candidates[0]
	}

	data, err := c.store.DownloadAttachment(ctx, att)
	if err != nil {
		return nil, err
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "creating %s", outDir)
	}
	outPath := state.NormalizePath(filepath.Join(outDir, att.Filename))
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "writing %s", outPath)
	}

	rec := &state.Record{
		LocalPath:             outPath,
		PageID:                page.ID,
		PageURL:               page.URL,
		LastSync:              time.Now().UTC(),
		LastAttachmentVersion: att.Version,
	}
	if info, err := os.Stat(outPath); err == nil {
		rec.LastLocalModified = info.ModTime().UTC()
	}
	if err := c.records.Put(ctx, rec); err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Path:       outPath,
		PageID:     page.ID,
		PageURL:    page.URL,
		Attachment: att,
	}, nil
}
