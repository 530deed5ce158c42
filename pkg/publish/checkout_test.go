package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlorenz/drawbridge/pkg/confluence"
	"github.com/mlorenz/drawbridge/pkg/errors"
	"github.com/mlorenz/drawbridge/pkg/state"
)

func newCheckoutFixture(t *testing.T, attachments ...*confluence.Attachment) *fixture {
	t.Helper()
	fx := newFixture(t, "")
	fx.store.attachments = attachments
	return fx
}

func att(filename string, version int) *confluence.Attachment {
	return &confluence.Attachment{
		ID:          "att-" + filename,
		Title:       filename,
		Filename:    filename,
		Version:     version,
		DownloadURL: "/download/" + filename,
	}
}

func TestCheckoutSingleCandidate(t *testing.T) {
	fx := newCheckoutFixture(t, att("flow.drawio", 3), att("flow.png", 2))
	fx.store.downloads["flow.drawio"] = []byte(testContainer)
	ctx := context.Background()
	outDir := t.TempDir()

	res, err := fx.coord.Checkout(ctx, CheckoutRequest{PageRef: "12345", OutputDir: outDir})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	wantPath := state.NormalizePath(filepath.Join(outDir, "flow.drawio"))
	if res.Path != wantPath {
		t.Errorf("res.Path = %q, want %q", res.Path, wantPath)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil || string(data) != testContainer {
		t.Errorf("downloaded file = %q err=%v, want attachment bytes", data, err)
	}

	rec, err := fx.records.Get(ctx, res.Path)
	if err != nil || rec == nil {
		t.Fatalf("record = %v, %v; want tracked after checkout", rec, err)
	}
	if rec.PageID != "12345" || rec.LastAttachmentVersion != 3 {
		t.Errorf("record = %+v, want page 12345 and attachment version 3", rec)
	}
	if rec.LastLocalModified.IsZero() {
		t.Error("record.LastLocalModified not set")
	}
}

func TestCheckoutAmbiguousWithoutFilename(t *testing.T) {
	fx := newCheckoutFixture(t, att("a.drawio", 1), att("b.drawio", 1))

	_, err := fx.coord.Checkout(context.Background(), CheckoutRequest{PageRef: "12345", OutputDir: t.TempDir()})
	if !errors.Is(err, errors.ErrCodeAttachmentAmbiguous) {
		t.Errorf("Checkout() error = %v, want ATTACHMENT_AMBIGUOUS", err)
	}
}

func TestCheckoutFilenameSelects(t *testing.T) {
	fx := newCheckoutFixture(t, att("a.drawio", 1), att("b.drawio", 4))
	fx.store.downloads["b.drawio"] = []byte(testContainer)

	res, err := fx.coord.Checkout(context.Background(), CheckoutRequest{
		PageRef:   "12345",
		OutputDir: t.TempDir(),
		Filename:  "b.drawio",
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if res.Attachment.Filename != "b.drawio" || res.Attachment.Version != 4 {
		t.Errorf("res.Attachment = %+v, want b.drawio v4", res.Attachment)
	}
}

func TestCheckoutFilenameNotOnPage(t *testing.T) {
	fx := newCheckoutFixture(t, att("a.drawio", 1))

	_, err := fx.coord.Checkout(context.Background(), CheckoutRequest{
		PageRef:   "12345",
		OutputDir: t.TempDir(),
		Filename:  "missing.drawio",
	})
	if !errors.Is(err, errors.ErrCodeAttachmentNotFound) {
		t.Errorf("Checkout() error = %v, want ATTACHMENT_NOT_FOUND", err)
	}
}

func TestCheckoutNoDrawioAttachments(t *testing.T) {
	fx := newCheckoutFixture(t, att("report.pdf", 1))

	_, err := fx.coord.Checkout(context.Background(), CheckoutRequest{PageRef: "12345", OutputDir: t.TempDir()})
	if !errors.Is(err, errors.ErrCodeAttachmentNotFound) {
		t.Errorf("Checkout() error = %v, want ATTACHMENT_NOT_FOUND", err)
	}
}

func TestDrawioAttachmentsFilters(t *testing.T) {
	fx := newCheckoutFixture(t, att("a.drawio", 1), att("pic.png", 1), att("b.drawio", 2))

	page, candidates, err := fx.coord.DrawioAttachments(context.Background(), "12345")
	if err != nil {
		t.Fatalf("DrawioAttachments() error = %v", err)
	}
	if page.ID != "12345" {
		t.Errorf("page.ID = %q, want 12345", page.ID)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want the two .drawio files", len(candidates))
	}
}
