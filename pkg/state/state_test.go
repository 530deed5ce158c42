package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlorenz/drawbridge/pkg/diagram"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), ".drawbridge", "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	rec := &Record{
		LocalPath:             "docs/flow.drawio",
		PageID:                "12345",
		PageURL:               "https://wiki.example.com/display/DEV/Flow",
		MarkerID:              "abc-123",
		LastSync:              time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		LastAttachmentVersion: 3,
		Links: []diagram.Link{
			{Label: "Runbook", URL: "https://wiki.example.com/runbook"},
		},
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "docs/flow.drawio")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil, want record")
	}
	if got.PageID != "12345" || got.MarkerID != "abc-123" {
		t.Errorf("record = %+v, want page 12345 marker abc-123", got)
	}
	if !got.LastSync.Equal(rec.LastSync) {
		t.Errorf("LastSync = %v, want %v", got.LastSync, rec.LastSync)
	}
	if len(got.Links) != 1 || got.Links[0].URL != "https://wiki.example.com/runbook" {
		t.Errorf("Links = %+v, want the stored link", got.Links)
	}
}

func TestFileStoreMissingReturnsNil(t *testing.T) {
	s := newStore(t)
	got, err := s.Get(context.Background(), "nope.drawio")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for untracked path", got)
	}
}

func TestFileStorePathNormalization(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, &Record{LocalPath: "./docs/flow.drawio", PageID: "1"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get(ctx, "docs/flow.drawio")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v; want record under normalized key", got, err)
	}
	if got.LocalPath != "docs/flow.drawio" {
		t.Errorf("LocalPath = %q, want cleaned path", got.LocalPath)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Put(ctx, &Record{LocalPath: "a.drawio", PageID: "1"})
	if err := s.Delete(ctx, "a.drawio"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := s.Get(ctx, "a.drawio"); got != nil {
		t.Errorf("Get() after delete = %+v, want nil", got)
	}

	// Deleting an absent record is not an error.
	if err := s.Delete(ctx, "missing.drawio"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestFileStoreListSorted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, p := range []string{"c.drawio", "a.drawio", "b.drawio"} {
		s.Put(ctx, &Record{LocalPath: p})
	}
	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.LocalPath)
	}
	want := []string{"a.drawio", "b.drawio", "c.drawio"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() order = %v, want %v", got, want)
		}
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s1, _ := NewFileStore(path)
	s1.Put(ctx, &Record{LocalPath: "flow.drawio", PageID: "9"})

	s2, _ := NewFileStore(path)
	got, err := s2.Get(ctx, "flow.drawio")
	if err != nil || got == nil || got.PageID != "9" {
		t.Errorf("reopened Get() = %+v, %v; want persisted record", got, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	s, _ := NewFileStore(path)
	if _, err := s.Get(context.Background(), "x"); err == nil {
		t.Error("Get() on corrupt state file error = nil, want error")
	}
}

func TestRecordLinked(t *testing.T) {
	if (&Record{}).Linked() {
		t.Error("empty record reports linked")
	}
	if !(&Record{PageID: "1"}).Linked() {
		t.Error("record with page ID reports unlinked")
	}
	var nilRec *Record
	if nilRec.Linked() {
		t.Error("nil record reports linked")
	}
}
