package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhart/medialens/internal/domain"
)

type fakeStore struct {
	records   map[string]*domain.MediaAnalysis
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*domain.MediaAnalysis)}
}

func (f *fakeStore) Exists(_ context.Context, filename string, mediaType domain.MediaType) (bool, error) {
	_, ok := f.records[domain.DocumentID(mediaType, filename)]
	return ok, nil
}

func (f *fakeStore) Upsert(_ context.Context, rec *domain.MediaAnalysis, overwrite bool) (domain.StoreOutcome, error) {
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	id := domain.DocumentID(rec.MediaType, rec.Filename)
	if _, ok := f.records[id]; ok && !overwrite {
		return domain.OutcomeSkipped, nil
	}
	f.records[id] = rec
	return domain.OutcomeStored, nil
}

type fakeAnalyzer struct {
	failOn map[string]bool
	calls  []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, path string, mediaType domain.MediaType) (*domain.MediaDocument, error) {
	filename := filepath.Base(path)
	f.calls = append(f.calls, filename)
	if f.failOn[filename] {
		return nil, errors.New("inference failed")
	}
	return &domain.MediaDocument{
		Filename:  filename,
		MediaType: mediaType,
		Summary:   "summary of " + filename,
		Vector:    []float32{0.1, 0.2},
	}, nil
}

func writeMediaFiles(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("media bytes"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return root
}

func TestIngestDirectorySkipsHiddenAndUnsupported(t *testing.T) {
	root := writeMediaFiles(t, "cat.jpg", ".DS_Store", "._ghost.jpg", "notes.txt", "sub/dog.mp4")
	index := newFakeIndex()
	store := newFakeStore()
	analyzer := &fakeAnalyzer{}
	svc := NewIngestService(index, store, analyzer, true)

	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("IngestDirectory failed: %v", err)
	}

	if stats.Scanned != 2 || stats.Ingested != 2 || stats.Skipped != 0 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	for _, name := range []string{".DS_Store", "._ghost.jpg", "notes.txt"} {
		for _, called := range analyzer.calls {
			if called == name {
				t.Errorf("%s must never reach analysis", name)
			}
		}
	}
	if _, ok := index.docs["video:dog.mp4"]; !ok {
		t.Error("expected nested video to be indexed")
	}
	if _, ok := store.records["image:cat.jpg"]; !ok {
		t.Error("expected image to be stored")
	}
}

func TestIngestDirectoryIsIdempotent(t *testing.T) {
	root := writeMediaFiles(t, "cat.jpg")
	index := newFakeIndex()
	store := newFakeStore()
	analyzer := &fakeAnalyzer{}
	svc := NewIngestService(index, store, analyzer, true)

	if _, err := svc.IngestDirectory(context.Background(), root); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if stats.Skipped != 1 || stats.Ingested != 0 {
		t.Errorf("second run must skip, got %+v", stats)
	}
	// The duplicate check runs before analysis, so no inference is wasted.
	if len(analyzer.calls) != 1 {
		t.Errorf("expected exactly one analysis call, got %d", len(analyzer.calls))
	}
	if len(index.docs) != 1 || len(store.records) != 1 {
		t.Errorf("expected one document per store, got %d/%d", len(index.docs), len(store.records))
	}
}

func TestIngestDirectoryDedupAcrossStores(t *testing.T) {
	root := writeMediaFiles(t, "cat.jpg")
	index := newFakeIndex()
	store := newFakeStore()
	analyzer := &fakeAnalyzer{}

	// Document present only in the index, as an earlier index-only run
	// leaves it.
	index.docs["image:cat.jpg"] = &domain.MediaDocument{Filename: "cat.jpg", MediaType: domain.MediaTypeImage}

	svc := NewIngestService(index, store, analyzer, true)
	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("IngestDirectory failed: %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("presence in either store must count as duplicate, got %+v", stats)
	}
	if len(analyzer.calls) != 0 {
		t.Error("duplicate must be detected before analysis")
	}
}

func TestIngestDirectoryIsolatesFailures(t *testing.T) {
	root := writeMediaFiles(t, "bad.jpg", "good.jpg")
	index := newFakeIndex()
	store := newFakeStore()
	analyzer := &fakeAnalyzer{failOn: map[string]bool{"bad.jpg": true}}
	svc := NewIngestService(index, store, analyzer, true)

	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("batch must survive per-file failures: %v", err)
	}
	if stats.Failed != 1 || stats.Ingested != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if _, ok := index.docs["image:good.jpg"]; !ok {
		t.Error("files after a failure must still be ingested")
	}
}

func TestIngestDirectoryWriteGate(t *testing.T) {
	root := writeMediaFiles(t, "cat.jpg")
	index := newFakeIndex()
	store := newFakeStore()
	svc := NewIngestService(index, store, &fakeAnalyzer{}, false)

	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("IngestDirectory failed: %v", err)
	}
	if stats.Ingested != 1 {
		t.Errorf("index-only ingestion is a valid terminal state, got %+v", stats)
	}
	if len(index.docs) != 1 {
		t.Error("expected index write")
	}
	if len(store.records) != 0 {
		t.Error("relational store must not be written when the gate is off")
	}
}

func TestIngestDirectoryRollsBackIndexOnStoreFailure(t *testing.T) {
	root := writeMediaFiles(t, "cat.jpg")
	index := newFakeIndex()
	store := newFakeStore()
	store.upsertErr = errors.New("database down")
	svc := NewIngestService(index, store, &fakeAnalyzer{}, true)

	stats, err := svc.IngestDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("batch must survive the failure: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("expected one failure, got %+v", stats)
	}
	// The index write must not survive a failed relational write.
	if len(index.docs) != 0 {
		t.Error("expected index write to be rolled back")
	}
	if len(index.deleted) != 1 || index.deleted[0] != "image:cat.jpg" {
		t.Errorf("expected rollback delete of image:cat.jpg, got %v", index.deleted)
	}
}

func TestIngestDirectorySetsRelativePath(t *testing.T) {
	root := writeMediaFiles(t, "sub/dir/dog.mp4")
	index := newFakeIndex()
	svc := NewIngestService(index, newFakeStore(), &fakeAnalyzer{}, false)

	if _, err := svc.IngestDirectory(context.Background(), root); err != nil {
		t.Fatalf("IngestDirectory failed: %v", err)
	}
	doc, ok := index.docs["video:dog.mp4"]
	if !ok {
		t.Fatal("expected document in index")
	}
	if doc.RelativePath != filepath.Join("sub", "dir", "dog.mp4") {
		t.Errorf("unexpected relative path %q", doc.RelativePath)
	}
	if doc.Timestamp.IsZero() {
		t.Error("expected ingestion timestamp to be set")
	}
}
