package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/prompts"
)

type fakeIndex struct {
	vectorHits  []domain.ScoredDocument
	keywordHits []domain.ScoredDocument
	vectorErr   error
	keywordErr  error

	keywordCalled bool
	docs          map[string]*domain.MediaDocument
	deleted       []string
	upsertErr     error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]*domain.MediaDocument)}
}

func (f *fakeIndex) Upsert(_ context.Context, doc *domain.MediaDocument) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.docs[doc.ID()] = doc
	return nil
}

func (f *fakeIndex) Exists(_ context.Context, filename string, mediaType domain.MediaType) (bool, error) {
	_, ok := f.docs[domain.DocumentID(mediaType, filename)]
	return ok, nil
}

func (f *fakeIndex) Delete(_ context.Context, filename string, mediaType domain.MediaType) error {
	id := domain.DocumentID(mediaType, filename)
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) KeywordSearch(_ context.Context, _ string, _ []string, _ int) ([]domain.ScoredDocument, error) {
	f.keywordCalled = true
	return f.keywordHits, f.keywordErr
}

func (f *fakeIndex) VectorSearch(_ context.Context, _ []float32, _ int) ([]domain.ScoredDocument, error) {
	return f.vectorHits, f.vectorErr
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedPassage(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

type fakeLLM struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.err
}

func scoredDoc(filename string, mediaType domain.MediaType, summary string, score float64) domain.ScoredDocument {
	return domain.ScoredDocument{
		MediaDocument: domain.MediaDocument{
			Filename:  filename,
			MediaType: mediaType,
			Summary:   summary,
			Vector:    []float32{0.1, 0.2},
		},
		Score: score,
	}
}

func ragTestConfig() config.RAGConfig {
	return config.RAGConfig{
		TopK:              5,
		ScoreThreshold:    1.25,
		FallbackToKeyword: true,
		MaxContextDocs:    2,
	}
}

func TestQueryFiltersByThresholdAndCaps(t *testing.T) {
	index := newFakeIndex()
	index.vectorHits = []domain.ScoredDocument{
		scoredDoc("a.jpg", domain.MediaTypeImage, "first", 1.9),
		scoredDoc("b.jpg", domain.MediaTypeImage, "second", 1.6),
		scoredDoc("c.jpg", domain.MediaTypeImage, "third", 1.4),
		scoredDoc("d.jpg", domain.MediaTypeImage, "fourth", 1.1),
	}
	llm := &fakeLLM{answer: "the answer"}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, llm, ragTestConfig())

	result, err := svc.Query(context.Background(), &RAGRequest{Query: "what is in the photos"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	// Three hits beat the threshold but the context is capped at two.
	if len(result.SupportingDocuments) != 2 {
		t.Fatalf("expected 2 supporting documents, got %d", len(result.SupportingDocuments))
	}
	if result.SupportingDocuments[0].Filename != "a.jpg" || result.SupportingDocuments[1].Filename != "b.jpg" {
		t.Errorf("expected top two hits in order, got %s and %s",
			result.SupportingDocuments[0].Filename, result.SupportingDocuments[1].Filename)
	}
	if index.keywordCalled {
		t.Error("keyword fallback must not run when vector hits qualify")
	}
	if result.Answer != "the answer" {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.RAGPrompt != "" {
		t.Error("prompt must not be returned without debug")
	}
	for _, doc := range result.SupportingDocuments {
		if doc.Vector != nil {
			t.Error("supporting documents must not carry embedding vectors")
		}
	}
}

func TestQueryThresholdIsStrict(t *testing.T) {
	index := newFakeIndex()
	// A hit exactly at the threshold does not qualify.
	index.vectorHits = []domain.ScoredDocument{
		scoredDoc("a.jpg", domain.MediaTypeImage, "edge", 1.25),
	}
	index.keywordHits = nil
	llm := &fakeLLM{answer: "nothing found"}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, llm, ragTestConfig())

	result, err := svc.Query(context.Background(), &RAGRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.SupportingDocuments) != 0 {
		t.Errorf("score equal to threshold must be filtered out, got %d docs", len(result.SupportingDocuments))
	}
	if !index.keywordCalled {
		t.Error("expected keyword fallback after all hits were filtered")
	}
}

func TestQueryKeywordFallback(t *testing.T) {
	index := newFakeIndex()
	index.vectorHits = []domain.ScoredDocument{
		scoredDoc("weak.jpg", domain.MediaTypeImage, "weak match", 0.9),
	}
	index.keywordHits = []domain.ScoredDocument{
		scoredDoc("kw1.jpg", domain.MediaTypeImage, "keyword one", 4.2),
		scoredDoc("kw2.mp4", domain.MediaTypeVideo, "keyword two", 3.1),
		scoredDoc("kw3.jpg", domain.MediaTypeImage, "keyword three", 2.0),
	}
	llm := &fakeLLM{answer: "keyword answer"}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, llm, ragTestConfig())

	result, err := svc.Query(context.Background(), &RAGRequest{Query: "keyword"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	// Fallback hits are taken without a threshold but still capped.
	if len(result.SupportingDocuments) != 2 {
		t.Fatalf("expected 2 fallback documents, got %d", len(result.SupportingDocuments))
	}
	if result.SupportingDocuments[0].Filename != "kw1.jpg" {
		t.Errorf("expected best keyword hit first, got %s", result.SupportingDocuments[0].Filename)
	}
}

func TestQueryFallbackDisabled(t *testing.T) {
	index := newFakeIndex()
	index.vectorHits = nil
	index.keywordHits = []domain.ScoredDocument{
		scoredDoc("kw.jpg", domain.MediaTypeImage, "keyword", 4.0),
	}
	llm := &fakeLLM{answer: "I found no relevant documents."}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, llm, ragTestConfig())

	off := false
	result, err := svc.Query(context.Background(), &RAGRequest{Query: "anything", FallbackToKeyword: &off, Debug: true})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if index.keywordCalled {
		t.Error("fallback must not run when disabled")
	}
	if len(result.SupportingDocuments) != 0 {
		t.Errorf("expected no supporting documents, got %d", len(result.SupportingDocuments))
	}
	// The answer model still runs over the placeholder context.
	if !strings.Contains(result.RAGPrompt, prompts.NoRelevantDocuments) {
		t.Errorf("expected placeholder context in prompt, got:\n%s", result.RAGPrompt)
	}
	if result.Answer == "" {
		t.Error("expected an answer acknowledging the lack of evidence")
	}
}

func TestQueryDebugReturnsPrompt(t *testing.T) {
	index := newFakeIndex()
	index.vectorHits = []domain.ScoredDocument{
		scoredDoc("cat.jpg", domain.MediaTypeImage, "an orange cat on a sofa", 1.93),
	}
	llm := &fakeLLM{answer: "An orange cat."}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, llm, ragTestConfig())

	result, err := svc.Query(context.Background(), &RAGRequest{Query: "what animal is in the picture", Debug: true})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(result.RAGPrompt, "an orange cat on a sofa") {
		t.Errorf("prompt must embed the retrieved context, got:\n%s", result.RAGPrompt)
	}
	if !strings.Contains(result.RAGPrompt, "what animal is in the picture") {
		t.Errorf("prompt must embed the query, got:\n%s", result.RAGPrompt)
	}
	if llm.lastPrompt != result.RAGPrompt {
		t.Error("returned prompt must be the one sent to the model")
	}
}

func TestQueryIndexErrorAborts(t *testing.T) {
	index := newFakeIndex()
	index.vectorErr = errors.New("index unreachable")
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, &fakeLLM{answer: "x"}, ragTestConfig())

	if _, err := svc.Query(context.Background(), &RAGRequest{Query: "anything"}); err == nil {
		t.Fatal("expected vector search error to abort the call")
	}

	index.vectorErr = nil
	index.vectorHits = nil
	index.keywordErr = errors.New("index unreachable")
	if _, err := svc.Query(context.Background(), &RAGRequest{Query: "anything"}); err == nil {
		t.Fatal("expected keyword fallback error to abort the call")
	}
}

func TestQueryEmbeddingErrorAborts(t *testing.T) {
	svc := NewRAGService(newFakeIndex(), &fakeEmbedder{err: errors.New("api down")}, &fakeLLM{}, ragTestConfig())
	if _, err := svc.Query(context.Background(), &RAGRequest{Query: "anything"}); err == nil {
		t.Fatal("expected embedding error to abort the call")
	}
}

func TestSearchHasNoThresholdOrCap(t *testing.T) {
	index := newFakeIndex()
	index.keywordHits = []domain.ScoredDocument{
		scoredDoc("a.jpg", domain.MediaTypeImage, "one", 0.4),
		scoredDoc("b.jpg", domain.MediaTypeImage, "two", 0.3),
		scoredDoc("c.jpg", domain.MediaTypeImage, "three", 0.2),
	}
	svc := NewRAGService(index, &fakeEmbedder{vector: []float32{0.1}}, &fakeLLM{}, ragTestConfig())

	docs, err := svc.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// All hits come back regardless of score or the RAG context cap.
	if len(docs) != 3 {
		t.Errorf("expected 3 hits, got %d", len(docs))
	}
}

func TestBuildContext(t *testing.T) {
	if got := buildContext(nil); got != prompts.NoRelevantDocuments {
		t.Errorf("empty set must yield the placeholder, got %q", got)
	}

	docs := []domain.ScoredDocument{
		scoredDoc("a.jpg", domain.MediaTypeImage, "summary a", 2.0),
		{
			MediaDocument: domain.MediaDocument{
				Filename:   "b.mp4",
				MediaType:  domain.MediaTypeVideo,
				Summary:    "summary b",
				Transcript: "transcript b",
			},
			Score: 1.8,
		},
	}
	got := buildContext(docs)
	want := "summary a\n\nsummary b\ntranscript b"
	if got != want {
		t.Errorf("unexpected context:\ngot:  %q\nwant: %q", got, want)
	}
}
