package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/domain"
)

func newElasticTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *ElasticRepository) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	repo := NewElasticRepository(&config.ElasticConfig{
		Host:       server.URL,
		Index:      "media_index",
		VectorDims: 4,
	})
	return server, repo
}

func TestEnsureIndexCreatesMapping(t *testing.T) {
	var created map[string]interface{}
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/media_index":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/media_index":
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Errorf("failed to decode mapping body: %v", err)
			}
			w.Write([]byte(`{"acknowledged":true}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}

	props := created["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	vector := props["vector"].(map[string]interface{})
	if vector["type"] != "dense_vector" {
		t.Errorf("expected dense_vector mapping, got %v", vector["type"])
	}
	if vector["dims"] != float64(4) {
		t.Errorf("expected dims 4, got %v", vector["dims"])
	}
	if props["summary"].(map[string]interface{})["type"] != "text" {
		t.Errorf("expected summary mapped as text")
	}
}

func TestEnsureIndexSkipsExisting(t *testing.T) {
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/media_index" {
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex failed: %v", err)
	}
}

func TestUpsertUsesCompositeID(t *testing.T) {
	var gotPath string
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"result":"created"}`))
	})

	doc := &domain.MediaDocument{
		Filename:  "cat.jpg",
		MediaType: domain.MediaTypeImage,
		Summary:   "a cat",
		Vector:    []float32{0.1, 0.2, 0.3, 0.4},
	}
	if err := repo.Upsert(context.Background(), doc); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if gotPath != "/media_index/_doc/image:cat.jpg" {
		t.Errorf("expected composite document id in path, got %s", gotPath)
	}
}

func TestUpsertRejectsWrongDimensions(t *testing.T) {
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request should reach the index, got %s %s", r.Method, r.URL.Path)
	})

	doc := &domain.MediaDocument{
		Filename:  "cat.jpg",
		MediaType: domain.MediaTypeImage,
		Vector:    []float32{0.1, 0.2},
	}
	if err := repo.Upsert(context.Background(), doc); !errors.Is(err, ErrVectorDimension) {
		t.Fatalf("expected ErrVectorDimension, got %v", err)
	}
}

func TestKeywordSearchQueryShape(t *testing.T) {
	var body map[string]interface{}
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media_index/_search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode search body: %v", err)
		}
		w.Write([]byte(`{"hits":{"hits":[
			{"_id":"image:cat.jpg","_score":3.2,"_source":{"filename":"cat.jpg","media_type":"image","summary":"a cat"}}
		]}}`))
	})

	docs, err := repo.KeywordSearch(context.Background(), "orange cat", []string{"summary", "transcript"}, 0)
	if err != nil {
		t.Fatalf("KeywordSearch failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "cat.jpg" || docs[0].Score != 3.2 {
		t.Fatalf("unexpected result: %+v", docs)
	}

	mm := body["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	if mm["fuzziness"] != "AUTO" {
		t.Errorf("expected fuzziness AUTO, got %v", mm["fuzziness"])
	}
	if mm["operator"] != "and" {
		t.Errorf("expected operator and, got %v", mm["operator"])
	}
	if _, hasSize := body["size"]; hasSize {
		t.Errorf("size 0 must not set an explicit result cap")
	}
}

func TestVectorSearchQueryShape(t *testing.T) {
	var body map[string]interface{}
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode search body: %v", err)
		}
		w.Write([]byte(`{"hits":{"hits":[
			{"_id":"image:cat.jpg","_score":1.93,"_source":{"filename":"cat.jpg","media_type":"image","summary":"a cat"}},
			{"_id":"video:dog.mp4","_score":1.10,"_source":{"filename":"dog.mp4","media_type":"video","summary":"a dog"}}
		]}}`))
	})

	docs, err := repo.VectorSearch(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 5)
	if err != nil {
		t.Fatalf("VectorSearch failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(docs))
	}
	if docs[0].Score != 1.93 || docs[1].Score != 1.10 {
		t.Errorf("unexpected scores: %v, %v", docs[0].Score, docs[1].Score)
	}

	if body["size"] != float64(5) {
		t.Errorf("expected size 5, got %v", body["size"])
	}
	script := body["query"].(map[string]interface{})["script_score"].(map[string]interface{})["script"].(map[string]interface{})
	source := script["source"].(string)
	if !strings.Contains(source, "cosineSimilarity") || !strings.Contains(source, "+ 1.0") {
		t.Errorf("unexpected script source %q", source)
	}
}

func TestVectorSearchRejectsWrongDimensions(t *testing.T) {
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request should reach the index, got %s %s", r.Method, r.URL.Path)
	})

	if _, err := repo.VectorSearch(context.Background(), []float32{0.1}, 5); !errors.Is(err, ErrVectorDimension) {
		t.Fatalf("expected ErrVectorDimension, got %v", err)
	}
}

func TestSearchPropagatesIndexError(t *testing.T) {
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"search_phase_execution_exception","reason":"runtime error"},"status":400}`))
	})

	if _, err := repo.KeywordSearch(context.Background(), "cat", []string{"summary"}, 0); err == nil {
		t.Fatal("expected search error to propagate")
	}
}

func TestExistsAndDelete(t *testing.T) {
	_, repo := newElasticTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			if r.URL.Path == "/media_index/_doc/image:cat.jpg" {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"result":"not_found"}`))
		}
	})

	ctx := context.Background()
	exists, err := repo.Exists(ctx, "cat.jpg", domain.MediaTypeImage)
	if err != nil || !exists {
		t.Errorf("expected document to exist, exists=%v err=%v", exists, err)
	}
	exists, err = repo.Exists(ctx, "dog.jpg", domain.MediaTypeImage)
	if err != nil || exists {
		t.Errorf("expected document to be missing, exists=%v err=%v", exists, err)
	}

	// Deleting a missing document is not an error.
	if err := repo.Delete(ctx, "dog.jpg", domain.MediaTypeImage); err != nil {
		t.Errorf("delete of missing document should not fail: %v", err)
	}
}
