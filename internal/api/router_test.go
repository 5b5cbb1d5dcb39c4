package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/insignia/internal/dataset"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDataset(t *testing.T) dataset.Layout {
	t.Helper()
	root := t.TempDir()
	labels := filepath.Join(root, "valid", "labels")
	images := filepath.Join(root, "valid", "images")
	for _, d := range []string{labels, images} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]string{
		filepath.Join(labels, "0_jpg.rf.a.txt"): "0 0.5 0.5 0.2 0.2\n",
		filepath.Join(images, "0_jpg.rf.a.jpg"): "jpeg",
		filepath.Join(labels, "0_jpg.rf.b.txt"): "0 0.5 0.5 0.2 0.2\n",
		filepath.Join(labels, "1_jpg.rf.c.txt"): "1 0.5 0.5 0.2 0.2\n",
		filepath.Join(images, "1_jpg.rf.c.jpg"): "jpeg",
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dataset.Layout{Root: root, Split: "valid", PublicPath: "/dataset"}
}

func newTestRouter(t *testing.T, l dataset.Layout) *gin.Engine {
	return NewRouter(Options{
		Dictionary:  dataset.NewService(l),
		DatasetRoot: l.Root,
		PublicPath:  l.PublicPath,
		Frontend: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("spa"))
		}),
	})
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDictionaryBadRequests(t *testing.T) {
	r := newTestRouter(t, newDataset(t))
	for _, target := range []string{"/api/dictionary", "/api/dictionary?classId=abc", "/api/dictionary?classId=-1"} {
		rec := get(r, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Fatalf("%s: expected error body, got %q", target, rec.Body.String())
		}
	}
}

func TestDictionaryReturnsPairedSamples(t *testing.T) {
	r := newTestRouter(t, newDataset(t))
	rec := get(r, "/api/dictionary?classId=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res dataset.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ClassID != 0 || res.Count != 1 || len(res.Samples) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Samples[0].ImageURL != "/dataset/valid/images/0_jpg.rf.a.jpg" {
		t.Fatalf("unexpected image url %s", res.Samples[0].ImageURL)
	}

	// the image url resolves through the static dataset route
	img := get(r, res.Samples[0].ImageURL)
	if img.Code != http.StatusOK || img.Body.String() != "jpeg" {
		t.Fatalf("expected image bytes, got %d %q", img.Code, img.Body.String())
	}
}

func TestDictionaryEmptySamplesIsArray(t *testing.T) {
	r := newTestRouter(t, newDataset(t))
	rec := get(r, "/api/dictionary?classId=7")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"samples":[]`) {
		t.Fatalf("expected empty samples array, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDictionaryDatasetMissing(t *testing.T) {
	l := dataset.Layout{Root: filepath.Join(t.TempDir(), "missing"), Split: "valid"}
	rec := get(newTestRouter(t, l), "/api/dictionary?classId=0")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dataset directories not found") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

type failingDictionary struct{ err error }

func (f failingDictionary) Lookup(context.Context, int) (dataset.Result, error) {
	return dataset.Result{}, f.err
}

func TestDictionaryReadFailure(t *testing.T) {
	r := NewRouter(Options{Dictionary: failingDictionary{err: fmt.Errorf("%w: a.txt", dataset.ErrReadFailure)}})
	rec := get(r, "/api/dictionary?classId=3")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Failed to read dataset") {
		t.Fatalf("expected read failure 500, got %d %s", rec.Code, rec.Body.String())
	}

	r = NewRouter(Options{Dictionary: failingDictionary{err: errors.New("boom")}})
	if rec := get(r, "/api/dictionary?classId=3"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("unknown errors are server errors, got %d", rec.Code)
	}
}

func TestAlphabetAndHealth(t *testing.T) {
	r := newTestRouter(t, newDataset(t))
	rec := get(r, "/api/alphabet")
	var items []struct {
		ID     int    `json:"id"`
		Letter string `json:"letter"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 24 {
		t.Fatalf("expected 24 alphabet items, got %d %v", len(items), err)
	}
	if rec := get(r, "/api/health"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}
	if rec := get(r, "/api"); !strings.Contains(rec.Body.String(), "Welcome") {
		t.Fatalf("unexpected welcome %s", rec.Body.String())
	}
}

func TestFrontendFallbackAndCORS(t *testing.T) {
	r := newTestRouter(t, newDataset(t))
	rec := get(r, "/quiz")
	if rec.Body.String() != "spa" {
		t.Fatalf("expected spa fallback, got %q", rec.Body.String())
	}
	if rec := get(r, "/api/unknown"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown api routes should 404, got %d", rec.Code)
	}

	pre := httptest.NewRecorder()
	r.ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/api/dictionary", nil))
	if pre.Code != http.StatusNoContent || pre.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight %d %v", pre.Code, pre.Header())
	}
}
