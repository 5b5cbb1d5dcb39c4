package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fixture lays out <root>/valid/{labels,images} and returns the service layout.
func fixture(t *testing.T) Layout {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"labels", "images"} {
		if err := os.MkdirAll(filepath.Join(root, "valid", d), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return Layout{Root: root, Split: "valid", PublicPath: "/dataset"}
}

func writeLabel(t *testing.T, l Layout, base, content string) {
	t.Helper()
	p := filepath.Join(l.Root, l.Split, "labels", base+".txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write label: %v", err)
	}
}

func writeImage(t *testing.T, l Layout, base string) {
	t.Helper()
	p := filepath.Join(l.Root, l.Split, "images", base+".jpg")
	if err := os.WriteFile(p, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
}

func TestParseClasses(t *testing.T) {
	text := "0 0.5 0.5 0.2 0.2\r\n\r\n3 0.1 0.1 0.1 0.1\rfoo 1 2\n-4 1 1\n  7\t0.3 0.3\n"
	got := ParseClasses(text)
	for _, want := range []int{0, 3, 7} {
		if _, ok := got[want]; !ok {
			t.Fatalf("expected class %d in %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 classes, got %v", got)
	}
}

func TestParseClassesEmpty(t *testing.T) {
	if got := ParseClasses("\n\n   \n"); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	_, err := NewScanner(filepath.Join(t.TempDir(), "nope")).Scan(0)
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestScanMatchesAndIsRepeatable(t *testing.T) {
	l := fixture(t)
	writeLabel(t, l, "a", "1 0.5 0.5 0.1 0.1\n")
	writeLabel(t, l, "b", "2 0.5 0.5 0.1 0.1\n1 0.2 0.2 0.1 0.1\n")
	writeLabel(t, l, "c", "2 0.5 0.5 0.1 0.1\n")
	writeLabel(t, l, "d", "")
	if err := os.WriteFile(filepath.Join(l.Root, l.Split, "labels", "notes.md"), []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}

	sc := NewScanner(filepath.Join(l.Root, l.Split, "labels"))
	collect := func() []string {
		seq, err := sc.Scan(1)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		var out []string
		for base, err := range seq {
			if err != nil {
				t.Fatalf("scan error: %v", err)
			}
			out = append(out, base)
		}
		return out
	}
	first := collect()
	if len(first) != 2 || first[0] != "a" || first[1] != "b" {
		t.Fatalf("unexpected matches: %v", first)
	}
	second := collect()
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("scans differ: %v vs %v", first, second)
	}
}

func TestParseClassID(t *testing.T) {
	if _, err := ParseClassID("", false); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing should be invalid, got %v", err)
	}
	for _, raw := range []string{"abc", "-1", "1.5", "12abc", ""} {
		if _, err := ParseClassID(raw, true); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%q should be invalid, got %v", raw, err)
		}
	}
	n, err := ParseClassID("0", true)
	if err != nil || n != 0 {
		t.Fatalf("expected 0, got %d %v", n, err)
	}
}

func TestLookupPairsImages(t *testing.T) {
	l := fixture(t)
	writeLabel(t, l, "0_jpg.rf.aa", "0 0.5 0.5 0.1 0.1\n")
	writeImage(t, l, "0_jpg.rf.aa")
	writeLabel(t, l, "0_jpg.rf.bb", "0 0.5 0.5 0.1 0.1\n") // no image
	writeLabel(t, l, "1_jpg.rf.cc", "1 0.5 0.5 0.1 0.1\n")
	writeImage(t, l, "1_jpg.rf.cc")

	res, err := NewService(l).Lookup(context.Background(), 0)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Count != 1 || len(res.Samples) != 1 {
		t.Fatalf("expected one sample, got %+v", res)
	}
	s := res.Samples[0]
	if s.ID != "0_jpg.rf.aa" || s.ClassID != 0 || s.ImageURL != "/dataset/valid/images/0_jpg.rf.aa.jpg" {
		t.Fatalf("unexpected sample: %+v", s)
	}
}

func TestLookupCap(t *testing.T) {
	l := fixture(t)
	for i := 0; i < 25; i++ {
		base := fmt.Sprintf("img%02d", i)
		writeLabel(t, l, base, "5 0.5 0.5 0.1 0.1\n")
		writeImage(t, l, base)
	}
	res, err := NewService(l).Lookup(context.Background(), 5)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Count != DefaultMaxSamples || len(res.Samples) != DefaultMaxSamples {
		t.Fatalf("expected %d samples, got count=%d len=%d", DefaultMaxSamples, res.Count, len(res.Samples))
	}
}

func TestLookupCapCannotBeRaised(t *testing.T) {
	l := fixture(t)
	l.MaxSamples = 50
	for i := 0; i < 25; i++ {
		base := fmt.Sprintf("img%02d", i)
		writeLabel(t, l, base, "5 0.5 0.5 0.1 0.1\n")
		writeImage(t, l, base)
	}
	res, err := NewService(l).Lookup(context.Background(), 5)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Count != DefaultMaxSamples {
		t.Fatalf("expected at most %d samples, got %d", DefaultMaxSamples, res.Count)
	}

	l.MaxSamples = 3
	if res, _ := NewService(l).Lookup(context.Background(), 5); res.Count != 3 {
		t.Fatalf("a lower cap should apply, got %d", res.Count)
	}
}

func TestLookupEscapesImageURL(t *testing.T) {
	l := fixture(t)
	writeLabel(t, l, "a b#1?%", "2 0.5 0.5 0.1 0.1\n")
	writeImage(t, l, "a b#1?%")
	res, err := NewService(l).Lookup(context.Background(), 2)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected one sample, got %+v", res)
	}
	s := res.Samples[0]
	if s.ID != "a b#1?%" || s.ImageURL != "/dataset/valid/images/a%20b%231%3F%25.jpg" {
		t.Fatalf("unexpected sample: %+v", s)
	}
}

func TestLookupNoMatchesEncodesEmptySlice(t *testing.T) {
	l := fixture(t)
	writeLabel(t, l, "a", "1 0.5 0.5 0.1 0.1\n")
	res, err := NewService(l).Lookup(context.Background(), 9)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if res.Samples == nil || res.Count != 0 {
		t.Fatalf("expected empty non-nil samples, got %+v", res)
	}
}

func TestLookupDatasetUnavailable(t *testing.T) {
	l := fixture(t)
	if err := os.RemoveAll(filepath.Join(l.Root, l.Split, "images")); err != nil {
		t.Fatal(err)
	}
	_, err := NewService(l).Lookup(context.Background(), 0)
	if !errors.Is(err, ErrDatasetUnavailable) {
		t.Fatalf("expected ErrDatasetUnavailable, got %v", err)
	}
}

func TestLookupReadFailure(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	l := fixture(t)
	writeLabel(t, l, "a", "0 0.5 0.5 0.1 0.1\n")
	p := filepath.Join(l.Root, l.Split, "labels", "a.txt")
	if err := os.Chmod(p, 0o000); err != nil {
		t.Fatal(err)
	}
	_, err := NewService(l).Lookup(context.Background(), 0)
	if !errors.Is(err, ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
}

func TestCachedServiceInvalidatesOnDirChange(t *testing.T) {
	l := fixture(t)
	writeLabel(t, l, "a", "0 0.5 0.5 0.1 0.1\n")
	writeImage(t, l, "a")

	c, err := NewCachedService(NewService(l), 8)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	res, err := c.Lookup(context.Background(), 0)
	if err != nil || res.Count != 1 {
		t.Fatalf("first lookup: %+v %v", res, err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached result, got %d", c.Len())
	}

	writeLabel(t, l, "b", "0 0.5 0.5 0.1 0.1\n")
	writeImage(t, l, "b")
	later := time.Now().Add(time.Minute)
	for _, d := range []string{"labels", "images"} {
		if err := os.Chtimes(filepath.Join(l.Root, l.Split, d), later, later); err != nil {
			t.Fatal(err)
		}
	}

	res, err = c.Lookup(context.Background(), 0)
	if err != nil || res.Count != 2 {
		t.Fatalf("expected fresh scan with 2 samples, got %+v %v", res, err)
	}
}
