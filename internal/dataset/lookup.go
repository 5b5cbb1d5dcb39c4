package dataset

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
)

// DefaultMaxSamples caps the number of samples returned for one class. Layout.MaxSamples
// may lower it, never raise it.
const DefaultMaxSamples = 20

const imageExt = ".jpg"

type Sample struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	ClassID  int    `json:"classId"`
}

// Result is the dictionary answer for one class. Count always equals len(Samples).
type Result struct {
	ClassID int      `json:"classId"`
	Count   int      `json:"count"`
	Samples []Sample `json:"samples"`
}

// Layout describes where a dataset split lives on disk and under which URL its images are served.
type Layout struct {
	Root       string // e.g. ./dataset
	Split      string // e.g. valid
	PublicPath string // URL prefix the root is served under, e.g. /dataset
	MaxSamples int
}

// Service pairs label matches with their images. It keeps no state between calls.
type Service struct {
	labelsDir  string
	imagesDir  string
	urlPrefix  string
	maxSamples int
}

func NewService(l Layout) *Service {
	limit := l.MaxSamples
	if limit <= 0 || limit > DefaultMaxSamples {
		limit = DefaultMaxSamples
	}
	public := l.PublicPath
	if public == "" {
		public = "/dataset"
	}
	return &Service{
		labelsDir:  filepath.Join(l.Root, l.Split, "labels"),
		imagesDir:  filepath.Join(l.Root, l.Split, "images"),
		urlPrefix:  path.Join(public, l.Split, "images"),
		maxSamples: limit,
	}
}

func (s *Service) LabelsDir() string { return s.labelsDir }
func (s *Service) ImagesDir() string { return s.imagesDir }

// ParseClassID validates the raw classId query value.
func ParseClassID(raw string, present bool) (int, error) {
	if !present {
		return 0, fmt.Errorf("%w: classId query parameter is required", ErrInvalidArgument)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: classId must be a non-negative integer", ErrInvalidArgument)
	}
	return n, nil
}

// Lookup returns up to maxSamples samples whose label file contains classID and whose image exists.
func (s *Service) Lookup(ctx context.Context, classID int) (Result, error) {
	if classID < 0 {
		return Result{}, fmt.Errorf("%w: classId must be a non-negative integer", ErrInvalidArgument)
	}
	if !isDir(s.labelsDir) || !isDir(s.imagesDir) {
		return Result{}, fmt.Errorf("%w: %s or %s missing", ErrDatasetUnavailable, s.labelsDir, s.imagesDir)
	}
	seq, err := NewScanner(s.labelsDir).Scan(classID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}

	samples := make([]Sample, 0)
	for base, err := range seq {
		if err != nil {
			return Result{}, err
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		name := base + imageExt
		// label and image sets drift; an unpaired label is not an error
		if !isFile(filepath.Join(s.imagesDir, name)) {
			continue
		}
		samples = append(samples, Sample{
			ID:       base,
			ImageURL: s.urlPrefix + "/" + url.PathEscape(name),
			ClassID:  classID,
		})
		if len(samples) >= s.maxSamples {
			break
		}
	}
	return Result{ClassID: classID, Count: len(samples), Samples: samples}, nil
}
