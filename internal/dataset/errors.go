package dataset

import "errors"

var (
	// ErrInvalidArgument is a client mistake: the class id is missing, non-numeric or negative.
	ErrInvalidArgument = errors.New("invalid class id")
	// ErrDatasetUnavailable means the label or image directory is missing. Operator action required.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	// ErrDirectoryNotFound is returned by the scanner before it reads any file.
	ErrDirectoryNotFound = errors.New("label directory not found")
	// ErrReadFailure means a listed label file could not be read. Fatal for the request.
	ErrReadFailure = errors.New("label read failure")
)
