// Package upload admits files into the pipeline. Validate enforces the
// existence, type, and size policy without touching the file; Stage then
// moves the admitted file into the sandbox the pipeline works from.
package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxSize int64 = 10 << 20

var DefaultAllowedExtensions = []string{".txt", ".pdf", ".docx"}

// Reason is why a file was rejected.
type Reason string

const (
	NotFound        Reason = "NotFound"
	UnsupportedType Reason = "UnsupportedType"
	TooLarge        Reason = "TooLarge"
)

type AdmissionError struct {
	Reason Reason
	Path   string
	Detail string
}

func (e *AdmissionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
	return fmt.Sprintf("%s: %s: %s", e.Reason, e.Path, e.Detail)
}

// IsReason reports whether err is an AdmissionError with reason r.
func IsReason(err error, r Reason) bool {
	var ae *AdmissionError
	return errors.As(err, &ae) && ae.Reason == r
}

// Admission describes an accepted file.
type Admission struct {
	Path      string
	Filename  string
	Size      int64
	Extension string
	MIME      string
}

type Validator struct {
	allowed map[string]struct{}
	maxSize int64
}

// NewValidator builds a validator. Extensions are matched case-insensitively
// and may be given with or without the leading dot. Empty arguments select
// the defaults.
func NewValidator(allowed []string, maxSize int64) *Validator {
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	v := &Validator{allowed: make(map[string]struct{}, len(allowed)), maxSize: maxSize}
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		v.allowed[ext] = struct{}{}
	}
	return v
}

func (v *Validator) MaxSize() int64 { return v.maxSize }

// Validate checks existence, extension, and size, in that order, and stops
// at the first failure.
func (v *Validator) Validate(path string) (*Admission, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &AdmissionError{Reason: NotFound, Path: path}
		}
		return nil, &AdmissionError{Reason: NotFound, Path: path, Detail: err.Error()}
	}
	if !fi.Mode().IsRegular() {
		return nil, &AdmissionError{Reason: NotFound, Path: path, Detail: "not a regular file"}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := v.allowed[ext]; !ok {
		return nil, &AdmissionError{Reason: UnsupportedType, Path: path, Detail: fmt.Sprintf("extension %q", ext)}
	}

	if fi.Size() > v.maxSize {
		return nil, &AdmissionError{
			Reason: TooLarge,
			Path:   path,
			Detail: fmt.Sprintf("%d bytes exceeds limit of %d", fi.Size(), v.maxSize),
		}
	}

	mime := "application/octet-stream"
	if m, err := mimetype.DetectFile(path); err == nil {
		mime = m.String()
	}

	return &Admission{
		Path:      path,
		Filename:  filepath.Base(path),
		Size:      fi.Size(),
		Extension: ext,
		MIME:      mime,
	}, nil
}
