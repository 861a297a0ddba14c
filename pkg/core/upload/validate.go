// Package upload moves interview media to a pre-signed destination in
// fixed-size sequential chunks.
package upload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// Validation defaults.
const (
	DefaultMaxFileSize   = 100 << 20 // 100MB
	DefaultMaxNameLength = 255
)

// DefaultAllowedMIMETypes covers the media an interview session produces
// or attaches.
var DefaultAllowedMIMETypes = []string{
	"audio/wav",
	"audio/mpeg",
	"audio/webm",
	"audio/mp4",
	"video/mp4",
	"video/webm",
	"image/jpeg",
	"image/png",
	"application/pdf",
}

// FileMeta describes a file selected for upload.
type FileMeta struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
}

// Validator rejects files before any network activity begins.
type Validator struct {
	maxFileSize   int64
	maxNameLength int
	allowed       map[string]struct{}
}

// NewValidator creates a validator. Zero limits and an empty allow-list
// fall back to the defaults.
func NewValidator(maxFileSize int64, maxNameLength int, allowedMIME []string) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if maxNameLength <= 0 {
		maxNameLength = DefaultMaxNameLength
	}
	if len(allowedMIME) == 0 {
		allowedMIME = DefaultAllowedMIMETypes
	}
	allowed := make(map[string]struct{}, len(allowedMIME))
	for _, m := range allowedMIME {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &Validator{
		maxFileSize:   maxFileSize,
		maxNameLength: maxNameLength,
		allowed:       allowed,
	}
}

// Validate checks meta against the allow-list and size limits.
func (v *Validator) Validate(meta FileMeta) error {
	if strings.TrimSpace(meta.Name) == "" {
		return core.NewValidationError("file name must not be empty", "name")
	}
	if n := utf8.RuneCountInString(meta.Name); n > v.maxNameLength {
		return core.NewValidationError(
			fmt.Sprintf("file name is %d characters, limit is %d", n, v.maxNameLength), "name")
	}
	if meta.Size <= 0 {
		return core.NewValidationError("file is empty", "size")
	}
	if meta.Size > v.maxFileSize {
		return core.NewValidationError(
			fmt.Sprintf("file is %d bytes, limit is %d", meta.Size, v.maxFileSize), "size")
	}
	mime := strings.ToLower(strings.TrimSpace(meta.MIMEType))
	if _, ok := v.allowed[mime]; !ok {
		return core.NewValidationError(
			fmt.Sprintf("mime type %q is not allowed", meta.MIMEType), "mimeType")
	}
	return nil
}
