package validation

import (
	"path/filepath"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
)

// MaxAttachmentBytes is the per-file upload limit.
const MaxAttachmentBytes int64 = 10 << 20

// AttachmentKind selects the allowed extension set.
type AttachmentKind int

const (
	// KindDocument covers proposal attachments.
	KindDocument AttachmentKind = iota
	// KindMedia covers announcement and carousel images and videos.
	KindMedia
	// KindImage covers carousel slides.
	KindImage
)

var allowedExtensions = map[AttachmentKind][]string{
	KindDocument: {"pdf", "docx"},
	KindMedia:    {"jpg", "jpeg", "png", "gif", "webp", "mp4", "mov", "webm"},
	KindImage:    {"jpg", "jpeg", "png", "gif", "webp"},
}

// Extension returns the lower-case extension without the dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// ValidateAttachment checks the extension against kind and size against
// limit (MaxAttachmentBytes when limit <= 0).
func ValidateAttachment(field string, kind AttachmentKind, filename string, size, limit int64) error {
	if limit <= 0 {
		limit = MaxAttachmentBytes
	}
	ext := Extension(filename)
	if !contains(allowedExtensions[kind], ext) {
		return apperrors.NewUnsupportedMediaError(field, ext)
	}
	if size > limit {
		return apperrors.NewPayloadTooLargeError(limit)
	}
	return nil
}

// IsVideo reports whether filename carries a video extension.
func IsVideo(filename string) bool {
	switch Extension(filename) {
	case "mp4", "mov", "webm":
		return true
	}
	return false
}
