package constants

import (
	"sort"
	"strings"
)

// MaxUploadMBDefault caps a single uploaded document.
const MaxUploadMBDefault = 10

// SupportedMimeTypes holds the declared document types the extractor accepts.
// Order is preserved for the supported-types endpoint.
var SupportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/rtf",
	"text/html",
}

var allowedMimeTypes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SupportedMimeTypes))
	for _, mt := range SupportedMimeTypes {
		m[mt] = struct{}{}
	}
	return m
}()

// NormalizeMime lowercases a media type and strips parameters ("text/plain; charset=utf-8" -> "text/plain").
func NormalizeMime(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsSupportedMime reports whether mt (after normalization) is on the allow-list.
func IsSupportedMime(mt string) bool {
	_, ok := allowedMimeTypes[NormalizeMime(mt)]
	return ok
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// extensionMimeTypes is the media type assumed for a file extension when
// content sniffing gives nothing on the allow-list.
var extensionMimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"rtf":  "application/rtf",
	"html": "text/html",
	"htm":  "text/html",
}

// MimeForExt returns the allow-listed media type for ext ("PDF", ".pdf" and "pdf" are equivalent).
func MimeForExt(ext string) (string, bool) {
	mt, ok := extensionMimeTypes[NormalizeExt(ext)]
	return mt, ok
}

// SupportedExtensions lists the extensions picked up by directory scans, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensionMimeTypes))
	for ext := range extensionMimeTypes {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
