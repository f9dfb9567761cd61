package ingest

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/h2non/filetype"
)

// sniffExtension infers a file extension from its leading bytes,
// restricted to the image/video/audio families plus pdf and zip (the
// only archive format accepted); anything else is left extensionless
// rather than guessed at.
func sniffExtension(chunk []byte) string {
	kind, err := filetype.Match(chunk)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	switch kind.MIME.Type {
	case "image", "video", "audio":
		return "." + kind.Extension
	}
	switch kind.Extension {
	case "pdf", "zip":
		return "." + kind.Extension
	}
	return ""
}

// normalizeFilename percent-decodes raw once, strips control
// characters, replaces the fixed set {':', '/', '\\'} with '_', and
// strips leading dots and surrounding whitespace so the result can
// never resolve outside the download directory or be hidden. If the
// result has no extension, firstChunk (which may be nil) is sniffed
// against a small magic-byte table and the inferred extension, if any,
// is appended.
func normalizeFilename(raw string, firstChunk []byte) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}

	var b strings.Builder
	for _, r := range decoded {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case ':', '/', '\\':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeftFunc(b.String(), func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unnamed"
	}

	if filepath.Ext(name) == "" {
		if ext := sniffExtension(firstChunk); ext != "" {
			name += ext
		}
	}
	return name
}

// candidatePath returns the nth candidate final path for name under
// dir: name itself for n == 0, "name (n).ext" for n >= 1.
func candidatePath(dir, name string, n int) string {
	if n == 0 {
		return filepath.Join(dir, name)
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
}

// finalizeFile atomically moves tempPath to a free name derived from
// name under dir, retrying on collision rather than trusting a
// Stat-then-Rename pair, which two concurrent transfers of the same
// filename could both pass before either renames — os.Rename would
// then silently overwrite the first file's data. os.Link fails with
// EEXIST if the target already exists, so each candidate is claimed by
// linking tempPath onto it; the first candidate that doesn't already
// exist is the real destination. tempPath is removed once a link
// succeeds, completing the move.
func finalizeFile(dir, tempPath, name string) (string, error) {
	for n := 0; ; n++ {
		candidate := candidatePath(dir, name, n)
		err := os.Link(tempPath, candidate)
		if err == nil {
			if rmErr := os.Remove(tempPath); rmErr != nil {
				return "", rmErr
			}
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
}
