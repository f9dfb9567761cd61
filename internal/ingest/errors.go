package ingest

import "errors"

var (
	// ErrMissingFilePart is returned when a send-file request has no
	// multipart file part.
	ErrMissingFilePart = errors.New("ingest: missing file part")

	// ErrTextTooLarge is returned when a send-text body exceeds the
	// 64 KiB content cap.
	ErrTextTooLarge = errors.New("ingest: text content exceeds size cap")
)
