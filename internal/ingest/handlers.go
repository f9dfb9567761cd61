package ingest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/localshare/localshare/internal/transfer"
)

// sniffWindow is how many leading bytes of a file's first chunk are
// held back for magic-byte sniffing before any of it reaches disk.
const sniffWindow = 512

// maxTextBytes is the content cap for send-text, per spec section 4.3.
const maxTextBytes = 64 * 1024

// maxTextRequestBytes allows headroom for the JSON envelope around a
// content field at the cap.
const maxTextRequestBytes = maxTextBytes + 4096

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, InfoResponse{
		Alias:       s.alias.Load().(string),
		Fingerprint: s.fingerprint,
		Version:     protocolVersion,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.coordinator.Cancel(id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, cancelResponse{Cancelled: true})
	case errors.Is(err, transfer.ErrUnknownTransfer), errors.Is(err, transfer.ErrAlreadyTerminal):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSendText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTextRequestBytes)

	var req sendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, ErrTextTooLarge.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if len(req.Content) > maxTextBytes {
		respondError(w, http.StatusRequestEntityTooLarge, ErrTextTooLarge.Error())
		return
	}

	s.coordinator.PublishText(req.SenderAlias, req.Content)
	respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleSendFile(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	part, err := mr.NextPart()
	if err != nil || part.FileName() == "" {
		respondError(w, http.StatusBadRequest, ErrMissingFilePart.Error())
		return
	}
	defer part.Close()

	var declaredSize int64
	if cl := r.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			declaredSize = n
		}
	}

	firstChunk := make([]byte, sniffWindow)
	n, readErr := io.ReadFull(part, firstChunk)
	firstChunk = firstChunk[:n]
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		respondError(w, http.StatusInternalServerError, "failed to read file body")
		return
	}

	finalName := normalizeFilename(part.FileName(), firstChunk)

	meta := transfer.Meta{
		Peer:         transfer.PeerRef{Address: r.RemoteAddr, Alias: r.Header.Get("X-LocalShare-Sender-Alias")},
		Kind:         transfer.KindFile,
		FileName:     finalName,
		DeclaredSize: declaredSize,
		ContentType:  part.Header.Get("Content-Type"),
	}

	id, tctx := s.coordinator.RegisterInbound(r.Context(), meta)

	state, err := s.coordinator.AwaitConsent(tctx, id)
	if err != nil && state != transfer.Cancelled {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch state {
	case transfer.Rejected:
		respondError(w, http.StatusForbidden, "receiver rejected the transfer")
		return
	case transfer.TimedOut:
		respondError(w, http.StatusRequestTimeout, "receiver did not respond to the consent request")
		return
	case transfer.Cancelled:
		respondError(w, 499, "transfer cancelled")
		return
	case transfer.Accepted:
		// fall through to streaming
	default:
		respondError(w, http.StatusInternalServerError, "unexpected transfer state")
		return
	}

	tempPath := filepath.Join(s.downloadDir, finalName+".part-"+id)
	tmpFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		s.coordinator.Fail(id, "storage: "+err.Error())
		respondError(w, http.StatusInternalServerError, "failed to create temp file")
		return
	}

	if err := s.coordinator.BeginStreaming(id, tempPath); err != nil {
		tmpFile.Close()
		os.Remove(tempPath)
		respondError(w, 499, "transfer cancelled")
		return
	}

	total := int64(0)
	cleanupAndFail := func(status int, msg, reason string) {
		tmpFile.Close()
		os.Remove(tempPath)
		if tctx.Err() == nil {
			s.coordinator.Fail(id, reason)
		}
		respondError(w, status, msg)
	}

	if len(firstChunk) > 0 {
		if _, err := tmpFile.Write(firstChunk); err != nil {
			cleanupAndFail(http.StatusInternalServerError, "failed to write file", "storage: "+err.Error())
			return
		}
		total += int64(len(firstChunk))
		s.coordinator.NoteProgress(id, total)
	}

	buf := make([]byte, 32*1024)
	for readErr != io.EOF {
		select {
		case <-tctx.Done():
			tmpFile.Close()
			os.Remove(tempPath)
			respondError(w, 499, "transfer cancelled")
			return
		default:
		}

		var n int
		n, readErr = part.Read(buf)
		if n > 0 {
			if _, werr := tmpFile.Write(buf[:n]); werr != nil {
				cleanupAndFail(http.StatusInternalServerError, "failed to write file", "storage: "+werr.Error())
				return
			}
			total += int64(n)
			s.coordinator.NoteProgress(id, total)
		}
		if readErr != nil && readErr != io.EOF {
			cleanupAndFail(http.StatusInternalServerError, "body read error", "network: "+readErr.Error())
			return
		}
	}

	if err := tmpFile.Sync(); err != nil {
		slog.Warn("ingest fsync failed", "id", id, "error", err)
	}
	tmpFile.Close()

	finalPath, err := finalizeFile(s.downloadDir, tempPath, finalName)
	if err != nil {
		cleanupAndFail(http.StatusInternalServerError, "failed to finalize file", "storage: "+err.Error())
		return
	}

	if err := s.coordinator.Complete(id, finalPath); err != nil {
		slog.Warn("ingest complete after terminal state", "id", id, "error", err)
	}
	respondJSON(w, http.StatusOK, struct{}{})
}
