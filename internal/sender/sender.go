// Package sender implements the Outbound Sender: a streaming HTTP
// client that delivers files and text messages to a peer's Ingest
// Server, honouring the same consent-gated protocol and reporting
// progress back through the Transfer Coordinator.
package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/localshare/localshare/internal/transfer"
)

// responseHeaderTimeout bounds how long the client waits for response
// headers, which is how long the remote consent gate can hold a
// request open before this node gives up waiting for a decision.
const responseHeaderTimeout = 30 * time.Second

// keepAlivePeriod is the TCP keepalive interval, acting as a
// dead-socket heartbeat during an otherwise unbounded body transfer.
const keepAlivePeriod = 60 * time.Second

// Sender streams files and text to peers over HTTP.
type Sender struct {
	coordinator *transfer.Coordinator
	alias       string
	client      *http.Client
}

// New constructs a Sender. alias is sent as X-LocalShare-Sender-Alias
// on every outbound request.
func New(coordinator *transfer.Coordinator, alias string) *Sender {
	dialer := &net.Dialer{KeepAlive: keepAlivePeriod}
	return &Sender{
		coordinator: coordinator,
		alias:       alias,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: responseHeaderTimeout,
			},
		},
	}
}

// SendFileFromPath opens the file at path, derives its declared name
// from the trailing path segment, and streams it to the peer.
func (s *Sender) SendFileFromPath(ctx context.Context, peer transfer.PeerRef, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sender: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("sender: stat %s: %w", path, err)
	}

	return s.sendFile(ctx, peer, filepath.Base(path), info.Size(), f)
}

// SendFileFromBytes streams a file from an in-memory blob — the path
// used when the caller (a mobile host resolving a content URI) has
// already read the bytes into memory and has no filesystem path to
// hand over.
func (s *Sender) SendFileFromBytes(ctx context.Context, peer transfer.PeerRef, name string, data []byte) error {
	return s.sendFile(ctx, peer, name, int64(len(data)), bytes.NewReader(data))
}

// SendText delivers a single text message with no streaming and no
// consent gate on the remote side.
func (s *Sender) SendText(ctx context.Context, peer transfer.PeerRef, content string) error {
	body, err := jsonTextBody(s.alias, content)
	if err != nil {
		return fmt.Errorf("sender: encode text body: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/api/localshare/send-text", peer.Address, peer.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sender: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sender: send text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sender: peer rejected text message with status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sender) sendFile(ctx context.Context, peer transfer.PeerRef, name string, size int64, src io.Reader) error {
	meta := transfer.Meta{Peer: peer, Kind: transfer.KindFile, FileName: name, DeclaredSize: size}
	id, tctx := s.coordinator.RegisterOutbound(ctx, meta)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	go s.writeMultipartBody(tctx, id, mw, pw, name, src)

	url := fmt.Sprintf("http://%s:%d/api/localshare/send-file", peer.Address, peer.Port)
	req, err := http.NewRequestWithContext(tctx, http.MethodPost, url, pr)
	if err != nil {
		return fmt.Errorf("sender: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-LocalShare-Sender-Alias", s.alias)

	resp, err := s.client.Do(req)
	if err != nil {
		if tctx.Err() != nil {
			s.coordinator.FailOutbound(id, transfer.Cancelled, "cancelled")
			return ErrCancelled
		}
		s.coordinator.FailOutbound(id, transfer.Failed, "network: "+err.Error())
		return fmt.Errorf("sender: send file: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return s.coordinator.Complete(id, "")
	case http.StatusForbidden:
		s.coordinator.FailOutbound(id, transfer.Rejected, "receiver rejected the transfer")
		return ErrRejected
	case http.StatusRequestTimeout:
		s.coordinator.FailOutbound(id, transfer.TimedOut, "receiver did not respond to the consent request")
		return ErrConsentTimeout
	case 499:
		s.coordinator.FailOutbound(id, transfer.Cancelled, "transfer cancelled")
		return ErrCancelled
	default:
		s.coordinator.FailOutbound(id, transfer.Failed, fmt.Sprintf("peer returned status %d", resp.StatusCode))
		return fmt.Errorf("sender: peer returned status %d", resp.StatusCode)
	}
}

// writeMultipartBody feeds src into the multipart writer on the pipe's
// write side, reporting progress as it goes. It owns both pw and mw
// and always closes pw, with an error if one occurred, so the reading
// side (the HTTP request) observes it as a body-read error.
func (s *Sender) writeMultipartBody(ctx context.Context, id string, mw *multipart.Writer, pw *io.PipeWriter, name string, src io.Reader) {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		pw.CloseWithError(err)
		return
	}

	cr := &countingReader{ctx: ctx, r: src, onRead: func(total int64) {
		s.coordinator.NoteProgress(id, total)
	}}

	if _, err := io.Copy(part, cr); err != nil {
		pw.CloseWithError(err)
		return
	}
	if err := mw.Close(); err != nil {
		pw.CloseWithError(err)
		return
	}
	pw.Close()
}

// countingReader wraps a source reader, reporting cumulative bytes
// read and aborting with ctx's error once ctx is cancelled — the
// mechanism by which Coordinator.Cancel severs an in-flight outbound
// request tied to a context rooted at RegisterOutbound.
type countingReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	onRead func(total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
	}

	n, err := c.r.Read(p)
	if n > 0 {
		c.total += int64(n)
		c.onRead(c.total)
	}
	return n, err
}
