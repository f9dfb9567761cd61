package ingest

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/localshare/localshare/internal/transfer"
)

func TestServer_StartServesInfoEndpoint(t *testing.T) {
	dir := t.TempDir()
	s := NewServer(transfer.NewCoordinator(), dir, "tester", "deadbeef")

	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	resp, err := http.Get("http://" + s.listener.Addr().String() + "/api/localshare/info")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Alias != "tester" {
		t.Errorf("Alias = %q", info.Alias)
	}
}

func TestServer_SetAliasUpdatesInfoEndpoint(t *testing.T) {
	dir := t.TempDir()
	s := NewServer(transfer.NewCoordinator(), dir, "old-alias", "deadbeef")
	s.SetAlias("new-alias")

	got := s.alias.Load().(string)
	if got != "new-alias" {
		t.Errorf("alias = %q, want new-alias", got)
	}
}
