package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDoConfigShow_CreatesThenPrintsDefault(t *testing.T) {
	dir := t.TempDir()
	configPath := dir + "/localshare.yaml"

	var buf bytes.Buffer
	if err := doConfigShow([]string{"--config", configPath}, &buf); err != nil {
		t.Fatalf("doConfigShow: %v", err)
	}
	if !strings.Contains(buf.String(), "port:") {
		t.Errorf("output missing port field: %q", buf.String())
	}
}

func TestDoConfigValidate_OK(t *testing.T) {
	dir := t.TempDir()
	configPath := dir + "/localshare.yaml"

	var buf bytes.Buffer
	if err := doConfigValidate([]string{"--config", configPath}, &buf); err != nil {
		t.Fatalf("doConfigValidate: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "OK:") {
		t.Errorf("output = %q, want OK: prefix", buf.String())
	}
}

func TestRunConfig_NoSubcommandExits(t *testing.T) {
	code, exited := captureExit(func() {
		runConfig(nil)
	})
	if !exited || code != 1 {
		t.Errorf("exited=%v code=%d, want exited=true code=1", exited, code)
	}
}

func TestRunConfig_UnknownSubcommandExits(t *testing.T) {
	code, exited := captureExit(func() {
		runConfig([]string{"bogus"})
	})
	if !exited || code != 1 {
		t.Errorf("exited=%v code=%d, want exited=true code=1", exited, code)
	}
}
