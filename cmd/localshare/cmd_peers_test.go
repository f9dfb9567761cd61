package main

import (
	"bytes"
	"testing"
)

func TestDoPeers_UnknownFlagReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := doPeers([]string{"--bogus"}, &buf); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
