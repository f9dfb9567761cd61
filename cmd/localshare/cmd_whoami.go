package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/localshare/localshare/internal/identity"
)

func runWhoami(args []string) {
	if err := doWhoami(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doWhoami(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, id, err := loadIdentity(*configFlag)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "alias:       %s\n", id.Alias)
	fmt.Fprintf(stdout, "port:        %d\n", id.Port)
	fmt.Fprintf(stdout, "fingerprint: %s\n", identity.ShortFingerprint(id.Fingerprint))
	fmt.Fprintf(stdout, "downloads:   %s\n", id.DownloadDir)
	return nil
}
