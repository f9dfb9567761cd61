package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/localshare/localshare/internal/sender"
	"github.com/localshare/localshare/internal/transfer"
)

func runSend(args []string) {
	if err := doSend(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doSend(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	addr := fs.String("addr", "", "peer address (required)")
	port := fs.Int("port", 0, "peer port (required)")
	file := fs.String("file", "", "path of a file to send")
	text := fs.String("text", "", "a text message to send")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *addr == "" || *port == 0 {
		return fmt.Errorf("--addr and --port are required")
	}
	if (*file == "") == (*text == "") {
		return fmt.Errorf("specify exactly one of --file or --text")
	}

	_, id, err := loadIdentity(*configFlag)
	if err != nil {
		return err
	}

	coord := transfer.NewCoordinator()
	s := sender.New(coord, id.Alias)
	peer := transfer.PeerRef{Address: *addr, Port: *port}

	if *text != "" {
		if err := s.SendText(context.Background(), peer, *text); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
		fmt.Fprintln(stdout, "message delivered")
		return nil
	}

	if err := s.SendFileFromPath(context.Background(), peer, *file); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	fmt.Fprintln(stdout, "file delivered")
	return nil
}
