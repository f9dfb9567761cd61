package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/localshare/localshare/internal/discovery"
	"github.com/localshare/localshare/internal/termcolor"
)

const defaultPeersWait = 5 * time.Second

func runPeers(args []string) {
	if err := doPeers(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doPeers(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("peers", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	wait := fs.Duration("wait", defaultPeersWait, "how long to listen before reporting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, id, err := loadIdentity(*configFlag)
	if err != nil {
		return err
	}

	agent := discovery.New(id.Alias, id.Fingerprint, id.Port)
	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	if err := agent.Start(ctx); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	<-ctx.Done()
	agent.Stop()

	peers := agent.Peers()
	if len(peers) == 0 {
		termcolor.Yellow(stdout, "No peers found.")
		return nil
	}
	for _, p := range peers {
		termcolor.Green(stdout, "%-20s %s:%d  (%s)", p.Alias, p.Address, p.Port, p.Fingerprint)
	}
	return nil
}
