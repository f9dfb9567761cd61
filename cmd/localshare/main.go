package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// Set via -ldflags at build time:
//
//	go build -ldflags "-X main.version=0.1.0 -X main.commit=$(git rev-parse --short HEAD)" -o localshare ./cmd/localshare
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "send":
		runSend(os.Args[2:])
	case "peers":
		runPeers(os.Args[2:])
	case "whoami":
		runWhoami(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printVersion() {
	fmt.Printf("localshare %s (%s)\n", version, commit)
	fmt.Printf("Go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println("Usage: localshare <command> [options]")
	fmt.Println()
	fmt.Println("  serve [--config path]                         Run the node: discovery + ingest server")
	fmt.Println("  send --addr <ip> --port <n> --file <path>     Send a file to a peer")
	fmt.Println("  send --addr <ip> --port <n> --text <content>  Send a text message to a peer")
	fmt.Println("  peers [--config path] [--wait 5s]             Browse the LAN for peers")
	fmt.Println("  whoami [--config path]                        Show this node's alias and fingerprint")
	fmt.Println("  config show     [--config path]               Show resolved config")
	fmt.Println("  config validate [--config path]               Validate config")
	fmt.Println("  version                                       Show version information")
	fmt.Println()
	fmt.Println("Without --config, localshare searches: ./localshare.yaml, ~/.config/localshare/config.yaml, /etc/localshare/config.yaml")
	fmt.Println()
	fmt.Println("Get started:  localshare serve")
}
