package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/localshare/localshare/internal/config"
	"github.com/localshare/localshare/internal/termcolor"
)

func runConfig(args []string) {
	if len(args) < 1 {
		printConfigUsage()
		osExit(1)
	}

	switch args[0] {
	case "show":
		runConfigShow(args[1:])
	case "validate":
		runConfigValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage()
		osExit(1)
	}
}

func printConfigUsage() {
	fmt.Println("Usage: localshare config <show|validate> [--config path]")
}

func runConfigShow(args []string) {
	if err := doConfigShow(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doConfigShow(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rc, err := loadOrInitConfig(*configFlag)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(rc.cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Fprintf(stdout, "# %s\n", rc.path)
	stdout.Write(out)
	return nil
}

func runConfigValidate(args []string) {
	if err := doConfigValidate(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

func doConfigValidate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config validate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rc, err := loadOrInitConfig(*configFlag)
	if err != nil {
		return err
	}

	if err := config.Validate(rc.cfg); err != nil {
		termcolor.Red(stdout, "FAIL: %s", err)
		return fmt.Errorf("validation failed")
	}

	termcolor.Green(stdout, "OK: %s is valid", rc.path)
	return nil
}
