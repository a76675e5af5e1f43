// aramd runs an ARA-M rule store as a network daemon: a simulated secure
// element that access control enforcers and administration tools reach
// over TCP.
//
// Usage:
//
//	aramd [flags]
//
// Flags override values from the configuration file:
//
//	-c, --config       YAML configuration file
//	    --listen       TCP listen address (default: 127.0.0.1:7816)
//	    --storage      rule image file (default: in-memory)
//	    --chunk-size   GET DATA response chunk size, 8-256 (default: 255)
//	    --max-entries  maximum number of rules, 0 = unbounded
//	    --log-level    disabled, error, warn, info, debug or trace
//	    --advertise    advertise the daemon with DNS-SD (_aram._tcp)
//	    --instance     DNS-SD instance name (default: random)
//
// Example:
//
//	aramd --storage /var/lib/aram/rules.img --advertise
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "aramd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil || cfg == nil {
		return err
	}

	factory, err := cfg.LoggerFactory()
	if err != nil {
		return err
	}
	log := factory.NewLogger("aramd")

	d, err := newDaemon(cfg, daemonOptions{LoggerFactory: factory})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.start(); err != nil {
		return err
	}
	log.Infof("serving ARA-M on %s", d.addr())

	<-ctx.Done()
	log.Info("shutting down")
	return d.stop()
}

// parseConfig loads the configuration file named by --config, applies
// the flags that were set and validates the result. It returns a nil
// config when only help was requested.
func parseConfig(args []string) (*config.Config, error) {
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("aramd", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", "", "YAML configuration file")
	listen := flagSet.String("listen", defaults.Listen, "TCP listen address")
	storagePath := flagSet.String("storage", "", "rule image file (empty = in-memory)")
	chunkSize := flagSet.Int("chunk-size", aram.DefaultChunkSize, "GET DATA response chunk size (8-256)")
	maxEntries := flagSet.Int("max-entries", 0, "maximum number of rules (0 = unbounded)")
	logLevel := flagSet.String("log-level", defaults.LogLevel, "log level: disabled, error, warn, info, debug, trace")
	advertise := flagSet.Bool("advertise", false, "advertise the daemon with DNS-SD")
	instance := flagSet.String("instance", "", "DNS-SD instance name (default: random)")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, nil
		}
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagSet.Changed("listen") {
		cfg.Listen = *listen
	}
	if flagSet.Changed("storage") {
		cfg.Storage = *storagePath
	}
	if flagSet.Changed("chunk-size") {
		cfg.ChunkSize = *chunkSize
	}
	if flagSet.Changed("max-entries") {
		cfg.MaxEntries = *maxEntries
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flagSet.Changed("advertise") {
		cfg.Advertise = *advertise
	}
	if flagSet.Changed("instance") {
		cfg.Instance = *instance
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
