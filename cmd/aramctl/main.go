// aramctl sends rule store commands to an aramd daemon.
//
// Usage:
//
//	aramctl [flags] <command> [hex arguments]
//
// Commands:
//
//	select                     select the ARA-M
//	list                       print every rule (GET DATA [All] / [Next])
//	get <aid> <hash>           print the rule for one reference
//	tag                        print the refresh tag
//	store <aid> <hash> <rule>  store a rule
//	delete                     delete every rule
//	delete <aid>               delete the rules of an AID
//	delete <aid> <hash>        delete the rules of a reference
//	delete <aid> <hash> <rule> delete matching rules
//	update-tag                 replace the refresh tag
//	browse                     list daemons advertised with DNS-SD
//
// Hex arguments may contain spaces or colons; "-" is the empty value.
//
// Flags:
//
//	-a, --addr      daemon address (default: 127.0.0.1:7816)
//	-d, --discover  connect to the first daemon found with DNS-SD
//	    --timeout   timeout of the whole operation (default: 10s)
//	    --log-level log level for the client side (default: warn)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/backkem/aram/pkg/config"
	"github.com/backkem/aram/pkg/discovery"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "aramctl: %v\n", err)
		os.Exit(1)
	}
}

// errUsage is returned for a missing or malformed command line.
var errUsage = errors.New("usage: aramctl [flags] <select|list|get|tag|store|delete|update-tag|browse> [hex args]")

// options are the parsed global flags.
type options struct {
	addr     string
	discover bool
	timeout  time.Duration
	logLevel string

	// resolver overrides the DNS-SD resolver.
	resolver discovery.MDNSResolver
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts := options{}
	flagSet := pflag.NewFlagSet("aramctl", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.addr, "addr", "a", config.DefaultListen, "daemon address")
	flagSet.BoolVarP(&opts.discover, "discover", "d", false, "connect to the first daemon found with DNS-SD")
	flagSet.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout of the whole operation")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: disabled, error, warn, info, debug, trace")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	return execute(ctx, opts, flagSet.Args(), out)
}
