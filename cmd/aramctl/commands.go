package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/client"
	"github.com/backkem/aram/pkg/config"
	"github.com/backkem/aram/pkg/discovery"
	"github.com/backkem/aram/pkg/tlv"
	"github.com/backkem/aram/pkg/transport"
)

func execute(ctx context.Context, opts options, args []string, out io.Writer) error {
	level, err := config.ParseLogLevel(opts.logLevel)
	if err != nil {
		return err
	}
	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = level

	name, params := args[0], args[1:]
	if name == "browse" {
		if len(params) != 0 {
			return errUsage
		}
		return browse(ctx, opts, factory, out)
	}

	values, err := parseHexArgs(params)
	if err != nil {
		return err
	}
	op, err := lookupCommand(name, values)
	if err != nil {
		return err
	}

	addr := opts.addr
	if opts.discover {
		svc, err := discoverFirst(ctx, opts, factory)
		if err != nil {
			return err
		}
		addr = svc.Address()
	}

	tc, err := transport.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer tc.Close()

	c := client.New(client.Config{Transmitter: tc, LoggerFactory: factory})
	if err := c.Select(ctx); err != nil {
		return err
	}
	return op(ctx, c, out)
}

type operation func(ctx context.Context, c *client.Client, out io.Writer) error

func lookupCommand(name string, v [][]byte) (operation, error) {
	switch {
	case name == "select" && len(v) == 0:
		return func(context.Context, *client.Client, io.Writer) error { return nil }, nil

	case name == "list" && len(v) == 0:
		return func(ctx context.Context, c *client.Client, out io.Writer) error {
			rules, err := c.GetAll(ctx)
			if err != nil {
				return err
			}
			for _, r := range rules {
				fmt.Fprintln(out, r)
			}
			return nil
		}, nil

	case name == "get" && len(v) == 2:
		return func(ctx context.Context, c *client.Client, out io.Writer) error {
			r, err := c.GetSpecific(ctx, v[0], v[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, r)
			return nil
		}, nil

	case name == "tag" && len(v) == 0:
		return func(ctx context.Context, c *client.Client, out io.Writer) error {
			tag, err := c.RefreshTag(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%X\n", tag[:])
			return nil
		}, nil

	case name == "store" && len(v) == 3:
		return func(ctx context.Context, c *client.Client, _ io.Writer) error {
			return c.Store(ctx, tlv.RefArDo{AID: v[0], Hash: v[1], Rule: v[2]})
		}, nil

	case name == "delete" && len(v) <= 3:
		return func(ctx context.Context, c *client.Client, _ io.Writer) error {
			switch len(v) {
			case 0:
				return c.DeleteAll(ctx)
			case 1:
				return c.DeleteByAID(ctx, v[0])
			case 2:
				return c.DeleteByAIDHash(ctx, v[0], v[1])
			default:
				return c.DeleteRule(ctx, tlv.RefArDo{AID: v[0], Hash: v[1], Rule: v[2]})
			}
		}, nil

	case name == "update-tag" && len(v) == 0:
		return func(ctx context.Context, c *client.Client, _ io.Writer) error {
			return c.UpdateRefreshTag(ctx)
		}, nil
	}
	return nil, errUsage
}

// parseHexArgs decodes hex arguments. Spaces and colons are ignored and
// "-" is the empty value.
func parseHexArgs(args []string) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, a := range args {
		if a == "-" {
			out[i] = []byte{}
			continue
		}
		clean := strings.NewReplacer(" ", "", ":", "").Replace(a)
		b, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = b
	}
	return out, nil
}

func newResolver(opts options, factory logging.LoggerFactory) (*discovery.Resolver, error) {
	return discovery.NewResolver(discovery.ResolverConfig{
		MDNSResolver:  opts.resolver,
		LoggerFactory: factory,
	})
}

func browse(ctx context.Context, opts options, factory logging.LoggerFactory, out io.Writer) error {
	r, err := newResolver(opts, factory)
	if err != nil {
		return err
	}
	results, err := r.Browse(ctx)
	if err != nil {
		return err
	}
	for svc := range results {
		fmt.Fprintf(out, "%s\t%s\taid=%X chunk=%d\n", svc.Instance, svc.Address(), svc.TXT.AID, svc.TXT.ChunkSize)
	}
	return nil
}

func discoverFirst(ctx context.Context, opts options, factory logging.LoggerFactory) (*discovery.ResolvedService, error) {
	r, err := newResolver(opts, factory)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := r.Browse(ctx)
	if err != nil {
		return nil, err
	}
	svc, ok := <-results
	if !ok {
		return nil, discovery.ErrServiceNotFound
	}
	return &svc, nil
}
