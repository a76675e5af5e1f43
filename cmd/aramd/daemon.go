package main

import (
	"fmt"
	"net"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/config"
	"github.com/backkem/aram/pkg/discovery"
	"github.com/backkem/aram/pkg/storage"
	"github.com/backkem/aram/pkg/transport"
)

// daemonOptions holds the non-file dependencies of a daemon.
type daemonOptions struct {
	// LoggerFactory for creating loggers. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// MDNSServerFactory overrides the zeroconf registration.
	MDNSServerFactory discovery.MDNSServerFactory
}

// daemon serves one applet over TCP and optionally advertises it.
type daemon struct {
	config *config.Config
	applet *aram.Applet
	server *transport.Server
	adv    *discovery.Advertiser
	log    logging.LeveledLogger
}

func newDaemon(cfg *config.Config, opts daemonOptions) (*daemon, error) {
	var store storage.Store
	if cfg.Storage != "" {
		fileStore, err := storage.OpenFileStore(storage.FileStoreConfig{
			Path:          cfg.Storage,
			LoggerFactory: opts.LoggerFactory,
		})
		if err != nil {
			return nil, err
		}
		store = fileStore
	} else {
		store = storage.NewMemoryStore()
	}

	applet, err := aram.New(aram.Config{
		Store:         store,
		ChunkSize:     cfg.ChunkSize,
		MaxEntries:    cfg.MaxEntries,
		LoggerFactory: opts.LoggerFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("create applet: %w", err)
	}

	server, err := transport.NewServer(transport.ServerConfig{
		ListenAddr:    cfg.Listen,
		Handler:       applet.Process,
		LoggerFactory: opts.LoggerFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}

	d := &daemon{
		config: cfg,
		applet: applet,
		server: server,
	}
	if cfg.Advertise {
		d.adv = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			ServerFactory: opts.MDNSServerFactory,
			LoggerFactory: opts.LoggerFactory,
		})
	}
	if opts.LoggerFactory != nil {
		d.log = opts.LoggerFactory.NewLogger("aramd")
	}
	return d, nil
}

func (d *daemon) start() error {
	if err := d.server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if d.adv == nil {
		return nil
	}

	tcp, ok := d.server.Addr().(*net.TCPAddr)
	if !ok {
		d.server.Stop()
		return fmt.Errorf("advertise: unsupported listen address %s", d.server.Addr())
	}
	err := d.adv.Start(discovery.ServiceInfo{
		Instance: d.config.Instance,
		Port:     tcp.Port,
		TXT: discovery.ServiceTXT{
			AID:       aram.AID,
			ChunkSize: d.applet.ChunkSize(),
		},
	})
	if err != nil {
		d.server.Stop()
		return fmt.Errorf("advertise: %w", err)
	}
	return nil
}

func (d *daemon) stop() error {
	if d.adv != nil {
		d.adv.Close()
	}
	if err := d.server.Stop(); err != nil {
		return err
	}
	if d.log != nil {
		d.log.Infof("stopped with %d rules", d.applet.Len())
	}
	return nil
}

func (d *daemon) addr() net.Addr {
	return d.server.Addr()
}
