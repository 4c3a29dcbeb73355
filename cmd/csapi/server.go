// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/echa/config"

	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/executor"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/server"

	// register API endpoints
	_ "blockwatch.cc/csapi/server/explorer"
	_ "blockwatch.cc/csapi/server/system"
)

// openLedger returns the read accessor and the transaction submitter
// for the configured ledger mode plus a close function.
func openLedger(ctx context.Context) (ledger.Accessor, etl.Submitter, func(), error) {
	switch mode := config.GetString("ledger.mode"); mode {
	case "local", "":
		pathname := config.GetString("db.path")
		log.Infof("Using local ledger at %s", pathname)
		if config.GetBool("db.nosync") {
			log.Warnf("Enabled NOSYNC mode. Database will not be safe on crashes!")
		}
		store, err := ledger.Open(pathname, DBOpts(false))
		if err != nil {
			return nil, nil, nil, err
		}
		alloc, err := parseGenesis(config.GetString("ledger.genesis"))
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		if err := store.Init(ctx, alloc); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("initializing ledger: %w", err)
		}
		return store, ledger.NewProducer(store), func() { store.Close() }, nil

	case "remote":
		client, err := newRPCClient()
		if err != nil {
			return nil, nil, nil, err
		}
		log.Infof("Using remote node at %s", client.BaseURL)
		return client, client, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown ledger mode %q", mode)
	}
}

func runServer() error {
	// set user agent in library client
	server.UserAgent = UserAgent()
	server.ApiVersion = apiVersion

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acc, submitter, closeLedger, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	exec := executor.NewClient(executor.Config{
		URL:         config.GetString("executor.url"),
		DialTimeout: config.GetDuration("executor.dial_timeout"),
		CallTimeout: config.GetDuration("executor.call_timeout"),
	})
	defer exec.Close()

	indexer := etl.NewIndexer(etl.IndexerConfig{
		Ledger:            acc,
		ContractCacheSize: config.GetInt("cache.contract_size"),
	})
	defer indexer.Close()
	if err := indexer.Init(ctx); err != nil {
		return fmt.Errorf("error initializing indexer: %w", err)
	}

	srv, err := server.New(&server.Config{
		Indexer:  indexer,
		Flow:     etl.NewFlow(indexer, submitter, exec),
		Executor: exec,
		Http: server.HttpConfig{
			Addr:                config.GetString("server.addr"),
			Port:                config.GetInt("server.port"),
			Scheme:              config.GetString("server.scheme"),
			Host:                config.GetString("server.host"),
			MaxWorkers:          config.GetInt("server.workers"),
			MaxQueue:            config.GetInt("server.queue"),
			ReadTimeout:         config.GetDuration("server.read_timeout"),
			HeaderTimeout:       config.GetDuration("server.header_timeout"),
			WriteTimeout:        config.GetDuration("server.write_timeout"),
			KeepAlive:           config.GetDuration("server.keepalive"),
			ShutdownTimeout:     config.GetDuration("server.shutdown_timeout"),
			DefaultExploreCount: config.GetUint("server.default_explore_count"),
			MaxExploreCount:     config.GetUint("server.max_explore_count"),
			CorsEnable:          config.GetBool("server.cors_enable"),
			CorsOrigin:          config.GetString("server.cors_origin"),
			CorsAllowHeaders:    config.GetString("server.cors_allow_headers"),
			CorsExposeHeaders:   config.GetString("server.cors_expose_headers"),
			CorsMethods:         config.GetString("server.cors_methods"),
			CorsMaxAge:          config.GetString("server.cors_maxage"),
			CorsCredentials:     config.GetString("server.cors_credentials"),
			CacheEnable:         config.GetBool("server.cache_enable"),
			CacheControl:        config.GetString("server.cache_control"),
			CacheExpires:        config.GetDuration("server.cache_expires"),
			CacheMaxExpires:     config.GetDuration("server.cache_max"),
		},
	})
	if err != nil {
		return err
	}
	srv.Start()
	defer srv.Stop()

	// wait for shutdown signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info("Shutting down.")
	return nil
}
