// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"os"

	"github.com/echa/config"
	logpkg "github.com/echa/log"

	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/etl/index"
	"blockwatch.cc/csapi/executor"
	"blockwatch.cc/csapi/ledger"
	"blockwatch.cc/csapi/rpc"
	"blockwatch.cc/csapi/server"
	"blockwatch.cc/csapi/server/system"
)

var (
	log     = logpkg.NewLogger("MAIN") // main program
	etlLog  = logpkg.NewLogger("ETL ") // index and flow
	dataLog = logpkg.NewLogger("DATA") // database
	jrpcLog = logpkg.NewLogger("RPC ") // node client
	srvrLog = logpkg.NewLogger("API ") // api server
	execLog = logpkg.NewLogger("EXEC") // contract executor
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
// Keys match the tags accepted by the system log endpoint.
var subsystemLoggers = map[string]logpkg.Logger{}

func initLogging() {
	cfg := logpkg.NewConfig()
	cfg.Level = logpkg.ParseLevel(config.GetString("log.level"))
	cfg.Flags = logpkg.ParseFlags(config.GetString("log.flags"))
	cfg.Backend = config.GetString("log.backend")
	cfg.Filename = config.GetString("log.filename")
	cfg.Addr = config.GetString("log.syslog.address")
	cfg.Facility = config.GetString("log.syslog.facility")
	cfg.Ident = config.GetString("log.syslog.ident")
	cfg.FileMode = os.FileMode(config.GetInt("log.filemode"))
	logpkg.Init(cfg)

	log = logpkg.NewLogger("MAIN") // command level

	// create loggers with configured backend
	etlLog = logpkg.NewLogger("ETL ")
	etlLog.SetLevel(logpkg.ParseLevel(config.GetString("log.etl")))
	dataLog = logpkg.NewLogger("DATA")
	dataLog.SetLevel(logpkg.ParseLevel(config.GetString("log.db")))
	jrpcLog = logpkg.NewLogger("RPC ")
	jrpcLog.SetLevel(logpkg.ParseLevel(config.GetString("log.rpc")))
	srvrLog = logpkg.NewLogger("API ")
	srvrLog.SetLevel(logpkg.ParseLevel(config.GetString("log.api")))
	execLog = logpkg.NewLogger("EXEC")
	execLog.SetLevel(logpkg.ParseLevel(config.GetString("log.exec")))

	// assign default loggers
	etl.UseLogger(etlLog)
	index.UseLogger(etlLog)
	ledger.UseLogger(dataLog)
	rpc.UseLogger(jrpcLog)
	server.UseLogger(srvrLog)
	executor.UseLogger(execLog)

	// store loggers in map
	subsystemLoggers = map[string]logpkg.Logger{
		"MAIN": log,
		"ETL":  etlLog,
		"DATA": dataLog,
		"RPC":  jrpcLog,
		"API":  srvrLog,
		"EXEC": execLog,
	}

	// export to server for http control
	system.LoggerMap = subsystemLoggers

	// handle cli flags
	switch {
	case vtrace:
		setLogLevels(logpkg.LevelTrace)
	case vdebug:
		setLogLevels(logpkg.LevelDebug)
	case verbose:
		setLogLevels(logpkg.LevelInfo)
	}
}

// setLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, level logpkg.Level) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(level logpkg.Level) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, level)
	}
}
