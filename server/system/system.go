// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package system

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/echa/config"
	logpkg "github.com/echa/log"
	"github.com/gorilla/mux"

	"blockwatch.cc/csapi/server"
)

// LoggerMap holds the subsystem loggers by tag. It is filled on startup.
var LoggerMap map[string]logpkg.Logger

// subsystems maps API names to logger tags.
var subsystems = map[string]string{
	"main":     "MAIN",
	"etl":      "ETL",
	"database": "DATA",
	"rpc":      "RPC",
	"api":      "API",
	"executor": "EXEC",
}

func init() {
	server.Register(SystemRequest{})
}

var _ server.RESTful = (*SystemRequest)(nil)

type SystemRequest struct{}

func (t SystemRequest) RESTPrefix() string {
	return "/system"
}

func (t SystemRequest) RESTPath(r *mux.Router) string {
	return ""
}

func (t SystemRequest) RegisterDirectRoutes(r *mux.Router) error {
	return nil
}

func (t SystemRequest) RegisterRoutes(r *mux.Router) error {
	// stats & info
	r.HandleFunc("/config", server.C(GetConfig)).Methods("GET")
	r.HandleFunc("/caches", server.C(GetCacheStats)).Methods("GET")
	r.HandleFunc("/sysstat", server.C(GetSysStats)).Methods("GET")

	// actions
	r.HandleFunc("/caches/purge", server.C(PurgeCaches)).Methods("PUT")
	r.HandleFunc("/log/{subsystem}/{level}", server.C(UpdateLog)).Methods("PUT")
	return nil
}

func GetCacheStats(ctx *server.Context) (interface{}, int) {
	cs := ctx.Indexer.CacheStats()
	if ctx.Cfg.Executor != nil {
		cs["executor"] = ctx.Cfg.Executor.Stats()
	}
	return cs, http.StatusOK
}

func GetSysStats(ctx *server.Context) (interface{}, int) {
	s, err := GetSysStat(ctx.Context, config.GetString("db.path"))
	if err != nil {
		panic(server.EInternal(server.EC_SERVER, "sysstat failed", err))
	}
	return s, http.StatusOK
}

func GetConfig(ctx *server.Context) (interface{}, int) {
	return config.All(), http.StatusOK
}

func PurgeCaches(ctx *server.Context) (interface{}, int) {
	ctx.Indexer.PurgeCaches()
	ctx.Log.Info("Purged API caches")
	return nil, http.StatusNoContent
}

func UpdateLog(ctx *server.Context) (interface{}, int) {
	sub := mux.Vars(ctx.Request)["subsystem"]
	level := mux.Vars(ctx.Request)["level"]
	lvl := logpkg.ParseLevel(level)
	if lvl == logpkg.LevelInvalid {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("undefined log level '%s'", level), nil))
	}
	key, ok := subsystems[strings.ToLower(sub)]
	if !ok {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("undefined subsystem '%s'", sub), nil))
	}
	if logger, ok := LoggerMap[key]; ok {
		logger.SetLevel(lvl)
		ctx.Log.Infof("Log level for %s set to %s", key, level)
	}
	return nil, http.StatusNoContent
}
