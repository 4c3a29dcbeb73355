// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package server

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"blockwatch.cc/csapi/etl"
	"blockwatch.cc/csapi/executor"
)

type Config struct {
	Indexer  *etl.Indexer
	Flow     *etl.Flow
	Executor *executor.Client // optional, exposes call statistics only
	Http     HttpConfig
}

// ClampExplore limits a page size to the configured maximum. A nil count
// selects the default page size, an explicit zero is kept.
func (c Config) ClampExplore(count *uint) uint {
	n := c.Http.DefaultExploreCount
	if count != nil {
		n = *count
	}
	if max := c.Http.MaxExploreCount; max > 0 && n > max {
		return max
	}
	return n
}

// ClampOffset limits a page offset to the configured maximum.
func (c Config) ClampOffset(offset uint) uint {
	max := c.Http.MaxExploreCount
	if max > 0 && offset > max {
		return max
	}
	return offset
}

// HTTP Server Configuration
type HttpConfig struct {
	Addr                string        `json:"addr"`
	Port                int           `json:"port"`
	Scheme              string        `json:"scheme"`
	Host                string        `json:"host"`
	MaxWorkers          int           `json:"max_workers"`
	MaxQueue            int           `json:"max_queue"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	HeaderTimeout       time.Duration `json:"header_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	KeepAlive           time.Duration `json:"keep_alive"`
	ShutdownTimeout     time.Duration `json:"shutdown_timeout"`
	DefaultExploreCount uint          `json:"default_explore_count"`
	MaxExploreCount     uint          `json:"max_explore_count"`
	CorsEnable          bool          `json:"cors_enable"`
	CorsOrigin          string        `json:"cors_origin"`
	CorsAllowHeaders    string        `json:"cors_allow_headers"`
	CorsExposeHeaders   string        `json:"cors_expose_headers"`
	CorsMethods         string        `json:"cors_methods"`
	CorsMaxAge          string        `json:"cors_maxage"`
	CorsCredentials     string        `json:"cors_credentials"`
	CacheEnable         bool          `json:"cache_enable"`
	CacheControl        string        `json:"cache_control"`
	CacheExpires        time.Duration `json:"cache_expires"`
	CacheMaxExpires     time.Duration `json:"cache_max"`
}

func (c HttpConfig) Address() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

func NewHttpConfig() HttpConfig {
	return HttpConfig{
		Addr:                "127.0.0.1",
		Port:                8000,
		Host:                "127.0.0.1",
		Scheme:              "http",
		MaxWorkers:          50,
		MaxQueue:            200,
		HeaderTimeout:       2 * time.Second,  // header timeout
		ReadTimeout:         5 * time.Second,  // header+body timeout
		WriteTimeout:        90 * time.Second, // response deadline
		KeepAlive:           90 * time.Second, // timeout for idle connections
		ShutdownTimeout:     30 * time.Second, // graceful shutdown deadline
		DefaultExploreCount: 20,
		MaxExploreCount:     100,
		CacheExpires:        30 * time.Second,
		CacheMaxExpires:     24 * time.Hour,
	}
}

// Check normalizes the configuration and logs every invalid setting.
func (cfg *HttpConfig) Check() error {
	if u, err := url.Parse(cfg.Host); err == nil {
		if u.Host != "" {
			cfg.Host = u.Host
		}
		if u.Scheme != "" {
			cfg.Scheme = u.Scheme
		}
	}
	if cfg.Scheme != "https" && cfg.Scheme != "http" {
		cfg.Scheme = "http"
	}

	var nErr int
	fail := func(format string, args ...interface{}) {
		log.Errorf(format, args...)
		nErr++
	}
	switch {
	case cfg.Addr == "":
		fail("Empty API server address")
	case cfg.Addr == "0.0.0.0":
		log.Warn("HTTP Server reachable on all interfaces (0.0.0.0)")
	case cfg.Addr == "127.0.0.1" || cfg.Addr == "localhost":
		log.Warn("HTTP Server reachable on localhost only")
	}
	if cfg.Port == 0 {
		fail("Empty API server port")
	}
	if cfg.Host == "" {
		fail("Empty http hostname")
	}
	if cfg.MaxWorkers <= 0 {
		fail("Invalid API worker count %d", cfg.MaxWorkers)
	}
	for name, d := range map[string]time.Duration{
		"header":     cfg.HeaderTimeout,
		"read":       cfg.ReadTimeout,
		"write":      cfg.WriteTimeout,
		"keep alive": cfg.KeepAlive,
		"shutdown":   cfg.ShutdownTimeout,
	} {
		if d <= 0 {
			fail("Invalid API %s timeout %v", name, d)
		}
	}
	if cfg.MaxExploreCount > 0 && cfg.DefaultExploreCount > cfg.MaxExploreCount {
		log.Warnf("Default page size %d exceeds maximum %d", cfg.DefaultExploreCount, cfg.MaxExploreCount)
		cfg.DefaultExploreCount = cfg.MaxExploreCount
	}
	if nErr > 0 {
		return fmt.Errorf("http server: %d configuration errors", nErr)
	}
	return nil
}
