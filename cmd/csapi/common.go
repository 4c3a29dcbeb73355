// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/echa/config"

	"blockwatch.cc/csapi/chain"
	"blockwatch.cc/csapi/rpc"
)

func newHTTPClient() (*http.Client, error) {
	// Set proxy function if there is a proxy configured.
	var proxyFunc func(*http.Request) (*url.URL, error)
	if purl := config.GetString("rpc.proxy"); purl != "" {
		proxyURL, err := url.Parse(purl)
		if err != nil {
			return nil, err
		}
		proxyFunc = http.ProxyURL(proxyURL)
	}

	// Configure TLS if needed.
	var tlsConfig *tls.Config
	if !config.GetBool("rpc.disable_tls") {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: config.GetBool("rpc.insecure_tls"),
		}
	}

	client := http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   config.GetDuration("rpc.dial_timeout"),
				KeepAlive: config.GetDuration("rpc.keepalive"),
			}).DialContext,
			Proxy:                 proxyFunc,
			TLSClientConfig:       tlsConfig,
			IdleConnTimeout:       config.GetDuration("rpc.idle_timeout"),
			ResponseHeaderTimeout: config.GetDuration("rpc.response_timeout"),
			ExpectContinueTimeout: config.GetDuration("rpc.continue_timeout"),
			MaxIdleConns:          config.GetInt("rpc.idle_conns"),
			MaxIdleConnsPerHost:   config.GetInt("rpc.idle_conns"),
		},
	}
	return &client, nil
}

func newRPCClient() (*rpc.Client, error) {
	c, err := newHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("rpc client: %w", err)
	}
	u, err := url.Parse(config.GetString("rpc.url"))
	if err != nil {
		return nil, err
	}
	if !config.GetBool("rpc.disable_tls") {
		u.Scheme = "https"
	}
	rpcclient, err := rpc.NewClient(u.String(), c)
	if err != nil {
		return nil, fmt.Errorf("rpc client: %w", err)
	}
	rpcclient.UserAgent = UserAgent()
	return rpcclient, nil
}

// parseGenesis reads comma separated address:amount pairs. Addresses may
// be canonical hex or base58 public keys.
func parseGenesis(s string) (map[chain.Address]chain.Amount, error) {
	alloc := make(map[chain.Address]chain.Amount)
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		a, v, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("genesis: missing amount in %q", field)
		}
		addr, err := chain.ParseAddress(a)
		if err != nil {
			return nil, fmt.Errorf("genesis: %q: %w", a, err)
		}
		amount, err := chain.ParseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("genesis: %q: %w", v, err)
		}
		alloc[addr] = alloc[addr].Add(amount)
	}
	return alloc, nil
}
