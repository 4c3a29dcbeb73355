// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

const jsonType = "application/json"

// Client reads and extends a remote ledger through the node's REST API.
type Client struct {
	http      *http.Client
	BaseURL   *url.URL
	UserAgent string
}

// NewClient returns a client for the node at baseURL. A missing scheme
// defaults to plain http.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{http: hc, BaseURL: u, UserAgent: "csapi/v1"}, nil
}

func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, result)
}

// call sends one JSON request and decodes a 2xx reply into result.
func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) error {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL.ResolveReference(rel).String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", jsonType)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", jsonType)
	}
	log.Debug(newLogClosure(func() string {
		d, _ := httputil.DumpRequest(req, true)
		return string(d)
	}))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	log.Tracef("%s %s -> %s %s", method, req.URL, resp.Status, buf)

	switch {
	case resp.StatusCode >= 300:
		return replyError(req, resp, buf)
	case result == nil, len(buf) == 0, resp.StatusCode == http.StatusNoContent:
		return nil
	default:
		return json.Unmarshal(buf, result)
	}
}

// replyError keeps the reply status and, for JSON replies, the node's
// error list.
func replyError(req *http.Request, resp *http.Response, body []byte) error {
	e := &httpError{
		request:    req.Method + " " + req.URL.RequestURI(),
		status:     resp.Status,
		statusCode: resp.StatusCode,
		body:       bytes.TrimSpace(body),
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), jsonType) {
		return e
	}
	var errs Errors
	if err := json.Unmarshal(body, &errs); err != nil || len(errs) == 0 {
		return e
	}
	return &rpcError{httpError: e, errors: errs}
}
