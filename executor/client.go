// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

// Package executor talks to the out-of-process contract byte code
// executor over a zmq REQ/REP channel.
package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/tidwall/gjson"

	"blockwatch.cc/csapi/chain"
)

var (
	ErrNotConnected = errors.New("executor not connected")
	ErrClosed       = errors.New("executor client closed")
	ErrCallFailed   = errors.New("executor call failed")
	ErrBadReply     = errors.New("invalid executor reply")
	ErrExecution    = errors.New("executor rejected call")
)

const (
	DefaultURL         = "tcp://127.0.0.1:9080"
	DefaultDialTimeout = 5 * time.Second
	DefaultCallTimeout = 30 * time.Second
)

type State byte

const (
	StateUnopened State = iota
	StateOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

type Config struct {
	URL         string
	DialTimeout time.Duration
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// Client owns a single lazily opened connection to the executor. Calls
// are serialized, the connection is opened on first use and reopened on
// the next call after a transport failure.
type Client struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	sock   zmq4.Socket
	cancel context.CancelFunc
	closed bool
	nCalls int64
	nFails int64
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// acquire returns the open socket and dials when there is none. Caller
// must hold c.mu.
func (c *Client) acquire() (zmq4.Socket, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.state == StateOpen {
		return c.sock, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	sock := zmq4.NewReq(ctx,
		zmq4.WithDialerTimeout(c.cfg.DialTimeout),
		zmq4.WithDialerRetry(c.cfg.DialTimeout/10),
	)
	if err := sock.Dial(c.cfg.URL); err != nil {
		sock.Close()
		cancel()
		c.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	log.Debugf("executor: connected to %s", c.cfg.URL)
	c.sock, c.cancel, c.state = sock, cancel, StateOpen
	return sock, nil
}

// fail drops the current socket. Caller must hold c.mu.
func (c *Client) fail(err error) {
	log.Warnf("executor: connection to %s failed: %v", c.cfg.URL, err)
	c.release()
	c.state = StateFailed
	c.nFails++
}

func (c *Client) release() {
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
	c.closed = true
	c.state = StateUnopened
	return nil
}

type request struct {
	Address       string   `json:"address"`
	ByteCode      []byte   `json:"byte_code"`
	ContractState []byte   `json:"contract_state"`
	Method        string   `json:"method"`
	Params        []string `json:"params"`
}

type reply struct {
	msg zmq4.Msg
	err error
}

// ExecuteByteCode runs method on byteCode with the given state and returns
// the new contract state.
func (c *Client) ExecuteByteCode(ctx context.Context, addr chain.Address, byteCode, state []byte, method string, params []string) ([]byte, error) {
	buf, err := json.Marshal(request{
		Address:       addr.String(),
		ByteCode:      byteCode,
		ContractState: state,
		Method:        method,
		Params:        params,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sock, err := c.acquire()
	if err != nil {
		return nil, err
	}
	c.nCalls++

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	ch := make(chan reply, 1)
	go func() {
		if err := sock.Send(zmq4.NewMsg(buf)); err != nil {
			ch <- reply{err: err}
			return
		}
		msg, err := sock.Recv()
		ch <- reply{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		// a REQ socket without reply cannot be reused
		c.fail(ctx.Err())
		return nil, fmt.Errorf("%w: %v", ErrCallFailed, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			c.fail(r.err)
			return nil, fmt.Errorf("%w: %v", ErrCallFailed, r.err)
		}
		return parseReply(r.msg.Bytes())
	}
}

// parseReply reads {"status":{"code":0,"message":".."},"contract_state":"<base64>"}.
func parseReply(buf []byte) ([]byte, error) {
	if !gjson.ValidBytes(buf) {
		return nil, ErrBadReply
	}
	res := gjson.ParseBytes(buf)
	if code := res.Get("status.code").Int(); code != 0 {
		return nil, fmt.Errorf("%w: code=%d %s", ErrExecution, code, res.Get("status.message").String())
	}
	state, err := base64.StdEncoding.DecodeString(res.Get("contract_state").String())
	if err != nil {
		return nil, fmt.Errorf("%w: contract_state: %v", ErrBadReply, err)
	}
	return state, nil
}

type Stats struct {
	URL   string `json:"url"`
	State string `json:"state"`
	Calls int64  `json:"calls"`
	Fails int64  `json:"failures"`
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		URL:   c.cfg.URL,
		State: c.state.String(),
		Calls: c.nCalls,
		Fails: c.nFails,
	}
}
