// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"blockwatch.cc/csapi/chain"
)

func freeEndpoint(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "tcp://" + addr
}

// serve runs a REP socket that appends the method name to the state.
// Method "fail" is answered with an error status, method "hang" is never
// answered.
func serve(t *testing.T, ep string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rep := zmq4.NewRep(ctx)
	require.NoError(t, rep.Listen(ep))
	t.Cleanup(func() {
		rep.Close()
		cancel()
	})
	go func() {
		for {
			msg, err := rep.Recv()
			if err != nil {
				return
			}
			req := gjson.ParseBytes(msg.Bytes())
			method := req.Get("method").String()
			var out string
			switch method {
			case "hang":
				continue
			case "fail":
				out = `{"status":{"code":1,"message":"Failure: bad method"}}`
			default:
				state, _ := base64.StdEncoding.DecodeString(req.Get("contract_state").String())
				state = append(state, []byte(method+":"+req.Get("address").String()[:4])...)
				out = fmt.Sprintf(`{"status":{"code":0,"message":"Success"},"contract_state":%q}`,
					base64.StdEncoding.EncodeToString(state))
			}
			if err := rep.Send(zmq4.NewMsgString(out)); err != nil {
				return
			}
		}
	}()
}

func testAddr() chain.Address {
	var a chain.Address
	a[0], a[1] = 0xab, 0xcd
	return a
}

func TestClientExecute(t *testing.T) {
	ep := freeEndpoint(t)
	serve(t, ep)
	c := NewClient(Config{URL: ep, DialTimeout: time.Second, CallTimeout: 5 * time.Second})
	defer c.Close()
	ctx := context.Background()

	assert.Equal(t, StateUnopened, c.State())
	state, err := c.ExecuteByteCode(ctx, testAddr(), []byte{1, 2}, nil, "initialize", nil)
	require.NoError(t, err)
	assert.Equal(t, "initialize:abcd", string(state))
	assert.Equal(t, StateOpen, c.State())

	state, err = c.ExecuteByteCode(ctx, testAddr(), []byte{1, 2}, state, "inc", []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "initialize:abcdinc:abcd", string(state))

	_, err = c.ExecuteByteCode(ctx, testAddr(), nil, nil, "fail", nil)
	assert.ErrorIs(t, err, ErrExecution)
	// application errors keep the connection
	assert.Equal(t, StateOpen, c.State())

	st := c.Stats()
	assert.Equal(t, int64(3), st.Calls)
	assert.Equal(t, int64(0), st.Fails)
}

func TestClientTimeout(t *testing.T) {
	ep := freeEndpoint(t)
	serve(t, ep)
	c := NewClient(Config{URL: ep, DialTimeout: time.Second, CallTimeout: 200 * time.Millisecond})
	defer c.Close()

	_, err := c.ExecuteByteCode(context.Background(), testAddr(), nil, nil, "hang", nil)
	assert.ErrorIs(t, err, ErrCallFailed)
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, int64(1), c.Stats().Fails)
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient(Config{URL: freeEndpoint(t), DialTimeout: 100 * time.Millisecond})
	defer c.Close()

	_, err := c.ExecuteByteCode(context.Background(), testAddr(), nil, nil, "initialize", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, StateFailed, c.State())
}

func TestClientClosed(t *testing.T) {
	c := NewClient(Config{URL: freeEndpoint(t)})
	require.NoError(t, c.Close())
	_, err := c.ExecuteByteCode(context.Background(), testAddr(), nil, nil, "initialize", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseReply(t *testing.T) {
	_, err := parseReply([]byte("{"))
	assert.ErrorIs(t, err, ErrBadReply)

	_, err = parseReply([]byte(`{"status":{"code":0},"contract_state":"***"}`))
	assert.ErrorIs(t, err, ErrBadReply)

	state, err := parseReply([]byte(`{"status":{"code":0,"message":"Success"}}`))
	require.NoError(t, err)
	assert.Empty(t, state)

	_, err = parseReply([]byte(`{"status":{"code":2,"message":"Not Implemented"}}`))
	assert.ErrorIs(t, err, ErrExecution)
	assert.Contains(t, err.Error(), "Not Implemented")
}
