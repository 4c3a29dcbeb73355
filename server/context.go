// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"reflect"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	logpkg "github.com/echa/log"

	"blockwatch.cc/csapi/etl"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	headerVersion   = "X-Api-Version"
	headerRuntime   = "X-Runtime"
	headerHead      = "X-Chain-Head"
	headerRequestId = "X-Request-Id"
	requestIdPrefix = "CS-"
)

// ApiCall is an endpoint handler. Handlers return the response body and
// HTTP status or panic with an *Error.
type ApiCall func(*Context) (interface{}, int)

// Context carries a single API request through its handler.
type Context struct {
	context.Context
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	RemoteIP       net.IP
	Cfg            *Config
	Server         *RestServer
	Indexer        *etl.Indexer
	Flow           *etl.Flow

	RequestID   string
	Log         logpkg.Logger
	Now         time.Time
	Performance *PerformanceCounter

	name   string
	f      ApiCall
	status int
	result interface{}
	err    *Error
	done   chan *Error
}

func NewContext(ctx context.Context, r *http.Request, w http.ResponseWriter, f ApiCall, srv *RestServer) *Context {
	now := time.Now().UTC()
	id := r.Header.Get(headerRequestId)
	if id == "" {
		id = nextRequestId()
	}
	return &Context{
		Context:        ctx,
		Request:        r,
		ResponseWriter: w,
		RemoteIP:       remoteIP(r),
		Cfg:            srv.cfg,
		Server:         srv,
		Indexer:        srv.cfg.Indexer,
		Flow:           srv.cfg.Flow,
		RequestID:      id,
		Log:            log.Clone().WithTag(id),
		Now:            now,
		Performance:    NewPerformanceCounter(now),
		name:           callName(f),
		f:              f,
		status:         http.StatusOK,
		done:           make(chan *Error, 1),
	}
}

// remoteIP prefers proxy headers over the socket address.
func remoteIP(r *http.Request) net.IP {
	for _, k := range []string{"X-Real-Ip", "X-Forwarded-For"} {
		if v := r.Header.Get(k); v != "" {
			v, _, _ = strings.Cut(v, ",")
			return net.ParseIP(strings.TrimSpace(v))
		}
	}
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return net.ParseIP(host)
}

// ParseRequestArgs decodes URL query arguments into args.
func (api *Context) ParseRequestArgs(args interface{}) {
	if err := schemaDecoder.Decode(args, api.Request.URL.Query()); err != nil {
		panic(EBadRequest(EC_BAD_URL_QUERY, err.Error(), nil))
	}
}

// serve runs the handler in a worker goroutine.
func (api *Context) serve() {
	defer api.recoverPanic()
	var status int
	api.result, status = api.f(api)
	if status > 0 {
		api.status = status
	}
}

func (api *Context) recoverPanic() {
	e := recover()
	if e == nil {
		return
	}
	if debugHttp {
		d, _ := httputil.DumpRequest(api.Request, false)
		api.Log.Trace(string(d))
	}
	err, ok := e.(error)
	if !ok {
		err = fmt.Errorf("%v", e)
	}
	api.handleError(err)
}

// handleError turns any handler failure into an Error envelope.
func (api *Context) handleError(e error) {
	var (
		re    *Error
		opErr *net.OpError
	)
	switch {
	case errors.As(e, &re):
	case errors.As(e, &opErr), errors.Is(e, syscall.EPIPE):
		re = EConnectionClosed(EC_NETWORK, "connection closed", e).(*Error)
	case errors.Is(e, context.Canceled):
		re = EConnectionClosed(EC_NETWORK, "context canceled", e).(*Error)
	case errors.Is(e, context.DeadlineExceeded):
		re = EServiceUnavailable(EC_SERVER,
			fmt.Sprintf("request timeout after %v", time.Since(api.Now)), e).(*Error)
	default:
		re = EInternal(EC_SERVER, "uncaught exception", e).(*Error)
		api.Log.Errorf("%s panic: %v\n%s", api.name, e, debug.Stack())
	}
	re.SetScope(api.name)
	re.RequestId = api.RequestID
	re.Reason = ""
	api.err = re
	api.status = re.Status
}

func (api *Context) sendResponse() {
	if api.err == nil {
		api.writeResponseHeaders()
		api.writeResponseBody()
		return
	}
	err := api.err
	api.Log.Errorf("%d (%d) %s %s - %s failed (%s): %v",
		api.status, err.Code, api.Request.Method, api.Request.RequestURI, err.Scope, err.Detail, err.Cause)

	// skip the body when the client went away
	if !errors.Is(err.Cause, context.Canceled) {
		api.writeResponseHeaders()
		api.ResponseWriter.Write(err.MarshalIndent())
	}
}

func (api *Context) writeResponseHeaders() {
	w := api.ResponseWriter
	h := w.Header()
	h.Set("Server", UserAgent)
	h.Set(headerVersion, ApiVersion)
	h.Set(headerRequestId, api.RequestID)
	if api.Indexer != nil {
		if head := api.Indexer.Checkpoint(); head.IsValid() {
			h.Set(headerHead, head.String())
		}
	}
	if h.Get("Content-Type") == "" && api.status != http.StatusNoContent {
		h.Set("Content-Type", jsonContentType)
	}
	if api.Cfg.Http.CorsEnable {
		api.writeCorsHeaders(h)
	}
	api.writeCacheHeaders(h)
	api.Performance.WriteResponseHeader(w)
	w.WriteHeader(api.status)
}

func (api *Context) writeCorsHeaders(h http.Header) {
	cfg := api.Cfg.Http
	origin := cfg.CorsOrigin
	if origin == "*" {
		origin = api.Request.Header.Get("Origin")
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Headers", cfg.CorsAllowHeaders)
	h.Set("Access-Control-Expose-Headers", cfg.CorsExposeHeaders)
	h.Set("Access-Control-Allow-Methods", cfg.CorsMethods)
	h.Set("Access-Control-Allow-Credentials", cfg.CorsCredentials)
	h.Set("Access-Control-Max-Age", cfg.CorsMaxAge)
}

// writeCacheHeaders marks successful GET responses cacheable when caching
// is enabled. Resources without expiry are sealed and get the maximum
// cache time, everything else uses the configured default.
func (api *Context) writeCacheHeaders(h http.Header) {
	now := api.Now
	h.Set("Date", now.Format(http.TimeFormat))
	cacheable := api.Cfg.Http.CacheEnable &&
		api.Request.Method == http.MethodGet &&
		api.status >= 200 && api.status < 300
	if !cacheable {
		h.Set("Cache-Control", "max-age=0, no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", now.Format(http.TimeFormat))
		return
	}
	maxAge := api.Cfg.Http.CacheExpires
	if res, ok := api.result.(Resource); ok {
		h.Set("Last-Modified", res.LastModified().Format(http.TimeFormat))
		if exp := res.Expires(); exp.IsZero() {
			maxAge = api.Cfg.Http.CacheMaxExpires
		} else if maxAge = exp.Sub(now); maxAge < 0 {
			maxAge = 0
		}
	}
	h.Set("Expires", now.Add(maxAge).Format(http.TimeFormat))
	h.Set("Cache-Control", api.Cfg.Http.CacheControl+",max-age="+strconv.FormatInt(int64(maxAge/time.Second), 10))
}

func (api *Context) writeResponseBody() {
	if api.result == nil {
		return
	}
	b, err := json.MarshalIndent(api.result, "", "  ")
	if err != nil {
		api.Log.Errorf("marshal response: %v", err)
		e := EInternal(EC_MARSHAL_FAILED, "cannot marshal response", err).(*Error)
		api.ResponseWriter.Write(e.SetScope(api.name).MarshalIndent())
		return
	}
	api.ResponseWriter.Write(append(b, '\n'))
}

var (
	callNames sync.Map // uintptr -> string
	requestNo atomic.Uint64
	requestTs = strconv.FormatInt(time.Now().Unix(), 36)
)

// nextRequestId returns a process unique request id.
func nextRequestId() string {
	return requestIdPrefix + requestTs + "-" + strconv.FormatUint(requestNo.Add(1), 36)
}

// callName returns the short function name of an endpoint handler.
func callName(f ApiCall) string {
	p := reflect.ValueOf(f).Pointer()
	if n, ok := callNames.Load(p); ok {
		return n.(string)
	}
	name := runtime.FuncForPC(p).Name()
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	callNames.Store(p, name)
	return name
}
