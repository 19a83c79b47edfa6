// Package protocol implements the bidirectional JSON-RPC connection shared by
// the shader-lsp server and client. Either side may issue requests; responses
// are matched to callers by ID only.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/pkg/xcontext"
	"go.lsp.dev/protocol"

	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/constants"
	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/internal/types"
)

// ErrClosed is returned by calls on a connection that has shut down
var ErrClosed = errors.New("connection closed")

// Handler answers the requests and notifications a peer sends
type Handler interface {
	// HandleRequest runs in its own goroutine. ctx is cancelled when the
	// peer sends $/cancelRequest for this call or the connection closes.
	HandleRequest(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
	// HandleNotification runs on the read loop, in arrival order. It must
	// not wait on Call.
	HandleNotification(ctx context.Context, method string, params json.RawMessage) error
}

// HandlerFuncs adapts plain functions to Handler. A nil Request answers
// MethodNotFound; a nil Notification drops the message.
type HandlerFuncs struct {
	Request      func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
	Notification func(ctx context.Context, method string, params json.RawMessage) error
}

func (h HandlerFuncs) HandleRequest(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	if h.Request == nil {
		return nil, errs.NewMethodNotSupportedError("peer", method, "")
	}
	return h.Request(ctx, method, params)
}

func (h HandlerFuncs) HandleNotification(ctx context.Context, method string, params json.RawMessage) error {
	if h.Notification == nil {
		return nil
	}
	return h.Notification(ctx, method, params)
}

// Option configures a Conn
type Option func(*Conn)

// WithLogger sets the logger used for traffic and late-response logging
func WithLogger(l *common.SafeLogger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithLateResponseWindow sets how long an abandoned request ID is remembered
func WithLateResponseWindow(d time.Duration) Option {
	return func(c *Conn) { c.lateWindow = d }
}

// Conn is one side of a JSON-RPC session
type Conn struct {
	name    string
	stream  jsonrpc2.Stream
	handler Handler
	logger  *common.SafeLogger

	seq     int32
	writeMu sync.Mutex

	mu             sync.Mutex
	pending        map[jsonrpc2.ID]chan *jsonrpc2.Response
	handling       map[jsonrpc2.ID]context.CancelFunc
	recentTimeouts map[jsonrpc2.ID]time.Time
	lateWindow     time.Duration
	closing        bool

	handlers  sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewConn frames rwc with Content-Length headers. name identifies the
// connection in logs.
func NewConn(name string, rwc io.ReadWriteCloser, handler Handler, opts ...Option) *Conn {
	if handler == nil {
		handler = HandlerFuncs{}
	}
	c := &Conn{
		name:           name,
		stream:         jsonrpc2.NewStream(rwc),
		handler:        handler,
		logger:         common.LSPLogger,
		pending:        make(map[jsonrpc2.ID]chan *jsonrpc2.Response),
		handling:       make(map[jsonrpc2.ID]context.CancelFunc),
		recentTimeouts: make(map[jsonrpc2.ID]time.Time),
		lateWindow:     constants.LateResponseWindow,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Go starts the read loop in the background
func (c *Conn) Go(ctx context.Context) {
	go func() {
		_ = c.Run(ctx)
	}()
}

// Run reads and dispatches messages until the stream ends, ctx is done or
// Close is called. It returns nil on a clean end of stream.
func (c *Conn) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-runCtx.Done():
			c.shutdown(nil)
		case <-c.done:
		}
	}()

	var runErr error
	for {
		msg, _, err := c.stream.Read(runCtx)
		if err != nil {
			if isDecodeError(err) {
				c.logger.Warn("[%s] Skipping malformed message: %v", c.name, err)
				continue
			}
			if !c.isClosing() && !isEOF(err) && runCtx.Err() == nil {
				runErr = fmt.Errorf("%s: reading message: %w", c.name, err)
			}
			break
		}

		switch m := msg.(type) {
		case *jsonrpc2.Call:
			c.handleCall(runCtx, m)
		case *jsonrpc2.Notification:
			c.handleNotification(runCtx, m)
		case *jsonrpc2.Response:
			c.handleResponse(m)
		}
	}

	c.shutdown(runErr)
	c.handlers.Wait()
	return runErr
}

// Call sends a request and decodes the matching response into result.
// result may be nil when the caller does not need the value.
func (c *Conn) Call(ctx context.Context, method string, params, result interface{}) error {
	id := jsonrpc2.NewNumberID(atomic.AddInt32(&c.seq, 1))
	call, err := jsonrpc2.NewCall(id, method, params)
	if err != nil {
		return errs.WithMethod(method, errs.NewProtocolError("encoding params", err))
	}

	ch := make(chan *jsonrpc2.Response, 1)
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	start := time.Now()
	c.logger.Debug("[%s] --> request #%v %s", c.name, id, method)
	if err := c.write(ctx, call); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("%s: sending request: %w", method, err)
	}

	select {
	case resp := <-ch:
		return c.finishCall(method, id, resp, result, start)

	case <-ctx.Done():
		if !c.abandon(id) {
			// the answer was routed before ctx fired
			return c.finishCall(method, id, <-ch, result, start)
		}
		if err := c.notifyCancel(ctx, id); err != nil {
			c.logger.Debug("[%s] Failed to send $/cancelRequest for #%v: %v", c.name, id, err)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			var timeout time.Duration
			if deadline, ok := ctx.Deadline(); ok {
				timeout = deadline.Sub(start).Round(time.Millisecond)
			}
			return errs.NewTimeoutError(method, timeout, ctx.Err())
		}
		return fmt.Errorf("%s: %w", method, ctx.Err())

	case <-c.done:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		select {
		case resp := <-ch:
			return c.finishCall(method, id, resp, result, start)
		default:
		}
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
}

func (c *Conn) finishCall(method string, id jsonrpc2.ID, resp *jsonrpc2.Response, result interface{}, start time.Time) error {
	c.logger.Debug("[%s] <-- response #%v %s in %v", c.name, id, method, time.Since(start))
	if rpcErr := resp.Err(); rpcErr != nil {
		return errs.FromRPCError(method, rpcErr)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result(), result); err != nil {
		return errs.WithMethod(method, errs.NewProtocolError("decoding result", err))
	}
	return nil
}

// Notify sends a notification
func (c *Conn) Notify(ctx context.Context, method string, params interface{}) error {
	n, err := jsonrpc2.NewNotification(method, params)
	if err != nil {
		return errs.WithMethod(method, errs.NewProtocolError("encoding params", err))
	}
	c.logger.Debug("[%s] --> notification %s", c.name, method)
	if err := c.write(ctx, n); err != nil {
		return fmt.Errorf("%s: sending notification: %w", method, err)
	}
	return nil
}

// Close shuts the connection down. Pending calls fail with ErrClosed and
// running handlers are cancelled.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

// Done is closed once the connection has shut down
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any
func (c *Conn) Err() error {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.err
	default:
		return nil
	}
}

// LateResponseWindow returns how long abandoned request IDs are remembered
func (c *Conn) LateResponseWindow() time.Duration {
	return c.lateWindow
}

// Pending returns the number of outbound calls awaiting a response
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		c.err = err
		for _, cancel := range c.handling {
			cancel()
		}
		c.mu.Unlock()

		if cerr := c.stream.Close(); cerr != nil {
			c.logger.Debug("[%s] Closing stream: %v", c.name, cerr)
		}
		close(c.done)
	})
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Conn) write(ctx context.Context, msg jsonrpc2.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.stream.Write(ctx, msg)
	return err
}

func (c *Conn) handleCall(ctx context.Context, call *jsonrpc2.Call) {
	id := call.ID()
	method := call.Method()
	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.handling[id] = cancel
	c.mu.Unlock()

	c.logger.Debug("[%s] <-- request #%v %s", c.name, id, method)

	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()
		defer func() {
			c.mu.Lock()
			delete(c.handling, id)
			c.mu.Unlock()
			cancel()
		}()

		result, err := c.invoke(reqCtx, method, json.RawMessage(call.Params()))
		if err == nil && reqCtx.Err() != nil {
			err = reqCtx.Err()
		}
		if err != nil {
			result = nil
			if !errs.IsCancellationError(err) {
				c.logger.Debug("[%s] Request #%v %s failed: %v", c.name, id, method, err)
			}
		}
		c.reply(xcontext.Detach(reqCtx), id, method, result, err)
	}()
}

func (c *Conn) invoke(ctx context.Context, method string, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("[%s] Handler for %s panicked: %v", c.name, method, r)
			err = jsonrpc2.Errorf(jsonrpc2.InternalError, "%s: handler panic: %v", method, r)
		}
	}()
	return c.handler.HandleRequest(ctx, method, params)
}

func (c *Conn) reply(ctx context.Context, id jsonrpc2.ID, method string, result interface{}, err error) {
	resp, merr := jsonrpc2.NewResponse(id, result, errs.ToRPCError(err))
	if merr != nil {
		c.logger.Error("[%s] Failed to encode result of %s: %v", c.name, method, merr)
		resp, _ = jsonrpc2.NewResponse(id, nil, jsonrpc2.Errorf(jsonrpc2.InternalError, "encoding result: %v", merr))
	}
	if werr := c.write(ctx, resp); werr != nil && !c.isClosing() {
		c.logger.Warn("[%s] Failed to send response #%v for %s: %v", c.name, id, method, werr)
	}
}

func (c *Conn) handleNotification(ctx context.Context, n *jsonrpc2.Notification) {
	method := n.Method()
	params := json.RawMessage(n.Params())

	if method == types.MethodCancelRequest {
		c.handleCancel(params)
		return
	}

	c.logger.Debug("[%s] <-- notification %s", c.name, method)
	if err := c.handler.HandleNotification(ctx, method, params); err != nil {
		c.logger.Warn("[%s] Notification %s failed: %v", c.name, method, err)
	}
}

func (c *Conn) handleCancel(params json.RawMessage) {
	var p protocol.CancelParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.logger.Warn("[%s] Malformed $/cancelRequest: %v", c.name, err)
		return
	}

	id, ok := parseID(p.ID)
	if !ok {
		c.logger.Warn("[%s] $/cancelRequest with unsupported id %v", c.name, p.ID)
		return
	}

	c.mu.Lock()
	cancel, found := c.handling[id]
	c.mu.Unlock()

	if found {
		c.logger.Debug("[%s] Cancelling request #%v", c.name, id)
		cancel()
	}
}

func (c *Conn) handleResponse(resp *jsonrpc2.Response) {
	id := resp.ID()

	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	abandonedAt, wasAbandoned := c.recentTimeouts[id]
	if wasAbandoned {
		delete(c.recentTimeouts, id)
	}
	c.mu.Unlock()

	if ok {
		ch <- resp
		return
	}

	if wasAbandoned && time.Since(abandonedAt) <= c.lateWindow {
		c.logger.Debug("[%s] Received late response for previously abandoned request #%v", c.name, id)
		return
	}
	c.logger.Warn("[%s] No matching request found for response #%v", c.name, id)
}

// abandon forgets a pending call and remembers its ID so a late answer is
// recognized. It returns false when the response was already routed to the
// caller's channel.
func (c *Conn) abandon(id jsonrpc2.ID) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	c.recentTimeouts[id] = now

	for old, at := range c.recentTimeouts {
		if now.Sub(at) > c.lateWindow {
			delete(c.recentTimeouts, old)
		}
	}
	return true
}

func (c *Conn) notifyCancel(ctx context.Context, id jsonrpc2.ID) error {
	var raw interface{}
	if err := json.Unmarshal(mustMarshalID(id), &raw); err != nil {
		return err
	}
	return c.Notify(xcontext.Detach(ctx), types.MethodCancelRequest, &protocol.CancelParams{ID: raw})
}

func mustMarshalID(id jsonrpc2.ID) []byte {
	data, err := id.MarshalJSON()
	if err != nil {
		return []byte("null")
	}
	return data
}

// parseID converts a $/cancelRequest id, decoded as float64 or string, to a
// jsonrpc2.ID.
func parseID(v interface{}) (jsonrpc2.ID, bool) {
	switch id := v.(type) {
	case float64:
		return jsonrpc2.NewNumberID(int32(id)), true
	case string:
		return jsonrpc2.NewStringID(id), true
	default:
		return jsonrpc2.ID{}, false
	}
}

func isDecodeError(err error) bool {
	return errors.Is(err, jsonrpc2.ErrInvalidRequest) ||
		strings.Contains(err.Error(), "unmarshaling jsonrpc message")
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
