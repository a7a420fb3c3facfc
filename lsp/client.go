// Package lsp is a minimal JSON-RPC language server client. It serves the
// menu as both a code action provider and the remote command service.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ErrClosed is returned by calls on a closed client or one whose server
// went away.
var ErrClosed = errors.New("lsp: client closed")

// RequestHandler answers requests the server sends to the client, such as
// workspace/applyEdit.
type RequestHandler func(ctx context.Context, method string, params json.RawMessage) (any, error)

// NotifyHandler receives server notifications.
type NotifyHandler func(method string, params json.RawMessage)

// Client talks to one language server.
type Client struct {
	cmd    *exec.Cmd
	in     io.WriteCloser
	out    *bufio.Reader
	outRaw io.Closer
	logger *slog.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[int64]chan rpcResult
	notify  NotifyHandler
	handle  RequestHandler

	nextID atomic.Int64
	closed atomic.Bool
	done   chan struct{}
}

type rpcResult struct {
	result json.RawMessage
	err    error
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type jsonrpcErrorReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *ResponseError  `json:"error"`
}

// jsonrpcMessage is any incoming message: a response has an id and no
// method, a server request has both, a notification has only a method.
type jsonrpcMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseError is a JSON-RPC error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

const (
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// NewClient starts command and speaks JSON-RPC over its stdio.
func NewClient(ctx context.Context, logger *slog.Logger, command string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	c := newClient(stdout, stdin, logger)
	c.cmd = cmd
	go c.readLoop()
	return c, nil
}

// NewStreamClient speaks JSON-RPC over an existing connection.
func NewStreamClient(r io.ReadCloser, w io.WriteCloser, logger *slog.Logger) *Client {
	c := newClient(r, w, logger)
	c.outRaw = r
	go c.readLoop()
	return c
}

func newClient(r io.Reader, w io.WriteCloser, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		in:      w,
		out:     bufio.NewReader(r),
		logger:  logger,
		pending: make(map[int64]chan rpcResult),
		done:    make(chan struct{}),
	}
}

// SetNotifyHandler registers a callback for server notifications.
func (c *Client) SetNotifyHandler(fn NotifyHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// SetRequestHandler registers a callback for server requests. Without one
// every request is answered with "method not found".
func (c *Client) SetRequestHandler(fn RequestHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = fn
}

// Running reports whether the connection is usable.
func (c *Client) Running() bool {
	if c == nil || c.closed.Load() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the server connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.cleanupPending()
	for {
		body, err := readFrame(c.out)
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.closed.Load() {
				c.logger.Warn("lsp read failed", "err", err)
			}
			return
		}
		var msg jsonrpcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			c.logger.Warn("lsp decode failed", "err", err)
			continue
		}

		switch {
		case msg.Method != "" && len(msg.ID) > 0:
			go c.serve(msg)
		case msg.Method != "":
			c.mu.Lock()
			fn := c.notify
			c.mu.Unlock()
			if fn != nil {
				fn(msg.Method, msg.Params)
			}
		case len(msg.ID) > 0:
			c.deliver(msg)
		}
	}
}

func (c *Client) deliver(msg jsonrpcMessage) {
	id, err := strconv.ParseInt(string(msg.ID), 10, 64)
	if err != nil {
		c.logger.Debug("lsp response with foreign id", "id", string(msg.ID))
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if msg.Error != nil {
		ch <- rpcResult{err: msg.Error}
	} else {
		ch <- rpcResult{result: msg.Result}
	}
	close(ch)
}

func (c *Client) serve(msg jsonrpcMessage) {
	c.mu.Lock()
	fn := c.handle
	c.mu.Unlock()

	var reply any
	if fn == nil {
		reply = jsonrpcErrorReply{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error:   &ResponseError{Code: codeMethodNotFound, Message: "method not found: " + msg.Method},
		}
	} else {
		result, err := fn(context.Background(), msg.Method, msg.Params)
		var rpcErr *ResponseError
		switch {
		case errors.As(err, &rpcErr):
			reply = jsonrpcErrorReply{JSONRPC: "2.0", ID: msg.ID, Error: rpcErr}
		case err != nil:
			reply = jsonrpcErrorReply{JSONRPC: "2.0", ID: msg.ID, Error: &ResponseError{Code: codeInternalError, Message: err.Error()}}
		default:
			reply = jsonrpcReply{JSONRPC: "2.0", ID: msg.ID, Result: result}
		}
	}
	if err := c.send(reply); err != nil {
		c.logger.Debug("lsp reply failed", "method", msg.Method, "err", err)
	}
}

func (c *Client) cleanupPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = map[int64]chan rpcResult{}
}

// readFrame reads one Content-Length framed body.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var contentLength int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				contentLength = n
			}
		}
	}
	if contentLength <= 0 {
		return nil, fmt.Errorf("invalid content-length: %d", contentLength)
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// writeFrame writes data with its Content-Length header.
func writeFrame(w io.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func (c *Client) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	return writeFrame(c.in, data)
}

// Call sends a request and decodes the response into result, which may be
// nil to discard it.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	if !c.Running() {
		return ErrClosed
	}
	id := c.nextID.Add(1)
	ch := make(chan rpcResult, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case res, ok := <-ch:
		return decodeResult(method, res, ok, result)
	case <-c.done:
		// The reply may have arrived just before the connection ended.
		select {
		case res, ok := <-ch:
			return decodeResult(method, res, ok, result)
		default:
			return fmt.Errorf("%s: %w", method, ErrClosed)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeResult(method string, res rpcResult, ok bool, result any) error {
	if !ok {
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	if res.err != nil {
		return res.err
	}
	if result == nil || len(res.result) == 0 || string(res.result) == "null" {
		return nil
	}
	if err := json.Unmarshal(res.result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Notify sends a notification.
func (c *Client) Notify(method string, params any) error {
	return c.send(jsonrpcNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// Initialize performs the initialize handshake.
func (c *Client) Initialize(ctx context.Context, rootURI protocol.DocumentUri) error {
	params := map[string]any{
		"processId":  os.Getpid(),
		"rootUri":    rootURI,
		"clientInfo": map[string]any{"name": "furry-actions"},
		"capabilities": map[string]any{
			"workspace": map[string]any{
				"applyEdit":      true,
				"workspaceEdit":  map[string]any{"documentChanges": true},
				"executeCommand": map[string]any{},
			},
			"textDocument": map[string]any{
				"codeAction": map[string]any{
					"codeActionLiteralSupport": map[string]any{
						"codeActionKind": map[string]any{
							"valueSet": []string{
								protocol.CodeActionKindEmpty,
								protocol.CodeActionKindQuickFix,
								protocol.CodeActionKindRefactor,
								protocol.CodeActionKindRefactorExtract,
								protocol.CodeActionKindRefactorInline,
								protocol.CodeActionKindRefactorRewrite,
								protocol.CodeActionKindSource,
								protocol.CodeActionKindSourceOrganizeImports,
							},
						},
					},
					"isPreferredSupport": true,
					"disabledSupport":    true,
				},
				"publishDiagnostics": map[string]any{},
			},
		},
	}
	if err := c.Call(ctx, protocol.MethodInitialize, params, nil); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return c.Notify(protocol.MethodInitialized, map[string]any{})
}

// DidOpen tells the server a document is open.
func (c *Client) DidOpen(item protocol.TextDocumentItem) error {
	return c.Notify(protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{TextDocument: item})
}

// DidChange sends the full new text of a document.
func (c *Client) DidChange(uri protocol.DocumentUri, version int, text string) error {
	return c.Notify(protocol.MethodTextDocumentDidChange, map[string]any{
		"textDocument": map[string]any{
			"uri":     uri,
			"version": version,
		},
		"contentChanges": []map[string]any{
			{"text": text},
		},
	})
}

// CodeActions asks for the actions over params.Range. Bare commands in the
// reply become actions carrying only that command.
func (c *Client) CodeActions(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	var raw []json.RawMessage
	if err := c.Call(ctx, protocol.MethodTextDocumentCodeAction, params, &raw); err != nil {
		return nil, err
	}
	out := make([]protocol.CodeAction, 0, len(raw))
	for _, item := range raw {
		action, err := decodeCodeAction(item)
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, nil
}

func decodeCodeAction(raw json.RawMessage) (protocol.CodeAction, error) {
	var probe struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return protocol.CodeAction{}, fmt.Errorf("decode code action: %w", err)
	}
	if len(probe.Command) > 0 && probe.Command[0] == '"' {
		var cmd protocol.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return protocol.CodeAction{}, fmt.Errorf("decode command: %w", err)
		}
		return protocol.CodeAction{Title: cmd.Title, Command: &cmd}, nil
	}
	var action protocol.CodeAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return protocol.CodeAction{}, fmt.Errorf("decode code action: %w", err)
	}
	return action, nil
}

// Shutdown asks the server to exit and closes the connection.
func (c *Client) Shutdown(ctx context.Context) error {
	if !c.Running() {
		return c.Close()
	}
	if err := c.Call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		c.logger.Debug("lsp shutdown failed", "err", err)
	}
	_ = c.Notify(protocol.MethodExit, nil)
	return c.Close()
}

// Close drops the connection and waits for the server process.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.in.Close()
	c.writeMu.Unlock()
	if c.outRaw != nil {
		_ = c.outRaw.Close()
	}
	if c.cmd != nil {
		return c.cmd.Wait()
	}
	return nil
}
