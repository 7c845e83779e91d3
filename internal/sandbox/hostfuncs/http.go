// Package hostfuncs implements the single host capability the sandbox grants
// to plugins: a synchronous outbound-http request (spec §4.1, §9).
package hostfuncs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/logcraftio/logcraft-cli/internal/sandbox/wire"
	"github.com/tetratelabs/wazero/api"
)

// BuildInfo identifies the host binary in the User-Agent sent on behalf of
// plugins.
type BuildInfo struct {
	Version  string
	Platform string
}

// dnsPinningTransport resolves DNS once and connects to the first resolved
// address, so the name cannot be re-resolved to a different address between
// lookup and connect. The address itself is not checked against any
// allow- or deny-list.
type dnsPinningTransport struct {
	base *http.Transport
}

func (t *dnsPinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()
	ips, err := net.DefaultResolver.LookupIPAddr(req.Context(), hostname)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("dns resolution failed for %s: %w", hostname, err)
	}
	resolved := ips[0].String()
	port := portOf(req.URL)

	pinned := t.base.Clone()
	pinned.DialContext = func(dialCtx context.Context, network, _ string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		return dialer.DialContext(dialCtx, network, net.JoinHostPort(resolved, port))
	}
	if req.URL.Scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}
	return pinned.RoundTrip(req)
}

func portOf(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if u.Scheme == "https" {
		return "443"
	}
	return "80"
}

const maxResponseBodyBytes = 10 * 1024 * 1024

// HTTPRequest is the host function bound to the guest-visible symbol
// "outbound_http". It reads an HTTPRequestWire from guest memory, performs
// the request, and writes back an HTTPResponseWire.
func HTTPRequest(ctx context.Context, mod api.Module, stack []uint64, info BuildInfo) {
	ptr, length := wire.UnpackPtrLen(stack[0])

	reqBytes, ok := mod.Memory().Read(ptr, length)
	if !ok {
		stack[0] = writeResponse(ctx, mod, wire.HTTPResponseWire{
			Error: &wire.ErrorDetail{Message: "failed to read request from guest memory", Type: "internal"},
		})
		return
	}

	var request wire.HTTPRequestWire
	if err := json.Unmarshal(reqBytes, &request); err != nil {
		stack[0] = writeResponse(ctx, mod, wire.HTTPResponseWire{
			Error: &wire.ErrorDetail{Message: fmt.Sprintf("invalid request: %v", err), Type: "internal"},
		})
		return
	}

	reqCtx, cancel := contextFromWire(ctx, request.Context)
	defer cancel()

	response := do(reqCtx, request, info)
	stack[0] = writeResponse(ctx, mod, response)
}

func contextFromWire(parent context.Context, w wire.ContextWire) (context.Context, context.CancelFunc) {
	if w.Cancelled {
		c, cancel := context.WithCancel(parent)
		cancel()
		return c, cancel
	}
	if w.Deadline != nil && !w.Deadline.IsZero() {
		return context.WithDeadline(parent, *w.Deadline)
	}
	if w.TimeoutMs > 0 {
		return context.WithTimeout(parent, time.Duration(w.TimeoutMs)*time.Millisecond)
	}
	return context.WithCancel(parent)
}

func do(ctx context.Context, request wire.HTTPRequestWire, info BuildInfo) wire.HTTPResponseWire {
	var body io.Reader
	if request.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return wire.HTTPResponseWire{Error: &wire.ErrorDetail{Message: fmt.Sprintf("bad body encoding: %v", err), Type: "config"}}
		}
		body = bytes.NewReader(decoded)
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, request.URL, body)
	if err != nil {
		return wire.HTTPResponseWire{Error: &wire.ErrorDetail{Message: err.Error(), Type: "config"}}
	}
	req.Header.Set("User-Agent", fmt.Sprintf("logcraft-cli/%s (%s)", info.Version, info.Platform))
	for k, vs := range request.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := &http.Client{
		Transport: &dnsPinningTransport{base: &http.Transport{
			ForceAttemptHTTP2:     true,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("sandbox outbound http failed", "url", request.URL, "error", err)
		return wire.HTTPResponseWire{Error: &wire.ErrorDetail{Message: err.Error(), Type: "network"}}
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes+1)
	bodyBytes, err := io.ReadAll(limited)
	if err != nil {
		return wire.HTTPResponseWire{Error: &wire.ErrorDetail{Message: err.Error(), Type: "network"}}
	}
	truncated := false
	if len(bodyBytes) > maxResponseBodyBytes {
		bodyBytes = bodyBytes[:maxResponseBodyBytes]
		truncated = true
	}

	headers := make(map[string][]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[k] = v
	}

	var encoded string
	if len(bodyBytes) > 0 {
		encoded = base64.StdEncoding.EncodeToString(bodyBytes)
	}

	return wire.HTTPResponseWire{
		StatusCode:    resp.StatusCode,
		Headers:       headers,
		Body:          encoded,
		BodyTruncated: truncated,
	}
}

func writeResponse(ctx context.Context, mod api.Module, response wire.HTTPResponseWire) uint64 {
	data, err := json.Marshal(response)
	if err != nil {
		data, _ = json.Marshal(wire.HTTPResponseWire{Error: &wire.ErrorDetail{Message: "failed to marshal response", Type: "internal"}})
	}

	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		slog.ErrorContext(ctx, "sandbox: guest does not export allocate()")
		return 0
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 {
		slog.ErrorContext(ctx, "sandbox: guest allocate() failed", "error", err)
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if !mod.Memory().Write(ptr, data) {
		return 0
	}
	return wire.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: bounded by maxResponseBodyBytes
}
