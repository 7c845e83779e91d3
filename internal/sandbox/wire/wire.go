// Package wire defines the JSON ABI exchanged between the host and a loaded
// plugin across the sandbox boundary. These types must stay stable since
// they form the plugin contract (spec §4.1, §9).
package wire

import (
	"fmt"
	"time"
)

// ContextWire carries the subset of context.Context that can cross the
// sandbox boundary: a deadline/timeout and cancellation state.
type ContextWire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Cancelled bool       `json:"cancelled,omitempty"`
}

// HTTPRequestWire is the request a plugin sends to the host's
// outbound-http capability.
type HTTPRequestWire struct {
	Context ContextWire         `json:"context"`
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    string              `json:"body,omitempty"` // base64
}

// HTTPResponseWire is the host's reply to an outbound-http request.
type HTTPResponseWire struct {
	StatusCode    int                 `json:"status_code"`
	Headers       map[string][]string `json:"headers,omitempty"`
	Body          string              `json:"body,omitempty"` // base64
	BodyTruncated bool                `json:"body_truncated,omitempty"`
	Error         *ErrorDetail        `json:"error,omitempty"`
}

// ErrorDetail is structured error information returned to a plugin.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"` // network, timeout, config, capability, internal
}

// Error implements the error interface for ErrorDetail.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" && e.Type != "internal" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return e.Message
}

// PackPtrLen packs a WASM32 pointer and length into a single uint64 result,
// matching the fixed allocate/deallocate ABI every plugin exports.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen reverses PackPtrLen.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)         //nolint:gosec // G115: WASM32 pointers are always 32-bit
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: WASM32 lengths are always 32-bit
	return ptr, length
}
