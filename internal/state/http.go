package state

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// HTTPConfig configures an HTTPStore against a remote-state endpoint
// compatible with the widely-deployed Terraform/GitLab wire protocol
// (spec.md §4.3).
type HTTPConfig struct {
	Address       string
	LockAddress   string
	UnlockAddress string

	UpdateMethod string // default POST
	LockMethod   string // default LOCK
	UnlockMethod string // default UNLOCK

	Username string
	Password string
	Headers  map[string]string

	ClientCertFile string // PEM-encoded client certificate contents, not a path
	ClientKeyFile  string // PEM-encoded client private key contents, not a path
	CAFile         string // PEM-encoded CA certificate contents, not a path

	SkipCertVerification bool

	Timeout time.Duration // default 60s
}

// lockInfo is the JSON body exchanged on lock/unlock, matching spec.md §4.3's
// `{ID, Operation, Who, Version, Created}`.
type lockInfo struct {
	ID        string    `json:"ID"`
	Operation string    `json:"Operation"`
	Who       string    `json:"Who"`
	Version   string    `json:"Version"`
	Created   time.Time `json:"Created"`
}

// HTTPStore is the remote state backend of spec.md §4.3.
type HTTPStore struct {
	cfg    HTTPConfig
	client *retryablehttp.Client
}

const defaultHTTPTimeout = 60 * time.Second

// NewHTTPStore builds an HTTPStore, configuring TLS client auth when a
// client certificate is supplied.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.UpdateMethod == "" {
		cfg.UpdateMethod = http.MethodPost
	}
	if cfg.LockMethod == "" {
		cfg.LockMethod = "LOCK"
	}
	if cfg.UnlockMethod == "" {
		cfg.UnlockMethod = "UNLOCK"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: cfg.SkipCertVerification} //nolint:gosec // G402: operator opt-in via skip_cert_verification
	if cfg.ClientCertFile != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.ClientCertFile), []byte(cfg.ClientKeyFile))
		if err != nil {
			return nil, &domain.ConfigError{Path: "state.client_certificate_pem", Reason: err.Error()}
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if cfg.CAFile != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.CAFile)) {
			return nil, &domain.ConfigError{Path: "state.client_ca_certificate_pem", Reason: "no certificates found in CA PEM"}
		}
		tlsConfig.RootCAs = pool
	}

	transport := &http.Transport{TLSClientConfig: tlsConfig}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	client.HTTPClient = &http.Client{Transport: transport, Timeout: cfg.Timeout}
	client.CheckRetry = retryablehttp.DefaultRetryPolicy

	return &HTTPStore{cfg: cfg, client: client}, nil
}

func (s *HTTPStore) newRequest(ctx context.Context, method, url string, body []byte) (*retryablehttp.Request, error) {
	var reader io.ReadSeeker
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Read fetches the document via the configured GET on Address. A 404 is
// treated as "no state yet" and returns NewDocument().
func (s *HTTPStore) Read(ctx context.Context) (*Document, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.cfg.Address, nil)
	if err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return NewDocument(), nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: err.Error()}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &domain.StateIOError{Op: "read", Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, data)}
	}
	if len(data) == 0 {
		return NewDocument(), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: fmt.Sprintf("decode: %v", err)}
	}
	return &doc, nil
}

// Write replaces the document via the configured update method on Address.
// Invariant: the remote endpoint is required to apply this atomically; this
// store sends the whole document in one request (which the retrying client
// may resend on a connection error or 5xx response) and does not attempt
// client-side read-modify-write reconciliation.
func (s *HTTPStore) Write(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}

	req, err := s.newRequest(ctx, s.cfg.UpdateMethod, s.cfg.Address, data)
	if err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return &domain.StateIOError{Op: "write", Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body)}
	}
	return nil
}

// Lock acquires the remote lock via the configured lock method on
// LockAddress. A 423 or 409 response indicates a conflict and surfaces the
// current holder as domain.StateLockedError.
func (s *HTTPStore) Lock(ctx context.Context, who string) (string, error) {
	info := lockInfo{
		ID:      fmt.Sprintf("%s-%d", who, time.Now().UnixNano()),
		Who:     who,
		Version: "4",
		Created: time.Now().UTC(),
	}
	body, err := json.Marshal(info)
	if err != nil {
		return "", &domain.StateIOError{Op: "lock", Reason: err.Error()}
	}

	req, err := s.newRequest(ctx, s.cfg.LockMethod, s.cfg.LockAddress, body)
	if err != nil {
		return "", &domain.StateIOError{Op: "lock", Reason: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &domain.StateIOError{Op: "lock", Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusLocked || resp.StatusCode == http.StatusConflict {
		var held lockInfo
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &held); err != nil || held.Who == "" {
			return "", &domain.StateLockedError{Holder: "unknown", Created: time.Now()}
		}
		return "", &domain.StateLockedError{Holder: held.Who, Created: held.Created}
	}
	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return "", &domain.StateIOError{Op: "lock", Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, data)}
	}

	return info.ID, nil
}

// Unlock releases a lock previously acquired with Lock, presenting the same
// lock ID. Called from a best-effort defer on every reconciler exit path,
// including cancellation, so failures here are logged but not escalated by
// callers that are already unwinding.
func (s *HTTPStore) Unlock(ctx context.Context, lockID string) error {
	info := lockInfo{ID: lockID}
	body, err := json.Marshal(info)
	if err != nil {
		return &domain.StateIOError{Op: "unlock", Reason: err.Error()}
	}

	req, err := s.newRequest(ctx, s.cfg.UnlockMethod, s.cfg.UnlockAddress, body)
	if err != nil {
		return &domain.StateIOError{Op: "unlock", Reason: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "state unlock request failed", "error", err)
		return &domain.StateIOError{Op: "unlock", Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return &domain.StateIOError{Op: "unlock", Reason: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, data)}
	}
	return nil
}
