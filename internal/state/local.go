package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"golang.org/x/sys/unix"
)

// LocalStore is the local-file state backend of spec.md §4.3: a JSON
// document at `${root}/.logcraft/state.json`, guarded by an advisory
// OS-level lock on a sibling `.lock` file. apply/destroy take an exclusive
// lock through Lock for the whole mutating operation; Read takes no lock,
// shared or otherwise.
type LocalStore struct {
	stateFile string
	lockFile  string

	mu      sync.Mutex
	lockFD  *os.File
	who     string
	created time.Time
}

// NewLocalStore returns a LocalStore backed by stateFilePath (spec.md §4.3
// default `${root}/.logcraft/state.json`), creating its parent directory if
// it does not yet exist. The lock lives alongside it as a sibling `.lock`
// file.
func NewLocalStore(stateFilePath string) (*LocalStore, error) {
	dir := filepath.Dir(stateFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StateIOError{Op: "init", Reason: err.Error()}
	}
	return &LocalStore{
		stateFile: stateFilePath,
		lockFile:  filepath.Join(dir, ".lock"),
	}, nil
}

// Lock acquires an exclusive advisory lock on the sibling `.lock` file.
// The flock is non-blocking (LOCK_NB): if another holder has it, Lock fails
// at once with domain.StateLockedError instead of waiting. ctx is checked
// only before the attempt.
func (s *LocalStore) Lock(ctx context.Context, who string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.lockFile, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return "", &domain.StateIOError{Op: "lock", Reason: err.Error()}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			holder := s.currentHolder()
			return "", &domain.StateLockedError{Holder: holder, Created: time.Now()}
		}
		return "", &domain.StateIOError{Op: "lock", Reason: err.Error()}
	}

	s.lockFD = f
	s.who = who
	s.created = time.Now()
	id := fmt.Sprintf("%s@%d", who, s.created.UnixNano())

	if err := os.WriteFile(s.lockFile, []byte(who+"\n"+s.created.Format(time.RFC3339Nano)), 0o644); err != nil {
		// Best-effort metadata write; holding the flock is what matters.
		_ = err
	}

	return id, nil
}

func (s *LocalStore) currentHolder() string {
	data, err := os.ReadFile(s.lockFile)
	if err != nil || len(data) == 0 {
		return "unknown"
	}
	return string(data)
}

// Unlock releases a previously acquired lock. Safe to call when no lock is
// held (the best-effort unlock-on-cancellation path of spec.md §4.7 may race
// against an already-completed unlock).
func (s *LocalStore) Unlock(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockFD == nil {
		return nil
	}
	err := unix.Flock(int(s.lockFD.Fd()), unix.LOCK_UN)
	_ = s.lockFD.Close()
	s.lockFD = nil
	if err != nil {
		return &domain.StateIOError{Op: "unlock", Reason: err.Error()}
	}
	return nil
}

// Read loads the current document, returning a fresh NewDocument() if the
// state file does not exist yet.
func (s *LocalStore) Read(_ context.Context) (*Document, error) {
	data, err := os.ReadFile(s.stateFile)
	if errors.Is(err, os.ErrNotExist) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: err.Error()}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &domain.StateIOError{Op: "read", Reason: fmt.Sprintf("decode: %v", err)}
	}
	return &doc, nil
}

// Write atomically replaces the state file via a temp-file-then-rename,
// so a crash mid-write never leaves a torn document on disk (spec.md §4.3
// invariant: "a successful write replaces the document atomically").
func (s *LocalStore) Write(_ context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.stateFile), "state-*.json.tmp")
	if err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}

	if err := os.Rename(tmpName, s.stateFile); err != nil {
		return &domain.StateIOError{Op: "write", Reason: err.Error()}
	}
	return nil
}
