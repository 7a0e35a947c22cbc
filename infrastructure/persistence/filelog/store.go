// Package filelog implements the durable log backend: one append-only JSONL
// file per user, one self-describing record per line, no expiry.
package filelog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"memoryd/domain/memory"
	"memoryd/infrastructure/persistence/abstractions"
	"memoryd/pkg/errors"
)

// records longer than this are treated as malformed: skipped and counted on
// load, never fatal to the read
const maxRecordSize = 1024 * 1024

// Store is the file-backed implementation of abstractions.Store
type Store struct {
	dir    string
	logger *zap.Logger

	// per-user locks so concurrent appends and rewrites for the same user
	// never interleave inside this process; cross-process appends rely on
	// O_APPEND single-write atomicity
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a file-backed store rooted at dir
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewUnavailableError("file", err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

// Name identifies the backend in logs and errors
func (s *Store) Name() string { return "file" }

// Append writes one entry as a single record at the end of the user's log
func (s *Store) Append(ctx context.Context, entry *memory.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal entry")
	}

	lock := s.userLock(entry.UserID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(s.path(entry.UserID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewUnavailableError(s.Name(), err)
	}
	defer f.Close()

	// one Write call per record keeps the record boundary intact under
	// concurrent O_APPEND writers
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.NewUnavailableError(s.Name(), err)
	}
	return nil
}

// Load reads the full log for a user, skipping malformed records. The skip
// count is returned so callers can surface it as an integrity warning.
func (s *Store) Load(ctx context.Context, userID string) ([]*memory.Entry, int, error) {
	f, err := os.Open(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*memory.Entry{}, 0, nil
		}
		return nil, 0, errors.NewUnavailableError(s.Name(), err)
	}
	defer f.Close()

	entries := []*memory.Entry{}
	skipped := 0

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, tooLong, err := readRecord(reader)
		if err != nil && err != io.EOF {
			return nil, skipped, errors.NewUnavailableError(s.Name(), err)
		}

		if tooLong {
			skipped++
		} else if record := strings.TrimSpace(string(line)); record != "" {
			var entry memory.Entry
			if json.Unmarshal([]byte(record), &entry) != nil {
				skipped++
			} else {
				entries = append(entries, &entry)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if skipped > 0 {
		s.logger.Warn("skipped malformed memory records",
			zap.String("user_id", userID),
			zap.Int("skipped", skipped),
		)
	}
	return entries, skipped, nil
}

// Delete rewrites the user's log keeping only entries the keep function
// accepts. Malformed records are dropped by the rewrite but are not counted
// as removed entries.
func (s *Store) Delete(ctx context.Context, userID string, keep abstractions.KeepFunc) (int, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entries, _, err := s.Load(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	survivors := make([]*memory.Entry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			survivors = append(survivors, e)
		}
	}
	removed := len(entries) - len(survivors)
	if removed == 0 {
		return 0, nil
	}

	if len(survivors) == 0 {
		if err := os.Remove(s.path(userID)); err != nil && !os.IsNotExist(err) {
			return 0, errors.NewUnavailableError(s.Name(), err)
		}
		return removed, nil
	}

	// write survivors to a temp file, then rename over the log so readers
	// never observe a half-rewritten file
	tmp, err := os.CreateTemp(s.dir, "rewrite-*")
	if err != nil {
		return 0, errors.NewUnavailableError(s.Name(), err)
	}
	w := bufio.NewWriter(tmp)
	for _, e := range survivors {
		data, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, errors.Wrap(err, "marshal entry")
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return 0, errors.NewUnavailableError(s.Name(), err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, errors.NewUnavailableError(s.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.NewUnavailableError(s.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path(userID)); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.NewUnavailableError(s.Name(), err)
	}
	return removed, nil
}

// Ping verifies the log directory is usable
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return errors.NewUnavailableError(s.Name(), err)
	}
	if !info.IsDir() {
		return errors.NewUnavailableError(s.Name(), fmt.Errorf("%s is not a directory", s.dir))
	}
	return nil
}

// readRecord reads one newline-terminated record. A record exceeding
// maxRecordSize is consumed and discarded, reported via tooLong, so a single
// oversized line can never make the rest of the log unreadable.
func readRecord(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > maxRecordSize {
				tooLong = true
				line = nil
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, tooLong, err
	}
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, sanitizeUser(userID)+".jsonl")
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// sanitizeUser maps a user ID to a safe file name component
func sanitizeUser(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
