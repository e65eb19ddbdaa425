package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
	"github.com/peekapi-dev/telemetry-go/pkg/logger"
)

// spoolFileMode restricts the spool file to owner read/write: it may
// contain response bodies and request paths the host considers sensitive.
const spoolFileMode = 0o600

// spool is the on-disk fallback for batches that could not be delivered.
// Writes use the same file descriptor for the size check and the append to
// close the TOCTOU window between them; this is what requires os.OpenFile
// plus Fstat rather than a plain os.Stat followed by a separate open.
type spool struct {
	path          string
	recoveryPath  string
	maxBytes      int64
	hasRecovering bool
}

// defaultSpoolPath derives a deterministic, non-colliding path for the given
// endpoint: an 8-hex-char FNV-1a hash of the endpoint string keeps distinct
// clients' spool files apart without pulling in a cryptographic hash
// package for a non-adversarial, collision-tolerant use (see DESIGN.md).
func defaultSpoolPath(endpoint string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(endpoint))
	return filepath.Join(os.TempDir(), fmt.Sprintf("telemetry-client-%08x.jsonl", h.Sum32()))
}

func newSpool(path string, maxBytes int64) *spool {
	return &spool{
		path:     path,
		maxBytes: maxBytes,
	}
}

func (s *spool) recoveringPath() string {
	return s.path + ".recovering"
}

// Write appends batch as one JSON line, skipping the write entirely if the
// file is already at or over maxBytes. Errors are returned, not swallowed,
// so callers can choose sync-and-log versus async-and-log semantics.
func (s *spool) Write(batch []RequestEvent) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, spoolFileMode)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSpool, "failed to open spool file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSpool, "failed to stat spool file")
	}
	if s.maxBytes > 0 && info.Size() >= s.maxBytes {
		return apperror.New(apperror.CodeSpool, "spool file at capacity, dropping batch")
	}

	line, err := json.Marshal(batch)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSpool, "failed to encode batch")
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return apperror.Wrap(err, apperror.CodeSpool, "failed to append batch to spool file")
	}
	return nil
}

// WriteAsync runs Write in its own goroutine, logging rather than
// propagating failure — the flush engine has already decided the batch is
// lost on error and must not block waiting on disk I/O.
func (s *spool) WriteAsync(batch []RequestEvent) {
	go func() {
		if err := s.Write(batch); err != nil {
			logger.Warn("ingest: failed to spool batch", "error", err)
		}
	}()
}

// Recover loads any previously-spooled events into dst, preferring a
// leftover .recovering file (from a crash mid-recovery) over the primary
// spool file. On success from the primary file, it renames the file to
// .recovering rather than deleting it immediately, so a crash before the
// first successful flush of this process does not lose the events a second
// time. A corrupt source file is deleted outright since it carries no
// recoverable events.
func (s *spool) Recover(buf *buffer) {
	recoveringPath := s.recoveringPath()

	if _, err := os.Stat(recoveringPath); err == nil {
		s.loadInto(buf, recoveringPath)
		s.recoveryPath = recoveringPath
		s.hasRecovering = true
		return
	}

	if _, err := os.Stat(s.path); err != nil {
		return
	}

	if !s.loadInto(buf, s.path) {
		_ = os.Remove(s.path)
		return
	}

	if err := os.Rename(s.path, recoveringPath); err != nil {
		logger.Warn("ingest: failed to rename spool file for recovery", "error", err)
		return
	}
	s.recoveryPath = recoveringPath
	s.hasRecovering = true
}

// loadInto decodes each JSONL line of path as a batch and appends its
// events into buf, skipping corrupt lines. It reports whether at least one
// line decoded as a batch; an unreadable file or one holding only corrupt
// lines reports false.
func (s *spool) loadInto(buf *buffer, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	decoded := false
	for scanner.Scan() {
		var batch []RequestEvent
		if err := json.Unmarshal(scanner.Bytes(), &batch); err != nil {
			continue
		}
		decoded = true
		for _, ev := range batch {
			buf.Append(ev)
		}
	}
	return decoded
}

// CleanupRecovery removes the .recovering file left over from startup, once
// the first flush of this process has succeeded.
func (s *spool) CleanupRecovery() {
	if !s.hasRecovering {
		return
	}
	if err := os.Remove(s.recoveryPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("ingest: failed to remove recovery file", "error", err)
	}
	s.hasRecovering = false
	s.recoveryPath = ""
}

// Size returns the current size in bytes of the primary spool file, or 0 if
// it does not exist. Used only for metrics.
func (s *spool) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
