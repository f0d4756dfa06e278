// Package audit implements the append-only, hash-chained JSONL session
// log and its read-only consumers (verify, report, replay). Tampering
// is detectable, not preventable.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimestampFormat is the layout used in audit record timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Log is an append-only JSONL log. Each record carries prev_hash (the
// previous record's record_hash, null for the first) and record_hash
// (SHA-256 of the record's canonical JSON without the record_hash
// field). Canonical means keys sorted, which json.Marshal guarantees
// for maps. Single writer; appends are serialized by the mutex because
// the verifier depends on strict sequential ordering.
type Log struct {
	path     string
	file     *os.File
	prevHash *string
	mu       sync.Mutex
}

// Open opens (or creates) a log file for appending. If the file exists
// its last line is read to recover the chain tail.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	var prevHash *string
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			var record map[string]any
			if err := json.Unmarshal(last, &record); err != nil {
				return nil, fmt.Errorf("audit: parse chain tail: %w", err)
			}
			if h, ok := record["record_hash"].(string); ok {
				prevHash = &h
			}
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{path: path, file: file, prevHash: prevHash}, nil
}

// Record appends one event. The payload must already be built by a
// safe payload builder — this layer does not inspect or scrub it.
func (l *Log) Record(session, event string, payload map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := map[string]any{
		"timestamp": time.Now().UTC().Format(TimestampFormat),
		"session":   session,
		"event":     event,
		"payload":   payload,
		"prev_hash": l.prevHash,
	}
	hash, err := HashRecord(record)
	if err != nil {
		return err
	}
	record["record_hash"] = hash

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = &hash
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashRecord returns the hex SHA-256 of the record's canonical JSON.
// The record must not contain a record_hash field; callers strip it.
func HashRecord(record map[string]any) (string, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("audit: canonicalize record: %w", err)
	}
	h := sha256.Sum256(encoded)
	return hex.EncodeToString(h[:]), nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}
