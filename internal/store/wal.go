package store

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
)

// WAL here is an append-only audit log, not a crash-recovery log: the
// store is never reconstructed from it on startup. It exists purely so
// an operator enabling --audit-log can reconstruct the sequence of
// mutations a node applied after the fact.

const (
	opPut     = "PUT"
	opDelete  = "DELETE"
	opReset   = "RESET_CONTEXT"
	opReplace = "REPLACE_SHARD"
	opMerge   = "MERGE"
)

type walEntry struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

// WAL is a simple append-only log backed by a single file. Each entry
// is a newline-delimited JSON object (NDJSON).
type WAL struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func newWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: f, path: path}, nil
}

// append serializes entry as JSON and fsync-writes it.
func (w *WAL) append(entry walEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if _, err := w.file.Write(data); err != nil {
		return err
	}
	return w.file.Sync()
}

// readAll scans the audit log from the beginning, for operators
// inspecting a node's mutation history. Never called by Store itself.
func (w *WAL) readAll() ([]walEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, 0); err != nil {
		return nil, err
	}

	var entries []walEntry
	scanner := bufio.NewScanner(w.file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e walEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (w *WAL) close() error {
	return w.file.Close()
}
