// Package file implements the reference on-disk Storage backend described
// in SPEC_FULL.md §6: a directory holding state.json, log, and
// snapshot.json. It deliberately does NOT reuse the teacher's
// (jmsadair/raft) create-temp-then-rename technique for every file: the
// specification calls for a different technique per file (state.json is
// rewritten in place via seek-to-0/truncate-to-0/write/flush; log is
// append-only with whole-file rewrite only on truncation), so this package
// follows the specification's wording rather than the teacher's atomic-
// rename idiom. Where the teacher's idiom still fits — wrapping failures
// with internal/errors — it is kept. Durable writes are not logged.
package file

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sdesai/raft"
	raerrors "github.com/sdesai/raft/internal/errors"
	"github.com/sdesai/raft/internal/logger"
)

const (
	stateFileName    = "state.json"
	logFileName      = "log"
	snapshotFileName = "snapshot.json"
)

type onDiskState struct {
	CurrentTerm raft.Term  `json:"current_term"`
	VotedFor    *raft.PeerId `json:"voted_for"`
}

type onDiskSnapshot[M any] struct {
	LastIncludedIndex raft.LogIndex `json:"last_included_index"`
	LastIncludedTerm  raft.Term     `json:"last_included_term"`
	Machine           M             `json:"machine"`
}

// Storage is a file-backed raft.Storage[C, M] matching SPEC_FULL.md §6's
// on-disk layout.
type Storage[C any, M any] struct {
	mu  sync.Mutex
	dir string

	stateFile *os.File
	logFile   *os.File

	state    onDiskState
	log      *raft.Log[C]
	snapshot raft.Snapshot[M]

	logger logger.Logger
}

// Open opens (creating if absent) a Storage rooted at dir, replaying
// state.json, log, and snapshot.json into memory.
func Open[C any, M any](dir string) (*Storage[C, M], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, raerrors.WrapErrorf(err, "file storage: creating directory %s", dir)
	}

	s := &Storage[C, M]{
		dir:    dir,
		log:    raft.NewLog[C](),
		logger: logger.NewNop(),
	}

	stateFile, err := os.OpenFile(filepath.Join(dir, stateFileName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, raerrors.WrapError(err, "file storage: opening state.json")
	}
	s.stateFile = stateFile
	if err := s.loadState(); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, raerrors.WrapError(err, "file storage: opening log")
	}
	s.logFile = logFile
	if err := s.loadLog(); err != nil {
		return nil, err
	}

	if err := s.loadSnapshot(); err != nil {
		return nil, err
	}

	return s, nil
}

// SetLogger overrides the default no-op logger.
func (s *Storage[C, M]) SetLogger(l logger.Logger) { s.logger = l }

func (s *Storage[C, M]) loadState() error {
	info, err := s.stateFile.Stat()
	if err != nil {
		return raerrors.WrapError(err, "file storage: stat state.json")
	}
	if info.Size() == 0 {
		return nil
	}
	if _, err := s.stateFile.Seek(0, 0); err != nil {
		return raerrors.WrapError(err, "file storage: seek state.json")
	}
	if err := json.NewDecoder(s.stateFile).Decode(&s.state); err != nil {
		return raerrors.WrapError(err, "file storage: parsing state.json")
	}
	return nil
}

// writeState rewrites state.json atomically in place: seek-to-0,
// truncate-to-0, write, flush. This is the technique the specification
// names explicitly for this file, distinct from the log's append-only
// technique below.
func (s *Storage[C, M]) writeState() error {
	if _, err := s.stateFile.Seek(0, 0); err != nil {
		return raerrors.WrapError(err, "file storage: seek state.json")
	}
	if err := s.stateFile.Truncate(0); err != nil {
		return raerrors.WrapError(err, "file storage: truncate state.json")
	}
	encoded, err := json.Marshal(s.state)
	if err != nil {
		return raerrors.WrapError(err, "file storage: marshal state.json")
	}
	if _, err := s.stateFile.Write(encoded); err != nil {
		return raerrors.WrapError(err, "file storage: write state.json")
	}
	return s.stateFile.Sync()
}

func (s *Storage[C, M]) loadLog() error {
	if _, err := s.logFile.Seek(0, 0); err != nil {
		return raerrors.WrapError(err, "file storage: seek log")
	}
	scanner := bufio.NewScanner(s.logFile)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry raft.LogEntry[C]
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return &raft.ParsingLogEntryError{LineNumber: lineNumber, Message: err.Error()}
		}
		s.log.Append(entry)
	}
	if err := scanner.Err(); err != nil {
		return raerrors.WrapError(err, "file storage: scanning log")
	}
	if _, err := s.logFile.Seek(0, 2); err != nil {
		return raerrors.WrapError(err, "file storage: seek log to end")
	}
	return nil
}

func (s *Storage[C, M]) loadSnapshot() error {
	path := filepath.Join(s.dir, snapshotFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return raerrors.WrapError(err, "file storage: reading snapshot.json")
	}
	if len(data) == 0 {
		return nil
	}
	var onDisk onDiskSnapshot[M]
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return raerrors.WrapError(err, "file storage: parsing snapshot.json")
	}
	s.snapshot = raft.NewSnapshot(onDisk.LastIncludedIndex, onDisk.LastIncludedTerm, onDisk.Machine)
	return nil
}

func (s *Storage[C, M]) writeSnapshot() error {
	onDisk := onDiskSnapshot[M]{
		LastIncludedIndex: s.snapshot.LastIncludedIndex,
		LastIncludedTerm:  s.snapshot.LastIncludedTerm,
		Machine:           s.snapshot.Machine,
	}
	encoded, err := json.Marshal(onDisk)
	if err != nil {
		return raerrors.WrapError(err, "file storage: marshal snapshot.json")
	}
	return os.WriteFile(filepath.Join(s.dir, snapshotFileName), encoded, 0o644)
}

// rewriteLog rebuilds the entire log file from the in-memory
// reconstruction, used only by TruncateLog (§6: "Truncation is whole-file
// rewrite from a buffered in-memory reconstruction").
func (s *Storage[C, M]) rewriteLog() error {
	if err := s.logFile.Close(); err != nil {
		return raerrors.WrapError(err, "file storage: closing log before rewrite")
	}
	path := filepath.Join(s.dir, logFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return raerrors.WrapError(err, "file storage: reopening log for rewrite")
	}
	writer := bufio.NewWriter(f)
	for _, entry := range s.log.Entries() {
		encoded, err := json.Marshal(entry)
		if err != nil {
			f.Close()
			return raerrors.WrapError(err, "file storage: marshal log entry during rewrite")
		}
		if _, err := writer.Write(encoded); err != nil {
			f.Close()
			return raerrors.WrapError(err, "file storage: write log entry during rewrite")
		}
		if err := writer.WriteByte('\n'); err != nil {
			f.Close()
			return raerrors.WrapError(err, "file storage: write newline during rewrite")
		}
	}
	if err := writer.Flush(); err != nil {
		f.Close()
		return raerrors.WrapError(err, "file storage: flush log rewrite")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return raerrors.WrapError(err, "file storage: sync log rewrite")
	}
	s.logFile = f
	return nil
}

func (s *Storage[C, M]) CurrentTerm() raft.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentTerm
}

func (s *Storage[C, M]) VotedFor() (raft.PeerId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.VotedFor == nil {
		return raft.PeerId(0), false
	}
	return *s.state.VotedFor, true
}

func (s *Storage[C, M]) SetCurrentTerm(term raft.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state.CurrentTerm = term
	if err := s.writeState(); err != nil {
		s.state = prev
		return err
	}
	return nil
}

func (s *Storage[C, M]) SetVotedFor(id raft.PeerId, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if ok {
		v := id
		s.state.VotedFor = &v
	} else {
		s.state.VotedFor = nil
	}
	if err := s.writeState(); err != nil {
		s.state = prev
		return err
	}
	return nil
}

func (s *Storage[C, M]) SetCurrentTermAndVotedFor(term raft.Term, id raft.PeerId, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state.CurrentTerm = term
	if ok {
		v := id
		s.state.VotedFor = &v
	} else {
		s.state.VotedFor = nil
	}
	if err := s.writeState(); err != nil {
		s.state = prev
		return err
	}
	return nil
}

func (s *Storage[C, M]) Log() *raft.Log[C] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log
}

func (s *Storage[C, M]) AppendLogEntry(entry raft.LogEntry[C]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	encoded, err := json.Marshal(entry)
	if err != nil {
		return raerrors.WrapError(err, "file storage: marshal log entry")
	}
	encoded = append(encoded, '\n')
	if _, err := s.logFile.Write(encoded); err != nil {
		return raerrors.WrapError(err, "file storage: append log entry")
	}
	if err := s.logFile.Sync(); err != nil {
		return raerrors.WrapError(err, "file storage: flush log append")
	}
	s.log.Append(entry)
	return nil
}

func (s *Storage[C, M]) TruncateLog(downTo raft.LogIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.log.Clone()
	s.log.TruncateFrom(downTo)
	if err := s.rewriteLog(); err != nil {
		s.log = saved
		return err
	}
	return nil
}

func (s *Storage[C, M]) Snapshot() raft.Snapshot[M] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Storage[C, M]) InstallSnapshot(snap raft.Snapshot[M]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot
	s.snapshot = snap
	if err := s.writeSnapshot(); err != nil {
		s.snapshot = prev
		return err
	}
	return nil
}

// Close releases the underlying file handles.
func (s *Storage[C, M]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stateFile.Close(); err != nil {
		return raerrors.WrapError(err, "file storage: closing state.json")
	}
	if err := s.logFile.Close(); err != nil {
		return raerrors.WrapError(err, "file storage: closing log")
	}
	return nil
}
