// Package replay persists every routed game event as one gzipped JSON line
// per event, frames stored verbatim so a replay emits byte-identical wire
// traffic.
package replay

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/janryu/janryu/common/log"
)

// Broadcast mirrors the engine's routing sentinel so logs stay readable
// without importing the engine.
const Broadcast = -1

var ErrFinalized = errors.New("replay log already finalized")

// Record is one line of a game log.
type Record struct {
	Seq    int             `json:"seq"`
	Target int             `json:"target"`
	Frame  json.RawMessage `json:"frame"`
}

// Sink owns the replay directory. Appends for one game always come from
// that game's executor; the mutex only guards the shared map and directory.
type Sink struct {
	dir string

	mu        sync.Mutex
	open      map[string]*gameLog
	finalized map[string]struct{}
}

type gameLog struct {
	f   *os.File
	zw  *gzip.Writer
	seq int
}

// NewSink creates dir owner-only if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("replay dir %s: %w", dir, err)
	}
	return &Sink{
		dir:       dir,
		open:      make(map[string]*gameLog),
		finalized: make(map[string]struct{}),
	}, nil
}

// Path returns where gameID's log lives.
func (s *Sink) Path(gameID string) string {
	return filepath.Join(s.dir, gameID+".jsonl.gz")
}

// Append writes one routed frame to gameID's log, opening it on first use.
func (s *Sink) Append(gameID string, target int, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.finalized[gameID]; done {
		return ErrFinalized
	}

	gl, ok := s.open[gameID]
	if !ok {
		f, err := os.OpenFile(s.Path(gameID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("open replay log %s: %w", gameID, err)
		}
		gl = &gameLog{f: f, zw: gzip.NewWriter(f)}
		s.open[gameID] = gl
	}

	line, err := json.Marshal(Record{Seq: gl.seq, Target: target, Frame: frame})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := gl.zw.Write(line); err != nil {
		return fmt.Errorf("write replay log %s: %w", gameID, err)
	}
	gl.seq++
	return nil
}

// Finalize flushes and closes gameID's log. Later appends for the same
// game fail rather than clobber the finished file.
func (s *Sink) Finalize(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked(gameID)
}

func (s *Sink) finalizeLocked(gameID string) error {
	gl, ok := s.open[gameID]
	if !ok {
		return nil
	}
	delete(s.open, gameID)
	s.finalized[gameID] = struct{}{}

	if err := gl.zw.Close(); err != nil {
		gl.f.Close()
		return fmt.Errorf("finalize replay log %s: %w", gameID, err)
	}
	return gl.f.Close()
}

// Close finalizes every open log, for shutdown.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gameID := range s.open {
		if err := s.finalizeLocked(gameID); err != nil {
			log.Error("closing replay log %s: %v", gameID, err)
		}
	}
}

// ReadLog loads a finalized log back into records.
func ReadLog(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("replay log %s: %w", path, err)
	}
	defer zr.Close()

	var records []Record
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("replay log %s line %d: %w", path, len(records), err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
