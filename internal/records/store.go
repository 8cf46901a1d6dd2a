package records

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"jigpipe/internal/logging"
	"jigpipe/internal/media"
)

// Record is one row of the append-only outcome log.
type Record struct {
	ID         string
	Resolution media.Resolution
	Library    media.Library
}

// Store serialises record lines through a single writer goroutine. Producers
// never block: the submission queue is unbounded, and sends after Close are
// dropped with a warning.
type Store struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Record
	closed  bool
	done    chan struct{}

	file   *os.File
	writer *csv.Writer
	logger *slog.Logger
}

// Open appends to the CSV at path, creating it (and parent directories)
// when absent.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create record directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record file %s: %w", path, err)
	}

	s := &Store{
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger.With(logging.String(logging.FieldComponent, "records")),
		done:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s, nil
}

// Append enqueues one record line. Unrecordable resolutions are rejected
// here so no caller can leak a TransportError into the log.
func (s *Store) Append(rec Record) {
	if !rec.Resolution.Recordable() {
		s.logger.Warn("dropping unrecordable resolution",
			logging.String(logging.FieldMediaID, rec.ID),
			logging.String(logging.FieldResolution, string(rec.Resolution)))
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("record store closed, discarding record",
			logging.String(logging.FieldMediaID, rec.ID))
		return
	}
	s.pending = append(s.pending, rec)
	s.cond.Signal()
	s.mu.Unlock()
}

// Close drains the queue, flushes the file, and returns once the writer
// goroutine has stopped.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()

	<-s.done
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		_ = s.file.Close()
		return fmt.Errorf("flush records: %w", err)
	}
	return s.file.Close()
}

func (s *Store) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		for _, rec := range batch {
			if err := s.writer.Write([]string{rec.ID, string(rec.Resolution), string(rec.Library)}); err != nil {
				// Bookkeeping failures must not abort the pipeline.
				s.logger.Warn("failed to serialise record",
					logging.String(logging.FieldMediaID, rec.ID),
					logging.Error(err))
				continue
			}
		}
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			s.logger.Warn("failed to flush records", logging.Error(err))
		}

		if closed && len(batch) == 0 {
			return
		}
		if closed {
			// One more pass in case a producer raced Close.
			s.mu.Lock()
			empty := len(s.pending) == 0
			s.mu.Unlock()
			if empty {
				return
			}
		}
	}
}
