// Package logquery reads back the prediction records persisted by the local sink.
package logquery

import (
	"errors"
	"fmt"

	"github.com/tinytelemetry/inferd/internal/journal"
	"github.com/tinytelemetry/inferd/internal/model"
)

// MessageNotFound is reported when the local log file does not exist yet. It is
// returned both before the first prediction and for a misconfigured path.
const MessageNotFound = "Log file not found."

// Listing is the result of a log query.
type Listing struct {
	// Stored is false when the destination does not persist records.
	Stored  bool
	Lines   []string
	Message string
}

// LineReader reads persisted records in arrival order.
type LineReader interface {
	Lines() ([]string, error)
	Path() string
}

// Service lists persisted prediction records.
type Service struct {
	dest   model.Destination
	reader LineReader
}

// NewService creates a query service. reader may be nil for non-local destinations.
func NewService(dest model.Destination, reader LineReader) *Service {
	return &Service{dest: dest, reader: reader}
}

// List returns every record, oldest first.
func (s *Service) List() (Listing, error) {
	if !s.dest.IsLocal() || s.reader == nil {
		return Listing{
			Message: fmt.Sprintf("Logs are only available when the log destination is 'local' (current: %s).", s.dest),
		}, nil
	}

	lines, err := s.reader.Lines()
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			return Listing{Stored: true, Lines: []string{}, Message: MessageNotFound}, nil
		}
		return Listing{}, &model.LogReadError{Path: s.reader.Path(), Err: err}
	}
	return Listing{Stored: true, Lines: lines}, nil
}
