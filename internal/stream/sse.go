package stream

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single Server-Sent Event.
//
// Type is empty for the default event type. Data joins multiple data lines with "\n".
type Event struct {
	Type string
	Data string
}

// Scanner reads Server-Sent Events from an [io.Reader].
//
// Events end at a blank line. Comment lines (leading ":") and unknown fields are
// skipped. Unlike a browser, an event with a type but no data lines is still
// delivered, so a bare "event: done" terminates the run.
type Scanner struct {
	reader  *bufio.Reader
	current Event
	err     error
}

// NewScanner creates a scanner that reads events from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false at EOF or on a read error; call
// [Scanner.Err] to tell them apart.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = Event{}

	var (
		data      []string
		eventType string
		pending   bool
	)

	emit := func() bool {
		s.current = Event{Type: eventType, Data: strings.Join(data, "\n")}
		return true
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if err == io.EOF && pending {
				return emit()
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if pending {
				return emit()
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if ok {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			data = append(data, value)
			pending = true
		case "event":
			eventType = value
			pending = true
		}
	}
}

// Event returns the event parsed by the last successful [Scanner.Next].
func (s *Scanner) Event() Event { return s.current }

// Err returns the read error that stopped the scanner, or nil after a clean EOF.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
