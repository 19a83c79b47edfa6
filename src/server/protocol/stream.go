package protocol

import (
	"errors"
	"io"
)

// Stream joins separate read and write halves, such as stdin and stdout,
// into the io.ReadWriteCloser a Conn runs on.
type Stream struct {
	io.Reader
	io.Writer
}

// NewStream creates a Stream reading from r and writing to w
func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{Reader: r, Writer: w}
}

// Close closes whichever halves are io.Closers
func (s *Stream) Close() error {
	var errs []error
	if c, ok := s.Reader.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := s.Writer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
