package detect

import (
	"errors"
	"io"
	"os"
)

// Source is a resource whose prefix can be inspected: Path, Stream or Bytes.
type Source interface {
	source()
}

// Path is a file on the local filesystem.
type Path string

// Stream is an open reader. Reading its prefix consumes those bytes; use
// Matcher.Sniff when the rest of the stream is still needed.
type Stream struct {
	Reader io.Reader
}

// Bytes is an in-memory buffer.
type Bytes []byte

func (Path) source()   {}
func (Stream) source() {}
func (Bytes) source()  {}

// ReadPrefix returns at most n bytes from the start of src. A resource
// shorter than n yields a short slice, not an error.
func ReadPrefix(src Source, n int) ([]byte, error) {
	switch s := src.(type) {
	case Path:
		f, err := os.Open(string(s))
		if err != nil {
			return nil, &ReadError{Source: string(s), Err: err}
		}
		defer f.Close()

		b, err := readAtMost(f, n)
		if err != nil {
			return nil, &ReadError{Source: string(s), Err: err}
		}
		return b, nil
	case Stream:
		if s.Reader == nil {
			return nil, &ReadError{Source: "stream", Err: ErrUnknownSource}
		}
		b, err := readAtMost(s.Reader, n)
		if err != nil {
			return nil, &ReadError{Source: "stream", Err: err}
		}
		return b, nil
	case Bytes:
		if len(s) > n {
			return s[:n:n], nil
		}
		return s, nil
	default:
		return nil, &ReadError{Source: "unknown", Err: ErrUnknownSource}
	}
}

func readAtMost(r io.Reader, n int) ([]byte, error) {
	if n <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return buf[:read], nil
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}
