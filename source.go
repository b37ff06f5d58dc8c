package qvd

import (
	"bytes"
	"io"
	"os"
)

// ByteSource is the minimal stream-like byte source the codec can read a
// QVD payload from. A plain ByteSource supports only sequential reading;
// Source additionally supports random access and is required for chunked
// reads.
type ByteSource interface {
	io.Reader
}

// Source is the seekable byte source a QVD file is read from: random
// access for the header/symbol/index sections plus a total size, the same
// shape kdb.go's Conn wraps a net.Conn for the IPC protocol.
type Source interface {
	ByteSource
	io.ReaderAt
	Size() (int64, error)
}

// Sink is the byte sink a QVD file is written to.
type Sink interface {
	io.Writer
}

// fileSource adapts an *os.File into a Source.
type fileSource struct {
	f *os.File
}

// OpenFile opens path for reading and wraps it as a Source. Callers must
// Close the returned Source's underlying file when done.
func OpenFile(path string) (*fileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileSource{f: f}, nil
}

func (s *fileSource) Read(p []byte) (int, error)              { return s.f.Read(p) }
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

func (s *fileSource) Size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close releases the underlying file handle.
func (s *fileSource) Close() error { return s.f.Close() }

// memorySource adapts an in-memory byte slice into a Source, used for QVD
// payloads already fully resident in memory. It supports both sequential
// and random-access reads via an embedded bytes.Reader.
type memorySource struct {
	*bytes.Reader
}

// NewMemorySource wraps buf as a Source. buf is not copied; callers must
// not mutate it for the lifetime of the Source.
func NewMemorySource(buf []byte) Source {
	return &memorySource{Reader: bytes.NewReader(buf)}
}

func (s *memorySource) Size() (int64, error) { return s.Reader.Size(), nil }

// streamSource adapts a plain io.Reader into a ByteSource with no random
// access; requesting a chunked read over one fails fast with
// ErrUnseekableStream.
type streamSource struct {
	r io.Reader
}

// NewStreamSource wraps r as a ByteSource. Use this only when the data
// cannot be read twice or measured up front; ReadTable still works, but
// ReadChunks does not.
func NewStreamSource(r io.Reader) ByteSource {
	return &streamSource{r: r}
}

func (s *streamSource) Read(p []byte) (int, error) { return s.r.Read(p) }

// fileSink adapts an *os.File into a Sink.
type fileSink struct {
	f *os.File
}

// CreateFile creates (or truncates) path for writing and wraps it as a
// Sink. Callers must Close the returned Sink's underlying file when done.
func CreateFile(path string) (*fileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileSink{f: f}, nil
}

func (s *fileSink) Write(p []byte) (int, error) { return s.f.Write(p) }

// Close releases the underlying file handle.
func (s *fileSink) Close() error { return s.f.Close() }

// readAll reads a ByteSource's full contents into memory, the common case
// for the header parse and whole-payload decode paths. A Source is read
// via its Size rather than draining sequentially, so re-reading the same
// Source (e.g. across chunks) never disturbs a shared read cursor.
func readAll(src ByteSource) ([]byte, error) {
	if s, ok := src.(Source); ok {
		size, err := s.Size()
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(io.NewSectionReader(sizedReaderAt{s}, 0, size), buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return io.ReadAll(src)
}

// sizedReaderAt adapts a Source's ReadAt for use with io.NewSectionReader.
type sizedReaderAt struct {
	s Source
}

func (r sizedReaderAt) ReadAt(p []byte, off int64) (int, error) { return r.s.ReadAt(p, off) }
