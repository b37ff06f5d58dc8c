package qvd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySourceReadAtAndSize(t *testing.T) {
	src := NewMemorySource([]byte("hello world"))
	size, err := src.(Source).Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != 11 {
		t.Fatalf("Size() = %d, want 11", size)
	}

	buf := make([]byte, 5)
	if _, err := src.(Source).ReadAt(buf, 6); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "world" {
		t.Errorf("ReadAt = %q, want world", buf)
	}
}

func TestFileSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	want := []byte("qvd payload bytes")
	if err := os.WriteFile(path, want, 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	size, err := src.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(want)) {
		t.Fatalf("Size() = %d, want %d", size, len(want))
	}

	got, err := readAll(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("readAll() = %q, want %q", got, want)
	}
}

func TestFileSinkWritesToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	sink, err := CreateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("file contents = %q, want abc", got)
	}
}

func TestStreamSourceIsSequentialOnly(t *testing.T) {
	var src ByteSource = NewStreamSource(bytes.NewReader([]byte("abc")))
	if _, ok := src.(Source); ok {
		t.Fatal("streamSource must not satisfy Source")
	}
	buf, err := io.ReadAll(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" {
		t.Errorf("read = %q, want abc", buf)
	}
}

func TestReadAllFallsBackToSequentialReadForPlainByteSource(t *testing.T) {
	got, err := readAll(bytes.NewReader([]byte("plain reader")))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "plain reader" {
		t.Errorf("readAll() = %q, want %q", got, "plain reader")
	}
}
