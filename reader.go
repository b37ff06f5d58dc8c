package qvd

import (
	"bytes"
	"io"

	"github.com/golang/glog"
)

// ReadOptions configures ReadTable and ReadChunks. The zero value is the
// default: no row limit, no pre-filtered column set.
type ReadOptions struct {
	// Columns restricts decoding to the named fields, in the given order.
	// A nil or empty slice decodes every field in header order.
	Columns []string
}

// ReadTable decodes the full table from src: header, every field's symbol
// dictionary, then every row of the index table.
func ReadTable(src ByteSource, opts *ReadOptions) (*Table, error) {
	buf, err := readAll(src)
	if err != nil {
		return nil, err
	}

	header, symbolTableOffset, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	fields := selectFields(header.Fields, opts)

	symbolTableEnd := symbolTableOffset + int(header.Offset)
	if symbolTableEnd > len(buf) {
		return nil, ErrMalformedSymbolTable
	}
	symbolTable := buf[symbolTableOffset:symbolTableEnd]

	symbolTables := make([][]Value, len(fields))
	for i, f := range fields {
		symbols, err := decodeSymbols(symbolTable, f)
		if err != nil {
			return nil, err
		}
		symbolTables[i] = symbols
	}

	indexTableStart := symbolTableEnd
	indexTableEnd := indexTableStart + int(header.Length)
	if indexTableEnd > len(buf) {
		return nil, ErrMalformedIndexTable
	}
	indexTable := buf[indexTableStart:indexTableEnd]

	if header.RecordByteSize*header.NoOfRecords != len(indexTable) {
		glog.Errorln("qvd: index table size", len(indexTable), "doesn't match", header.NoOfRecords, "*", header.RecordByteSize)
		return nil, ErrMalformedIndexTable
	}

	table := NewTable(fieldNames(fields)...)
	for r := 0; r < header.NoOfRecords; r++ {
		record := indexTable[r*header.RecordByteSize : (r+1)*header.RecordByteSize]
		codes, err := decodeIndexRecord(record, fields, r)
		if err != nil {
			return nil, err
		}
		row, err := resolveRow(codes, symbolTables, r)
		if err != nil {
			return nil, err
		}
		if err := table.AppendRow(row); err != nil {
			return nil, err
		}
	}

	glog.V(1).Infoln("qvd: read table", header.TableName, "rows:", header.NoOfRecords, "fields:", len(fields))
	return table, nil
}

func selectFields(all []FieldHeader, opts *ReadOptions) []FieldHeader {
	if opts == nil || len(opts.Columns) == 0 {
		return all
	}
	byName := make(map[string]FieldHeader, len(all))
	for _, f := range all {
		byName[f.FieldName] = f
	}
	out := make([]FieldHeader, 0, len(opts.Columns))
	for _, name := range opts.Columns {
		if f, ok := byName[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func fieldNames(fields []FieldHeader) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.FieldName
	}
	return out
}

// ChunkReader lazily decodes a table's rows in fixed-size groups, so a
// caller never holds more than one chunk's worth of decoded rows at a
// time. Each chunk is independently self-contained: its rows are fully
// resolved Values, not references back into shared state.
type ChunkReader struct {
	header          *TableHeader
	fields          []FieldHeader
	symbolTables    [][]Value
	src             Source
	indexTableStart int64
	chunkRows       int
	totalRows       int
	nextRow         int
}

// ReadChunks constructs a lazy, chunked reader over src. src must support
// random access (Source, not just ByteSource); a plain streaming source
// fails immediately with ErrUnseekableStream rather than at the first
// Next call.
func ReadChunks(src ByteSource, chunkRows int, opts *ReadOptions) (*ChunkReader, error) {
	seekable, ok := src.(Source)
	if !ok {
		return nil, ErrUnseekableStream
	}
	if chunkRows <= 0 {
		chunkRows = 1
	}

	header, symbolTableOffset, err := readHeaderOnly(seekable)
	if err != nil {
		return nil, err
	}

	fields := selectFields(header.Fields, opts)

	symbolTable := make([]byte, header.Offset)
	if _, err := seekable.ReadAt(symbolTable, int64(symbolTableOffset)); err != nil && err != io.EOF {
		return nil, err
	}

	symbolTables := make([][]Value, len(fields))
	for i, f := range fields {
		symbols, err := decodeSymbols(symbolTable, f)
		if err != nil {
			return nil, err
		}
		symbolTables[i] = symbols
	}

	return &ChunkReader{
		header:          header,
		fields:          fields,
		symbolTables:    symbolTables,
		src:             seekable,
		indexTableStart: int64(symbolTableOffset) + header.Offset,
		chunkRows:       chunkRows,
		totalRows:       header.NoOfRecords,
	}, nil
}

// readHeaderOnly reads a growing prefix of src until the header sentinel
// is found (or the source is exhausted), then parses it, avoiding a read
// of the full symbol and index table sections just to learn their sizes.
func readHeaderOnly(src Source) (*TableHeader, int, error) {
	size, err := src.Size()
	if err != nil {
		return nil, 0, err
	}

	n := int64(64 * 1024)
	if n > size {
		n = size
	}
	for {
		buf := make([]byte, n)
		if _, err := src.ReadAt(buf, 0); err != nil && err != io.EOF {
			return nil, 0, err
		}
		if bytes.Contains(buf, headerDelimiter) || n >= size {
			return ParseHeader(buf)
		}
		n *= 2
		if n > size {
			n = size
		}
	}
}

// Len returns the number of chunks remaining, i.e. ceil(remaining rows /
// chunk size).
func (c *ChunkReader) Len() int {
	remaining := c.totalRows - c.nextRow
	if remaining <= 0 {
		return 0
	}
	return (remaining + c.chunkRows - 1) / c.chunkRows
}

// Next decodes and returns the next chunk. It returns io.EOF once every
// row has been consumed.
func (c *ChunkReader) Next() (*Table, error) {
	if c.nextRow >= c.totalRows {
		return nil, io.EOF
	}

	n := c.chunkRows
	if c.nextRow+n > c.totalRows {
		n = c.totalRows - c.nextRow
	}

	record := c.header.RecordByteSize
	buf := make([]byte, n*record)
	off := c.indexTableStart + int64(c.nextRow)*int64(record)
	if _, err := c.src.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil, err
	}

	table := NewTable(fieldNames(c.fields)...)
	for r := 0; r < n; r++ {
		rec := buf[r*record : (r+1)*record]
		codes, err := decodeIndexRecord(rec, c.fields, c.nextRow+r)
		if err != nil {
			return nil, err
		}
		row, err := resolveRow(codes, c.symbolTables, c.nextRow+r)
		if err != nil {
			return nil, err
		}
		if err := table.AppendRow(row); err != nil {
			return nil, err
		}
	}

	c.nextRow += n
	return table, nil
}
