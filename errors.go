package qvd

import "errors"

// Sentinel errors for the error kinds in the codec's error design. Callers
// use errors.Is against these; context (byte offset, column, record index)
// is attached with fmt.Errorf("%w: ...") at the point of detection.
var (
	// ErrMalformedHeader is returned when the header sentinel is missing,
	// the XML is invalid, required elements are absent, or declared
	// offsets/lengths are inconsistent.
	ErrMalformedHeader = errors.New("qvd: malformed header")

	// ErrMalformedSymbolTable is returned for an unknown tag byte, an
	// unterminated string, a truncated numeric payload, or a column
	// section that exceeds its declared length.
	ErrMalformedSymbolTable = errors.New("qvd: malformed symbol table")

	// ErrMalformedIndexTable is returned when record count * record size
	// doesn't match the declared byte length, a bit range exceeds the
	// record width, or a decoded code is out of range.
	ErrMalformedIndexTable = errors.New("qvd: malformed index table")

	// ErrUnsupportedVariant is returned on write for a value kind the
	// symbol codec cannot represent.
	ErrUnsupportedVariant = errors.New("qvd: unsupported value variant")

	// ErrUnseekableStream is returned when a chunked read is requested
	// on a source that cannot seek.
	ErrUnseekableStream = errors.New("qvd: source does not support seeking")

	// ErrShapeMismatch is returned when a row's length doesn't match the
	// column count, or a column's length doesn't match the row count.
	ErrShapeMismatch = errors.New("qvd: shape mismatch")

	// ErrUnknownColumn is returned when a column name does not exist in
	// the table.
	ErrUnknownColumn = errors.New("qvd: unknown column")

	// ErrDuplicateColumn is returned when a column name already exists
	// in the table.
	ErrDuplicateColumn = errors.New("qvd: duplicate column")
)
