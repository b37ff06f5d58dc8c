// Package qvd implements encoding and decoding of QlikView Data (QVD) files.
package qvd

/*
A QVD file is laid out as three consecutive sections with no trailer and no
checksum:

	Section       Bytes                                       Contents
	Header        0 .. headerLen                              UTF-8 XML, "\r\n\0" terminated
	Symbol table  headerLen .. headerLen+Offset                column-major, type-tagged records
	Index table   headerLen+Offset .. headerLen+Offset+Length  row-major, bit-packed records

Symbol record tags:

	Tag   Meaning       Record body
	0x01  Integer       4 bytes LE signed int
	0x02  Double        8 bytes LE IEEE754
	0x04  String        NUL-terminated UTF-8
	0x05  DualInteger   4 bytes LE signed int, then NUL-terminated UTF-8
	0x06  DualDouble    8 bytes LE IEEE754, then NUL-terminated UTF-8

Index records are RecordByteSize bytes each, bits numbered LSB-first from
byte 0 upward; each field occupies BitWidth bits at BitOffset, and the
decoded unsigned value plus the field's Bias yields either a symbol-table
index (>= 0) or NULL (< 0).
*/
