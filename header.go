package qvd

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// headerDelimiter marks the end of the XML header section. Everything from
// byte 0 up to and including this sequence is the header; the byte
// immediately after it begins the symbol table.
var headerDelimiter = []byte("\r\n\x00")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NumberFormat is a field's declared number-format descriptor.
type NumberFormat struct {
	Type    NumberFormatKind
	NDec    int
	UseThou int
	Fmt     string
	Dec     string
	Thou    string
}

// LineageInfo is one entry of a table's data-lineage trail.
type LineageInfo struct {
	Discriminator string
	Statement     string
}

// FieldHeader is one field's layout and metadata entry in a TableHeader.
type FieldHeader struct {
	FieldName    string
	BitOffset    int
	BitWidth     int
	Bias         int
	NumberFormat NumberFormat
	NoOfSymbols  int
	Offset       int64
	Length       int64
	Comment      string
	Tags         []string
}

// TableHeader is the parsed form of a QVD file's XML descriptor block.
type TableHeader struct {
	QvBuildNo            int
	CreatorDoc           string
	CreateUtcTime        string
	SourceCreateUtcTime  string
	SourceFileUtcTime    string
	StaleUtcTime         string
	TableName            string
	SourceFileSize       int64
	Fields               []FieldHeader
	Compression          string
	RecordByteSize       int
	NoOfRecords          int
	Offset               int64
	Length               int64
	Comment              string
	Lineage              []LineageInfo
}

// --- XML wire shapes. Field order below is the emitted element order. ---

type xmlTableHeader struct {
	XMLName              xml.Name       `xml:"QvdTableHeader"`
	QvBuildNo            int            `xml:"QvBuildNo"`
	CreatorDoc           string         `xml:"CreatorDoc"`
	CreateUtcTime        string         `xml:"CreateUtcTime"`
	SourceCreateUtcTime  string         `xml:"SourceCreateUtcTime"`
	SourceFileUtcTime    string         `xml:"SourceFileUtcTime"`
	StaleUtcTime         string         `xml:"StaleUtcTime"`
	TableName            string         `xml:"TableName"`
	SourceFileSize       int64          `xml:"SourceFileSize"`
	Fields               xmlFieldList   `xml:"Fields"`
	Compression          string         `xml:"Compression"`
	RecordByteSize       int            `xml:"RecordByteSize"`
	NoOfRecords          int            `xml:"NoOfRecords"`
	Offset               int64          `xml:"Offset"`
	Length               int64          `xml:"Length"`
	Comment              string         `xml:"Comment"`
	Lineage              xmlLineageList `xml:"Lineage"`
}

type xmlFieldList struct {
	Fields []xmlFieldHeader `xml:"QvdFieldHeader"`
}

type xmlFieldHeader struct {
	FieldName    string          `xml:"FieldName"`
	BitOffset    int             `xml:"BitOffset"`
	BitWidth     int             `xml:"BitWidth"`
	Bias         int             `xml:"Bias"`
	NumberFormat xmlNumberFormat `xml:"NumberFormat"`
	NoOfSymbols  int             `xml:"NoOfSymbols"`
	Offset       int64           `xml:"Offset"`
	Length       int64           `xml:"Length"`
	Comment      string          `xml:"Comment"`
	Tags         xmlTagList      `xml:"Tags"`
}

type xmlNumberFormat struct {
	Type    string `xml:"Type"`
	NDec    int    `xml:"nDec"`
	UseThou int    `xml:"UseThou"`
	Fmt     string `xml:"Fmt"`
	Dec     string `xml:"Dec"`
	Thou    string `xml:"Thou"`
}

type xmlTagList struct {
	Tags []string `xml:"String"`
}

type xmlLineageList struct {
	Infos []xmlLineageInfo `xml:"LineageInfo"`
}

type xmlLineageInfo struct {
	Discriminator string `xml:"Discriminator"`
	Statement     string `xml:"Statement"`
}

func (h *TableHeader) toXML() xmlTableHeader {
	x := xmlTableHeader{
		QvBuildNo:           h.QvBuildNo,
		CreatorDoc:          h.CreatorDoc,
		CreateUtcTime:       h.CreateUtcTime,
		SourceCreateUtcTime: h.SourceCreateUtcTime,
		SourceFileUtcTime:   h.SourceFileUtcTime,
		StaleUtcTime:        h.StaleUtcTime,
		TableName:           h.TableName,
		SourceFileSize:      h.SourceFileSize,
		Compression:         h.Compression,
		RecordByteSize:      h.RecordByteSize,
		NoOfRecords:         h.NoOfRecords,
		Offset:              h.Offset,
		Length:              h.Length,
		Comment:             h.Comment,
	}
	for _, f := range h.Fields {
		xf := xmlFieldHeader{
			FieldName: f.FieldName,
			BitOffset: f.BitOffset,
			BitWidth:  f.BitWidth,
			Bias:      f.Bias,
			NumberFormat: xmlNumberFormat{
				Type:    string(f.NumberFormat.Type),
				NDec:    f.NumberFormat.NDec,
				UseThou: f.NumberFormat.UseThou,
				Fmt:     f.NumberFormat.Fmt,
				Dec:     f.NumberFormat.Dec,
				Thou:    f.NumberFormat.Thou,
			},
			NoOfSymbols: f.NoOfSymbols,
			Offset:      f.Offset,
			Length:      f.Length,
			Comment:     f.Comment,
			Tags:        xmlTagList{Tags: f.Tags},
		}
		x.Fields.Fields = append(x.Fields.Fields, xf)
	}
	for _, l := range h.Lineage {
		x.Lineage.Infos = append(x.Lineage.Infos, xmlLineageInfo{
			Discriminator: l.Discriminator,
			Statement:     l.Statement,
		})
	}
	return x
}

func fromXML(x xmlTableHeader) *TableHeader {
	h := &TableHeader{
		QvBuildNo:           x.QvBuildNo,
		CreatorDoc:          x.CreatorDoc,
		CreateUtcTime:       x.CreateUtcTime,
		SourceCreateUtcTime: x.SourceCreateUtcTime,
		SourceFileUtcTime:   x.SourceFileUtcTime,
		StaleUtcTime:        x.StaleUtcTime,
		TableName:           x.TableName,
		SourceFileSize:      x.SourceFileSize,
		Compression:         x.Compression,
		RecordByteSize:      x.RecordByteSize,
		NoOfRecords:         x.NoOfRecords,
		Offset:              x.Offset,
		Length:              x.Length,
		Comment:             x.Comment,
	}
	for _, xf := range x.Fields.Fields {
		h.Fields = append(h.Fields, FieldHeader{
			FieldName: xf.FieldName,
			BitOffset: xf.BitOffset,
			BitWidth:  xf.BitWidth,
			Bias:      xf.Bias,
			NumberFormat: NumberFormat{
				Type:    NumberFormatKind(xf.NumberFormat.Type),
				NDec:    xf.NumberFormat.NDec,
				UseThou: xf.NumberFormat.UseThou,
				Fmt:     xf.NumberFormat.Fmt,
				Dec:     xf.NumberFormat.Dec,
				Thou:    xf.NumberFormat.Thou,
			},
			NoOfSymbols: xf.NoOfSymbols,
			Offset:      xf.Offset,
			Length:      xf.Length,
			Comment:     xf.Comment,
			Tags:        xf.Tags.Tags,
		})
	}
	for _, xl := range x.Lineage.Infos {
		h.Lineage = append(h.Lineage, LineageInfo{
			Discriminator: xl.Discriminator,
			Statement:     xl.Statement,
		})
	}
	return h
}

// splitHeader locates the "\r\n\0" sentinel in buf and returns the XML
// slice (ending with the sentinel's "\r\n", without its NUL) and the byte
// offset of the symbol table, i.e. the first byte after the sentinel.
func splitHeader(buf []byte) (xmlBytes []byte, symbolTableOffset int, err error) {
	scan := buf
	if bytes.HasPrefix(scan, utf8BOM) {
		scan = scan[len(utf8BOM):]
	}

	idx := bytes.Index(scan, headerDelimiter)
	if idx == -1 {
		glog.Errorln("qvd: header sentinel \\r\\n\\0 not found")
		return nil, 0, fmt.Errorf("%w: sentinel not found", ErrMalformedHeader)
	}

	xmlBytes = scan[:idx+2] // keep the trailing "\r\n", drop the NUL
	symbolTableOffset = (len(buf) - len(scan)) + idx + len(headerDelimiter)
	return xmlBytes, symbolTableOffset, nil
}

// ParseHeader parses the header section at the start of buf.
func ParseHeader(buf []byte) (*TableHeader, int, error) {
	xmlBytes, symbolTableOffset, err := splitHeader(buf)
	if err != nil {
		return nil, 0, err
	}

	var x xmlTableHeader
	if err := xml.Unmarshal(xmlBytes, &x); err != nil {
		glog.Errorln("qvd: failed to parse header XML:", err)
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	h := fromXML(x)
	if err := h.validate(); err != nil {
		return nil, 0, err
	}

	glog.V(1).Infoln("qvd: parsed header for table", h.TableName, "fields:", len(h.Fields))
	return h, symbolTableOffset, nil
}

func (h *TableHeader) validate() error {
	if h.RecordByteSize < 0 || h.NoOfRecords < 0 || h.Offset < 0 || h.Length < 0 {
		return fmt.Errorf("%w: negative section size", ErrMalformedHeader)
	}
	seen := make(map[string]bool, len(h.Fields))
	for _, f := range h.Fields {
		if seen[f.FieldName] {
			return fmt.Errorf("%w: duplicate field %q", ErrMalformedHeader, f.FieldName)
		}
		seen[f.FieldName] = true
		if f.Offset+f.Length > h.Offset {
			return fmt.Errorf("%w: field %q symbol section exceeds declared table offset", ErrMalformedHeader, f.FieldName)
		}
	}
	return nil
}

// MarshalHeader renders h into the canonical, deterministic XML byte form
// used on disk: a fixed element order (matching the struct field order
// above), two-space indentation, CRLF line endings, and a trailing
// "\r\n\0" sentinel.
func MarshalHeader(h *TableHeader) ([]byte, error) {
	x := h.toXML()

	body, err := xml.MarshalIndent(x, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	var out bytes.Buffer
	out.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>`)
	out.WriteString("\r\n")
	out.WriteString(strings.ReplaceAll(string(body), "\n", "\r\n"))
	out.WriteString("\r\n")
	out.Write(headerDelimiter)

	return out.Bytes(), nil
}
