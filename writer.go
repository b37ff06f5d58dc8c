package qvd

import (
	"time"

	"github.com/golang/glog"
	"github.com/nu7hatch/gouuid"
	"github.com/shopspring/decimal"
)

// WriteOptions configures WriteTable: the table's declared name and
// lineage metadata, which columns are tagged as keys, and the formatters
// used to regenerate display text for semantic (date/time/money) values,
// mirroring writer.py's "recreate display value to ensure uniform
// formatting" pass.
type WriteOptions struct {
	TableName  string
	CreatorDoc string
	Comment    string
	Lineage    []LineageInfo
	KeyColumns map[string]bool

	DateFormat      DateFormatter
	TimeFormat      TimeFormatter
	TimestampFormat TimestampFormatter
	IntervalFormat  IntervalFormatter
	MoneyFormat     MoneyFormatter
}

// DefaultWriteOptions returns the formatter defaults used when WriteTable
// is called with a nil *WriteOptions.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		DateFormat:      DateFormatter{Pattern: "YYYY-MM-DD"},
		TimeFormat:      TimeFormatter{Pattern: "hh:mm:ss"},
		TimestampFormat: TimestampFormatter{Pattern: "YYYY-MM-DD hh:mm:ss"},
		IntervalFormat:  IntervalFormatter{Pattern: "D hh:mm:ss"},
		MoneyFormat:     DefaultMoneyFormatter(),
	}
}

// WriteTable encodes table to sink as a complete QVD payload: header,
// then symbol table, then index table, in that order, with no trailer.
func WriteTable(sink Sink, table *Table, opts *WriteOptions) error {
	if opts == nil {
		opts = DefaultWriteOptions()
	}

	names := table.Columns()
	nrows := table.NumRows()

	type columnBuild struct {
		symbols  []Value
		codeOf   []int
		layout   columnLayout
		semantic NumberFormatKind
		tags     []string
	}

	builds := make([]columnBuild, len(names))
	for c := range names {
		col, err := table.Column(c)
		if err != nil {
			return err
		}

		seen := make(map[uint64][]int)
		var symbols []Value
		codeOf := make([]int, nrows)
		hasNull := false

		for r, raw := range col {
			v := normalizeForWrite(raw, opts)
			if v.IsNull() {
				hasNull = true
				codeOf[r] = -1
				continue
			}
			h := v.Hash()
			idx := -1
			for _, cand := range seen[h] {
				if symbols[cand].Equal(v) {
					idx = cand
					break
				}
			}
			if idx == -1 {
				idx = len(symbols)
				symbols = append(symbols, v)
				seen[h] = append(seen[h], idx)
			}
			codeOf[r] = idx
		}

		layout := computeLayout(len(symbols), hasNull, 0)
		semantic := columnSemantic(symbols)
		isKey := opts.KeyColumns != nil && opts.KeyColumns[names[c]]

		builds[c] = columnBuild{
			symbols:  symbols,
			codeOf:   codeOf,
			layout:   layout,
			semantic: semantic,
			tags:     inferTags(symbols, semantic, isKey),
		}
	}

	fields := make([]FieldHeader, len(names))
	bitOffset := 0
	var symbolTable []byte

	for c, name := range names {
		b := builds[c]
		sectionStart := len(symbolTable)
		for _, v := range b.symbols {
			var err error
			symbolTable, err = encodeSymbol(symbolTable, v)
			if err != nil {
				return err
			}
		}

		fields[c] = FieldHeader{
			FieldName:    name,
			BitOffset:    bitOffset,
			BitWidth:     b.layout.bitWidth,
			Bias:         b.layout.bias,
			NumberFormat: buildNumberFormat(b.semantic, opts),
			NoOfSymbols:  len(b.symbols),
			Offset:       int64(sectionStart),
			Length:       int64(len(symbolTable) - sectionStart),
			Tags:         b.tags,
		}
		bitOffset += b.layout.bitWidth
	}

	recordByteSize := (bitOffset + 7) / 8

	rowsCodes := make([][]int, nrows)
	for r := 0; r < nrows; r++ {
		row := make([]int, len(names))
		for c := range names {
			b := builds[c]
			if b.codeOf[r] < 0 {
				row[c] = 0
			} else {
				row[c] = b.codeOf[r] - b.layout.bias
			}
		}
		rowsCodes[r] = row
	}

	indexTable := encodeIndexTable(rowsCodes, fields, recordByteSize)

	creatorDoc := opts.CreatorDoc
	if creatorDoc == "" {
		creatorDoc = newCreatorDoc()
	}

	header := &TableHeader{
		TableName:      opts.TableName,
		CreatorDoc:     creatorDoc,
		Fields:         fields,
		RecordByteSize: recordByteSize,
		NoOfRecords:    nrows,
		Offset:         int64(len(symbolTable)),
		Length:         int64(len(indexTable)),
		Comment:        opts.Comment,
		Lineage:        opts.Lineage,
	}

	headerBytes, err := MarshalHeader(header)
	if err != nil {
		return err
	}

	if _, err := sink.Write(headerBytes); err != nil {
		return err
	}
	if _, err := sink.Write(symbolTable); err != nil {
		return err
	}
	if _, err := sink.Write(indexTable); err != nil {
		return err
	}

	glog.V(1).Infoln("qvd: wrote table", opts.TableName, "rows:", nrows, "fields:", len(names))
	return nil
}

// normalizeForWrite regenerates a semantic value's display text from the
// configured formatter, so every symbol in a column renders uniformly
// regardless of how its display text originally arrived.
func normalizeForWrite(v Value, opts *WriteOptions) Value {
	switch v.Semantic {
	case KindDate:
		t := QVDEpoch.Add(time.Duration(v.i) * 24 * time.Hour)
		nv := DualInt(v.i, opts.DateFormat.Format(t))
		nv.Semantic = KindDate
		return nv
	case KindTimestamp:
		d := time.Duration(v.f * float64(24*time.Hour))
		t := QVDEpoch.Add(d)
		nv := DualFloat(v.f, opts.TimestampFormat.Format(t))
		nv.Semantic = KindTimestamp
		return nv
	case KindTime:
		d := time.Duration(v.f * float64(24*time.Hour))
		nv := DualFloat(v.f, opts.TimeFormat.Format(d))
		nv.Semantic = KindTime
		return nv
	case KindInterval:
		d := time.Duration(v.f * float64(24*time.Hour))
		nv := DualFloat(v.f, opts.IntervalFormat.Format(d))
		nv.Semantic = KindInterval
		return nv
	case KindMoney:
		dec := decimal.NewFromFloat(v.f)
		nv := DualFloat(v.f, opts.MoneyFormat.Format(dec))
		nv.Semantic = KindMoney
		return nv
	default:
		return v
	}
}

// columnSemantic picks a column's NumberFormat.Type: the symbols' shared
// Semantic hint if they carry one, otherwise INTEGER when every symbol is
// an Integer, REAL when any symbol is a Double and none carries display
// text, or UNKNOWN otherwise.
func columnSemantic(symbols []Value) NumberFormatKind {
	for _, v := range symbols {
		if v.Semantic != "" {
			return v.Semantic
		}
	}

	if len(symbols) == 0 {
		return KindUnknown
	}

	allInt := true
	anyDouble := false
	anyText := false
	for _, v := range symbols {
		switch v.kind {
		case kindInteger:
		case kindDouble:
			allInt = false
			anyDouble = true
		case kindString, kindDualInteger, kindDualDouble:
			allInt = false
			anyText = true
		}
	}

	switch {
	case allInt:
		return KindInteger
	case anyDouble && !anyText:
		return KindReal
	default:
		return KindUnknown
	}
}

func buildNumberFormat(semantic NumberFormatKind, opts *WriteOptions) NumberFormat {
	switch semantic {
	case KindDate:
		return NumberFormat{Type: KindDate, Fmt: opts.DateFormat.Pattern}
	case KindTime:
		return NumberFormat{Type: KindTime, Fmt: opts.TimeFormat.Pattern}
	case KindTimestamp:
		return NumberFormat{Type: KindTimestamp, Fmt: opts.TimestampFormat.Pattern}
	case KindInterval:
		return NumberFormat{Type: KindInterval, Fmt: opts.IntervalFormat.Pattern}
	case KindMoney:
		useThou := 0
		if opts.MoneyFormat.ThousandSeparator != "" {
			useThou = 1
		}
		return NumberFormat{
			Type:    KindMoney,
			NDec:    opts.MoneyFormat.Precision,
			UseThou: useThou,
			Fmt:     opts.MoneyFormat.QVDPattern(),
			Dec:     opts.MoneyFormat.DecimalSeparator,
			Thou:    opts.MoneyFormat.ThousandSeparator,
		}
	case KindInteger:
		return NumberFormat{Type: KindInteger}
	case KindReal:
		return NumberFormat{Type: KindReal}
	default:
		return NumberFormat{Type: KindUnknown}
	}
}

// newCreatorDoc generates a fallback CreatorDoc identifier when the caller
// doesn't supply one, the same uuid.UUID.String() shape decode.go uses for
// kdb+'s UU wire type.
func newCreatorDoc() string {
	id, err := uuid.NewV4()
	if err != nil {
		glog.Errorln("qvd: failed to generate CreatorDoc uuid:", err)
		return ""
	}
	return id.String()
}

// inferTags derives a field's <Tags> entries from the shape of its symbol
// set, grounded on writer.py's _build_symbol_table tag inference: $numeric
// for an all-numeric column (dual values count as numeric), $integer
// additionally when every symbol is a plain Integer, $text when every
// symbol is a plain String, $ascii additionally when all of that text is
// ASCII, and $date/$timestamp when the column carries that semantic hint.
func inferTags(symbols []Value, semantic NumberFormatKind, isKey bool) []string {
	if len(symbols) == 0 {
		return nil
	}

	allInt, allNumeric, allText, allASCII := true, true, true, true
	for _, v := range symbols {
		switch v.kind {
		case kindInteger:
			allText = false
		case kindDouble:
			allInt = false
			allText = false
		case kindString:
			allInt = false
			allNumeric = false
			if !isASCII(v.s) {
				allASCII = false
			}
		case kindDualInteger:
			allInt = false
			allText = false
			if !isASCII(v.s) {
				allASCII = false
			}
		case kindDualDouble:
			allInt = false
			allText = false
			if !isASCII(v.s) {
				allASCII = false
			}
		}
	}

	var tags []string
	if allNumeric {
		tags = append(tags, TagNumeric)
		if allInt {
			tags = append(tags, TagInteger)
		}
	}
	if allText {
		tags = append(tags, TagText)
		if allASCII {
			tags = append(tags, TagASCII)
		}
	}
	switch semantic {
	case KindDate:
		tags = append(tags, TagDate)
	case KindTimestamp:
		tags = append(tags, TagTimestamp)
	}
	if isKey {
		tags = append(tags, TagKey)
	}
	return tags
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
