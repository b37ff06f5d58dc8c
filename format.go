package qvd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateTimeTokens mirrors DATETIME_FORMAT_TOKENS from pyqvd's format module:
// each format-string token maps to a renderer over a time.Time. Longer
// tokens are listed first so a greedy, order-preserving replace never lets
// "M" consume part of "MM".
var dateTimeTokenOrder = []string{"YYYY", "YY", "MM", "M", "DD", "D", "hh", "mm", "ss", "fff"}

var dateTimeTokens = map[string]func(time.Time) string{
	"YYYY": func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) },
	"YY":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) },
	"MM":   func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) },
	"M":    func(t time.Time) string { return strconv.Itoa(int(t.Month())) },
	"DD":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) },
	"D":    func(t time.Time) string { return strconv.Itoa(t.Day()) },
	"hh":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Hour()) },
	"mm":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Minute()) },
	"ss":   func(t time.Time) string { return fmt.Sprintf("%02d", t.Second()) },
	"fff":  func(t time.Time) string { return fmt.Sprintf("%03d", t.Nanosecond()/1e6) },
}

func applyDateTimeTokens(pattern string, t time.Time) string {
	result := pattern
	for _, tok := range dateTimeTokenOrder {
		result = strings.ReplaceAll(result, tok, dateTimeTokens[tok](t))
	}
	return result
}

// DateFormatter renders a date into display text using a QVD format
// string, e.g. "DD.MM.YYYY".
type DateFormatter struct {
	Pattern string
}

// Format renders t using the formatter's pattern.
func (f DateFormatter) Format(t time.Time) string { return applyDateTimeTokens(f.Pattern, t) }

// TimeFormatter renders a time-of-day duration into display text.
type TimeFormatter struct {
	Pattern string
}

// Format renders d, a duration since midnight, using the formatter's pattern.
func (f TimeFormatter) Format(d time.Duration) string {
	return applyDateTimeTokens(f.Pattern, time.Time{}.Add(d))
}

// TimestampFormatter renders an instant into display text, combining date
// and time tokens.
type TimestampFormatter struct {
	Pattern string
}

// Format renders t using the formatter's pattern.
func (f TimestampFormatter) Format(t time.Time) string { return applyDateTimeTokens(f.Pattern, t) }

// IntervalFormatter renders a duration into display text using "D", "hh",
// "mm", "ss", "fff" tokens; when "D", "hh" or "mm" is absent from the
// pattern, that unit is carried into the next smaller one (no "D": hours
// also count whole days), grounded on pyqvd's IntervalValueFormatter.
type IntervalFormatter struct {
	Pattern string
}

// Format renders d using the formatter's pattern.
func (f IntervalFormatter) Format(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}

	daysPresent := strings.Contains(f.Pattern, "D")
	hoursPresent := strings.Contains(f.Pattern, "hh")
	minutesPresent := strings.Contains(f.Pattern, "mm")

	days := int64(d / (24 * time.Hour))
	rem := d % (24 * time.Hour)
	hours := int64(rem / time.Hour)
	rem %= time.Hour
	minutes := int64(rem / time.Minute)
	rem %= time.Minute
	seconds := int64(rem / time.Second)
	millis := int64((d % time.Second) / time.Millisecond)

	result := f.Pattern

	if daysPresent {
		result = strings.ReplaceAll(result, "D", strconv.FormatInt(days, 10))
	} else {
		hours += days * 24
	}
	if hoursPresent {
		result = strings.ReplaceAll(result, "hh", fmt.Sprintf("%02d", hours))
	} else {
		minutes += hours * 60
	}
	if minutesPresent {
		result = strings.ReplaceAll(result, "mm", fmt.Sprintf("%02d", minutes))
	} else {
		seconds += minutes * 60
	}
	result = strings.ReplaceAll(result, "ss", fmt.Sprintf("%02d", seconds))
	result = strings.ReplaceAll(result, "fff", fmt.Sprintf("%03d", millis))

	if neg {
		result = "-" + result
	}
	return result
}

// MoneyValueSymbolPosition selects where the currency symbol is placed
// relative to the digits.
type MoneyValueSymbolPosition int

const (
	CurrencyPrecedes MoneyValueSymbolPosition = iota
	CurrencyFollows
)

// MoneyFormatter renders a decimal amount into display text, grounded on
// pyqvd's MoneyValueFormatter.
type MoneyFormatter struct {
	ThousandSeparator string
	DecimalSeparator  string
	CurrencySymbol    string
	SymbolPosition    MoneyValueSymbolPosition
	SymbolSpaced      bool
	Precision         int
}

// DefaultMoneyFormatter matches WriteOptions' default: "$1,234.56".
func DefaultMoneyFormatter() MoneyFormatter {
	return MoneyFormatter{
		ThousandSeparator: ",",
		DecimalSeparator:  ".",
		CurrencySymbol:    "$",
		SymbolPosition:    CurrencyPrecedes,
		Precision:         2,
	}
}

// Format renders value using the formatter's configuration.
func (f MoneyFormatter) Format(value decimal.Decimal) string {
	var b strings.Builder

	prefix := func() {
		if f.CurrencySymbol != "" && f.SymbolPosition == CurrencyPrecedes {
			b.WriteString(f.CurrencySymbol)
			if f.SymbolSpaced {
				b.WriteString(" ")
			}
		}
	}
	suffix := func() {
		if f.CurrencySymbol != "" && f.SymbolPosition == CurrencyFollows {
			if f.SymbolSpaced {
				b.WriteString(" ")
			}
			b.WriteString(f.CurrencySymbol)
		}
	}

	prefix()

	digits := value.StringFixed(int32(f.Precision))
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	intPart, fracPart := digits, ""
	if idx := strings.IndexByte(digits, '.'); idx >= 0 {
		intPart, fracPart = digits[:idx], digits[idx+1:]
	}

	if f.ThousandSeparator != "" {
		intPart = groupThousands(intPart, f.ThousandSeparator)
	}

	if neg {
		b.WriteString("-")
	}
	b.WriteString(intPart)
	if fracPart != "" {
		sep := f.DecimalSeparator
		if sep == "" {
			sep = "."
		}
		b.WriteString(sep)
		b.WriteString(fracPart)
	}

	suffix()
	return b.String()
}

func groupThousands(intPart, sep string) string {
	n := len(intPart)
	if n <= 3 {
		return intPart
	}
	var parts []string
	for n > 3 {
		parts = append([]string{intPart[n-3:]}, parts...)
		intPart = intPart[:n-3]
		n = len(intPart)
	}
	parts = append([]string{intPart}, parts...)
	return strings.Join(parts, sep)
}

// QVDPattern renders the formatter's configuration back into a QVD
// "positive;negative" number-format pattern string, grounded on
// MoneyValueFormatter.get_qvd_format_string.
func (f MoneyFormatter) QVDPattern() string {
	build := func(negative bool) string {
		var b strings.Builder
		if f.CurrencySymbol != "" && f.SymbolPosition == CurrencyPrecedes {
			b.WriteString(f.CurrencySymbol)
			if f.SymbolSpaced {
				b.WriteString(" ")
			}
		}
		if negative {
			b.WriteString("-")
		}
		if f.ThousandSeparator != "" {
			b.WriteString("#" + f.ThousandSeparator + "##")
		} else {
			b.WriteString("###")
		}
		dec := f.DecimalSeparator
		if dec == "" {
			dec = "."
		}
		b.WriteString("0" + dec + strings.Repeat("0", f.Precision))
		if f.CurrencySymbol != "" && f.SymbolPosition == CurrencyFollows {
			if f.SymbolSpaced {
				b.WriteString(" ")
			}
			b.WriteString(f.CurrencySymbol)
		}
		return b.String()
	}
	return build(false) + ";" + build(true)
}
