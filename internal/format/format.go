package format

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	nonDigit  = regexp.MustCompile(`\D`)
	cpfMask   = regexp.MustCompile(`(\d{3})(\d{3})(\d{3})(\d{2})`)
	phoneMask = regexp.MustCompile(`(\d{2})(\d{5})(\d{4})`)

	printer = message.NewPrinter(language.BrazilianPortuguese)
)

const (
	DefaultCurrencySymbol = "R$"
	// DefaultDateLayout is dd/mm/yyyy.
	DefaultDateLayout = "02/01/2006"
)

// Options are the user-facing presentation settings. Empty fields mean the
// default.
type Options struct {
	CurrencySymbol string
	DateLayout     string
}

var current atomic.Pointer[Options]

func init() { Configure(Options{}) }

// Configure replaces the currency symbol and date layout used by the
// formatters.
func Configure(o Options) {
	if o.CurrencySymbol == "" {
		o.CurrencySymbol = DefaultCurrencySymbol
	}
	if o.DateLayout == "" {
		o.DateLayout = DefaultDateLayout
	}
	current.Store(&o)
}

// Current returns the active options.
func Current() Options { return *current.Load() }

// Digits strips everything that is not 0-9.
func Digits(value string) string {
	return nonDigit.ReplaceAllString(value, "")
}

// FormatCPF masks the first 11 digits as 000.000.000-00. Shorter inputs come
// back as bare digits so the mask can be reapplied on every keystroke.
func FormatCPF(value string) string {
	return replaceFirst(cpfMask, Digits(value), "$1.$2.$3-$4")
}

// FormatPhone masks a mobile number as (00) 00000-0000.
func FormatPhone(value string) string {
	return replaceFirst(phoneMask, Digits(value), "($1) $2-$3")
}

func replaceFirst(re *regexp.Regexp, s, tmpl string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	var out []byte
	out = append(out, s[:loc[0]]...)
	out = re.ExpandString(out, tmpl, s, loc)
	out = append(out, s[loc[1]:]...)
	return string(out)
}

// FormatBRL renders a monetary value with two decimals, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return Current().CurrencySymbol + " " + printer.Sprintf("%.2f", round2(v))
}

// FormatAmount renders whole amounts without decimals ("R$ 20.000") and
// keeps cents only when present.
func FormatAmount(v float64) string {
	v = round2(v)
	if v == math.Trunc(v) {
		return Current().CurrencySymbol + " " + printer.Sprintf("%d", int64(v))
	}
	return FormatBRL(v)
}

// FormatRate renders a monthly rate, e.g. "2,5% a.m.".
func FormatRate(rate float64) string {
	s := fmt.Sprintf("%g", rate)
	return strings.Replace(s, ".", ",", 1) + "% a.m."
}

// FormatDate renders t with the configured layout in its own location.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(Current().DateLayout)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
