package processor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	magnitudeRe     = regexp.MustCompile(`^(\d+(?:\.\d+)?|\.\d+)([KMB])?$`)
	numericPrefixRe = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)`)
	percentRe       = regexp.MustCompile(`([+-]?\d*\.?\d+)%`)

	thousand = decimal.New(1, 3)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
)

var suffixes = map[string]decimal.Decimal{
	"K": thousand,
	"M": million,
	"B": billion,
}

// ParseMagnitude reads figures such as "3.77B", "40,603" or "$1.2M". Commas,
// dollar signs and whitespace are ignored. A K, M or B suffix scales the
// value; without one the leading number is returned as is. Anything
// unreadable is 0.
func ParseMagnitude(text string) float64 {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', ' ', '\t', '\n', '\r', '\u00a0':
			return -1
		}
		return r
	}, text)
	if clean == "" {
		return 0
	}

	if m := magnitudeRe.FindStringSubmatch(clean); m != nil {
		d, err := decimal.NewFromString(m[1])
		if err != nil {
			return 0
		}
		if mult, ok := suffixes[m[2]]; ok {
			d = d.Mul(mult)
		}
		f, _ := d.Float64()
		return f
	}

	prefix := numericPrefixRe.FindString(clean)
	if prefix == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(prefix, "."), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParsePercent returns the signed number before the first '%' in text, not
// divided by 100. Text without a percentage is 0.
func ParsePercent(text string) float64 {
	m := percentRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatMagnitude renders v the way the site does ("3.77B", "88.92M",
// "40.6K", "12.5"), rounded to two decimals. ParseMagnitude reads it back.
func FormatMagnitude(v float64) string {
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	suffix := ""
	switch {
	case abs.GreaterThanOrEqual(billion):
		d, suffix = d.Div(billion), "B"
	case abs.GreaterThanOrEqual(million):
		d, suffix = d.Div(million), "M"
	case abs.GreaterThanOrEqual(thousand):
		d, suffix = d.Div(thousand), "K"
	}
	return d.Round(2).String() + suffix
}
