// Package types provides small shared helpers for algobench: parsing and
// formatting memory sizes and hashrates.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Binary (IEC) size units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?)(?:i?B)?$`)

// ErrInvalidSize means a size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ParseSize parses sizes such as "512", "64K", "4GiB" or "1.5g" into bytes.
// Units are binary; fractions are truncated to whole bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative size %q", ErrInvalidSize, s)
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	unit := int64(1)
	switch strings.ToUpper(m[2]) {
	case "K":
		unit = KiB
	case "M":
		unit = MiB
	case "G":
		unit = GiB
	case "T":
		unit = TiB
	}
	return int64(value * float64(unit)), nil
}

// ParseSizeMB parses a size and returns it in whole MiB. Bare numbers are
// taken as MiB already.
func ParseSizeMB(s string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative size %q", ErrInvalidSize, s)
		}
		return n, nil
	}

	b, err := ParseSize(s)
	if err != nil {
		return 0, err
	}
	return int(b / MiB), nil
}

// FormatSize formats bytes with binary units, e.g. "1.5 MiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatMB formats a MiB count with binary units.
func FormatMB(mb int) string {
	return FormatSize(int64(mb) * MiB)
}

// FormatHashrate formats hashes per second. Rates below 10 kH/s stay in
// H/s; larger rates use SI prefixes, e.g. "12.35 kH/s".
func FormatHashrate(rate float64) string {
	if rate < 1e4 {
		return fmt.Sprintf("%.2f H/s", rate)
	}
	value, prefix := humanize.ComputeSI(rate)
	return fmt.Sprintf("%.2f %sH/s", value, prefix)
}
