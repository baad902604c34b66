package processor

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	chainAddressRe = regexp.MustCompile(`^[A-Za-z0-9]{32,}$`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

const suffixLen = 9

// IsChainAddress reports whether s looks like an on-chain token address.
func IsChainAddress(s string) bool {
	return chainAddressRe.MatchString(s)
}

// SynthesizeAddress builds a placeholder id for a token without a known
// address: "<symbol>_<epoch millis>_<9 base36 chars>". These ids change on
// every scrape.
func SynthesizeAddress(symbol string, now time.Time) string {
	prefix := nonAlnumRe.ReplaceAllString(strings.ToLower(symbol), "")
	if prefix == "" {
		prefix = "token"
	}
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomSuffix()
}

func randomSuffix() string {
	id := uuid.New()
	s := strconv.FormatUint(binary.BigEndian.Uint64(id[8:]), 36)
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s[len(s)-suffixLen:]
}
