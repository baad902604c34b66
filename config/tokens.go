package config

import (
	"sort"
	"strings"
)

// knownTokens maps the site's headline token symbols to their on-chain
// addresses. It is static data and is never written after init.
var knownTokens = map[string]string{
	"DUPE":       "fRfKGCriduzDwSudCwpL7ySCEiboNuryhZDVJtr1a1C",
	"LAUNCHCOIN": "Ey59PH7Z4BFU4HjyKnyMdWt5GGN76KazTAwQihoUXRnk",
	"KLED":       "1zJX5gRnjLgmTpq5sVwkq69mNDQkCemqoasyjaPW6jm",
	"KNET":       "CfVs3waH2Z9TM397qSkaipTDhA9wWgtt8UchZKfwkYiu",
	"STARTUP":    "97PVGU2DzFqsAWaYU17ZBqGvQFmkqtdMywYBNPAfy8vy",
	"PCULE":      "J27UYHX5oeaG1YbUGQc8BmJySXDjNWChdGB2Pi2TMDAq",
	"YAPPER":     "H1aoUqmp2vJu5o8w3o8LjrN6jKyWErS69PtYxGhfoXxf",
	"FITCOIN":    "Cr2mM4szbt8286XMn7iTpY5A8S17LbGAu1UyodkyEwn4",
	"BUDDY":      "65svCEvM4HdBHXKDxfhjm3yw1A6mKXkdS6HXWXDQTSNA",
	"GIGGLES":    "Bsow2wFkVzy1itJnhLke6VRTqoEkYQZp7kbwPtS87FyN",
	"GOONC":      "ENfpbQUM5xAnNP8ecyEQGFJ6KwbuPjMwv7ZjR29cDuAb",
	"SUBY":       "G2pMCBjRQHHCkE79r9KAESvdhUCieWPZvX5GRFa3jCLg",
	"YOURSELF":   "Etd4QU7PGuzh4ozkzzBBjMmySNkU21BZamB7qPR1xBLV",
	"DTR":        "FkqvTmDNgxgcdS7fPbZoQhPVuaYJPwSsP8mm4p7oNgf6",
	"RIP_VC":     "EeguLg7Zh6F86ZSJtcsDgsxUsA3t5Gci5Kr85AvkxA4B",
	"RUNNIT":     "5mjbjHRb327yvcWUc5WPywhCbYi32pqUqxPUCtpipBLV",
	"ZEUZ":       "GvRf47WPg9uaYcyXEs5UxHL2D39P7yTByBDrQcyMk5wg",
	"FINNA":      "8bmDcRBjBfcoAtU9xFg8gSdUzvjK85cBmdgbMN9kuBLV",
	"PROMPT":     "9NW7fiBu4uHpLx3rxiMccucyKwADwuptTpb8z2YYj9SH",
	"PNP":        "ArQNTJtmxuWQ77KB7a1PmoZc5Zd25jXmXPDWBX8qVoux",
}

// LaunchCoinSymbol is the platform token whose stats are reported separately
// on the dashboard.
const LaunchCoinSymbol = "LAUNCHCOIN"

// KnownToken is one entry of the static symbol table.
type KnownToken struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// LookupTokenAddress resolves a symbol (case-insensitive) to its address.
func LookupTokenAddress(symbol string) (string, bool) {
	addr, ok := knownTokens[strings.ToUpper(strings.TrimSpace(symbol))]
	return addr, ok
}

// KnownTokens returns the table sorted by symbol. The slice is a fresh copy.
func KnownTokens() []KnownToken {
	out := make([]KnownToken, 0, len(knownTokens))
	for sym, addr := range knownTokens {
		out = append(out, KnownToken{Symbol: sym, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// KnownTokenSymbols lists the table's symbols in sorted order.
func KnownTokenSymbols() []string {
	tokens := KnownTokens()
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Symbol
	}
	return out
}
