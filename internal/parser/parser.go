// Package parser decodes the three files of a COMTRADE recording: the configuration
// file (.cfg), the data file (.dat, ASCII or binary) and the information file (.inf).
//
// All decoders are pure functions over an already-loaded buffer. They hold no shared
// state and may run concurrently on independent inputs.
package parser

import (
	"strconv"
	"strings"
)

// lineTerminator separates lines in every COMTRADE text file.
const lineTerminator = "\r\n"

// splitLines splits s on CRLF. A terminator at the very end does not produce an
// empty trailing line, but an empty line in the middle of the input is kept.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, lineTerminator)
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitFields splits a line on commas.
func splitFields(line string) []string {
	return strings.Split(line, ",")
}

// parseInt32 parses a base-10 integer that must fit in 32 bits.
func parseInt32(s string) (int32, bool) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

// parseInt parses a base-10 integer that must fit in 32 bits and widens it.
func parseInt(s string) (int, bool) {
	v, ok := parseInt32(s)
	return int(v), ok
}

// parseFloat parses a float64.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDigits parses a fixed-width run of ASCII digits. Returns -1 on error.
func parseDigits(s string) int {
	if len(s) == 0 {
		return -1
	}
	result := 0
	for i := 0; i < len(s); i++ {
		d := s[i] - '0'
		if d > 9 {
			return -1
		}
		result = result*10 + int(d)
	}
	return result
}
