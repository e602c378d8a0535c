package parser

import "strings"

// crlf joins lines with CRLF terminators, the way COMTRADE files are written.
func crlf(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

const (
	stationLine  = "STATION_A,DEV1,1999"
	countsLine   = "5,3A,2D"
	analogLine1  = "1,Ia,A,Line1,A,1.0,0.0,0.0,-32768,32767,1.0,1.0,P"
	analogLine2  = "2,Ib,B,Line1,A,1.0,0.0,0.0,-32768,32767,1.0,1.0,p"
	analogLine3  = "3,Va,A,Bus1,kV,0.5,0.1,0.25,-32768,32767,110.0,0.1,S"
	statusLine1  = "1,CB1,,Breaker1,0"
	statusLine2  = "2,CB2,,Breaker2,1"
	freqLine     = "50"
	nratesLine   = "1"
	rateLine     = "1000,500"
	firstTime    = "01/02/2020,10:20:30.123456"
	triggerTime  = "01/02/2020,10:20:30.200000"
	fileTypeLine = "ASCII"
	factorLine   = "1.0"
)

// configLines returns the lines of a valid configuration file.
func configLines() []string {
	return []string{
		stationLine, countsLine,
		analogLine1, analogLine2, analogLine3,
		statusLine1, statusLine2,
		freqLine,
		nratesLine, rateLine,
		firstTime, triggerTime,
		fileTypeLine,
		factorLine,
	}
}

// withLine returns configLines with line i (0-based) replaced.
func withLine(i int, line string) []string {
	lines := configLines()
	lines[i] = line
	return lines
}

// Indices into configLines.
const (
	idxStation  = 0
	idxCounts   = 1
	idxAnalog1  = 2
	idxStatus1  = 5
	idxFreq     = 7
	idxNrates   = 8
	idxFirst    = 10
	idxTrigger  = 11
	idxFileType = 12
	idxFactor   = 13
)
