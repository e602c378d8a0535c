package parser

import (
	"fmt"
	"time"

	"github.com/comtrade-viewer/backend/internal/models"
)

// Field counts of the fixed-layout configuration lines.
const (
	stationFields    = 3
	channelFields    = 3
	analogFields     = 13
	statusFields     = 5
	sampleRateFields = 2
	timestampLength  = 26
)

// cfgCursor walks the lines of a configuration file. Each stage consumes lines
// through it; the position after the last stage must equal the line count.
type cfgCursor struct {
	lines  []string
	pos    int
	intern *StringIntern
}

// next returns the current line and advances, or an EarlyEOF error naming what was expected.
func (c *cfgCursor) next(what string) (string, error) {
	if c.pos >= len(c.lines) {
		return "", earlyEOF(fileConfig, c.pos+1, "early EOF: expected "+what)
	}
	line := c.lines[c.pos]
	c.pos++
	return line, nil
}

// take returns the next n lines and advances past them.
func (c *cfgCursor) take(n int, what string) ([]string, error) {
	if len(c.lines)-c.pos < n {
		return nil, earlyEOF(fileConfig, len(c.lines)+1,
			fmt.Sprintf("early EOF: expected %d %s lines, found %d", n, what, len(c.lines)-c.pos))
	}
	block := c.lines[c.pos : c.pos+n]
	c.pos += n
	return block, nil
}

// line returns the 1-based number of the line most recently consumed.
func (c *cfgCursor) line() int {
	return c.pos
}

// ParseConfiguration decodes a .cfg file.
// The nine components are read strictly in order; no partial record is returned on error.
func ParseConfiguration(input string) (*models.ConfigurationRecord, error) {
	c := &cfgCursor{lines: splitLines(input), intern: NewStringIntern()}
	rec := &models.ConfigurationRecord{}

	if err := c.parseStation(&rec.Station); err != nil {
		return nil, err
	}
	if err := c.parseChannelCounts(&rec.Station); err != nil {
		return nil, err
	}

	analog, err := c.parseAnalogChannels(rec.Station.AnalogChannels)
	if err != nil {
		return nil, err
	}
	rec.AnalogChannels = analog

	status, err := c.parseStatusChannels(rec.Station.StatusChannels)
	if err != nil {
		return nil, err
	}
	rec.StatusChannels = status

	if rec.LineFrequency, err = c.parseLineFrequency(); err != nil {
		return nil, err
	}
	if rec.SampleRates, err = c.parseSampleRates(); err != nil {
		return nil, err
	}
	if rec.Times, err = c.parseTimes(); err != nil {
		return nil, err
	}
	if rec.FileType, err = c.parseFileType(); err != nil {
		return nil, err
	}
	if rec.TimestampFactor, err = c.parseTimestampFactor(); err != nil {
		return nil, err
	}

	if c.pos != len(c.lines) {
		return nil, &DecodeError{
			Kind:   ErrTrailingData,
			File:   fileConfig,
			Line:   c.pos + 1,
			Reason: fmt.Sprintf("redundant line: %d unconsumed line(s) after timestamp factor", len(c.lines)-c.pos),
		}
	}
	return rec, nil
}

// parseStation reads "station_name,rec_dev_id,rev_year".
func (c *cfgCursor) parseStation(st *models.StationRecord) error {
	line, err := c.next("station line")
	if err != nil {
		return err
	}
	fields := splitFields(line)
	if len(fields) != stationFields {
		return malformed(fileConfig, c.line(), "the number of fields is fewer than expected - station line")
	}
	st.StationName = fields[0]
	st.RecordingDeviceID = fields[1]
	year, ok := parseInt(fields[2])
	if !ok {
		year = models.DefaultRevisionYear
	}
	st.RevisionYear = year
	return nil
}

// parseChannelCounts reads "TT,##A,##D".
func (c *cfgCursor) parseChannelCounts(st *models.StationRecord) error {
	line, err := c.next("channel count line")
	if err != nil {
		return err
	}
	fields := splitFields(line)
	if len(fields) != channelFields {
		return malformed(fileConfig, c.line(), "the number of fields is fewer than expected - channel count line")
	}

	total, ok := parseInt(fields[0])
	if !ok {
		return malformed(fileConfig, c.line(), "invalid total number of channels")
	}
	analog, ok := parseCount(fields[1], 'A')
	if !ok {
		return malformed(fileConfig, c.line(), "invalid number of analog channels")
	}
	status, ok := parseCount(fields[2], 'D')
	if !ok {
		return malformed(fileConfig, c.line(), "invalid number of status channels")
	}

	st.TotalChannels = total
	st.AnalogChannels = analog
	st.StatusChannels = status
	return nil
}

// parseCount parses a non-negative channel count carrying a one-letter suffix.
func parseCount(s string, suffix byte) (int, bool) {
	if len(s) < 2 || (s[len(s)-1] != suffix && s[len(s)-1] != suffix+('a'-'A')) {
		return 0, false
	}
	n, ok := parseInt(s[:len(s)-1])
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

// parseAnalogChannels reads n "An,ch_id,ph,ccbm,uu,a,b,skew,min,max,primary,secondary,PS" lines.
func (c *cfgCursor) parseAnalogChannels(n int) ([]models.AnalogChannel, error) {
	start := c.pos
	block, err := c.take(n, "analog channel")
	if err != nil {
		return nil, err
	}

	channels := make([]models.AnalogChannel, 0, n)
	for i, line := range block {
		ch, err := c.parseAnalogChannel(line, start+i+1)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func (c *cfgCursor) parseAnalogChannel(line string, lineNo int) (models.AnalogChannel, error) {
	var ch models.AnalogChannel
	f := splitFields(line)
	if len(f) != analogFields {
		return ch, malformed(fileConfig, lineNo, "the number of fields is fewer than expected - analog channel")
	}

	var ok bool
	if ch.Index, ok = parseInt(f[0]); !ok {
		return ch, malformed(fileConfig, lineNo, "invalid analog channel index")
	}
	ch.ID = f[1]
	ch.Phase = c.intern.Intern(f[2])
	ch.MonitoredComponent = c.intern.Intern(f[3])
	ch.Units = c.intern.Intern(f[4])

	floats := []struct {
		dst    *float64
		src    string
		reason string
	}{
		{&ch.Multiplier, f[5], "invalid channel multiplier"},
		{&ch.OffsetAdder, f[6], "invalid channel offset adder"},
		{&ch.Skew, f[7], "invalid channel skew"},
		{&ch.PrimaryFactor, f[10], "invalid primary factor"},
		{&ch.SecondaryFactor, f[11], "invalid secondary factor"},
	}
	for _, fl := range floats {
		if *fl.dst, ok = parseFloat(fl.src); !ok {
			return ch, malformed(fileConfig, lineNo, fl.reason)
		}
	}
	if ch.Min, ok = parseInt(f[8]); !ok {
		return ch, malformed(fileConfig, lineNo, "invalid minimum value")
	}
	if ch.Max, ok = parseInt(f[9]); !ok {
		return ch, malformed(fileConfig, lineNo, "invalid maximum value")
	}

	switch f[12] {
	case "p", "P":
		ch.Scaling = models.ScalingPrimary
	case "s", "S":
		ch.Scaling = models.ScalingSecondary
	default:
		return ch, invalidField(fileConfig, lineNo, "invalid data scaling identifier: "+f[12])
	}
	return ch, nil
}

// parseStatusChannels reads n "Dn,ch_id,ph,ccbm,y" lines.
func (c *cfgCursor) parseStatusChannels(n int) ([]models.StatusChannel, error) {
	start := c.pos
	block, err := c.take(n, "status channel")
	if err != nil {
		return nil, err
	}

	channels := make([]models.StatusChannel, 0, n)
	for i, line := range block {
		lineNo := start + i + 1
		f := splitFields(line)
		if len(f) != statusFields {
			return nil, malformed(fileConfig, lineNo, "the number of fields is fewer than expected - status channel")
		}
		index, ok := parseInt(f[0])
		if !ok {
			return nil, malformed(fileConfig, lineNo, "invalid status channel index")
		}
		ch := models.StatusChannel{
			Index:              index,
			ID:                 f[1],
			Phase:              c.intern.Intern(f[2]),
			MonitoredComponent: c.intern.Intern(f[3]),
		}
		switch f[4] {
		case "0":
			ch.NormalState = 0
		case "1":
			ch.NormalState = 1
		default:
			return nil, invalidField(fileConfig, lineNo, "invalid channel state: "+f[4])
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// parseLineFrequency reads "lf". An unparsable value is null.
func (c *cfgCursor) parseLineFrequency() (*float64, error) {
	line, err := c.next("line frequency")
	if err != nil {
		return nil, err
	}
	if v, ok := parseFloat(line); ok {
		return &v, nil
	}
	return nil, nil
}

// parseSampleRates reads "nrates" followed by "samp,endsamp" lines.
// A declared count of zero is still followed by exactly one rate line.
func (c *cfgCursor) parseSampleRates() (models.SampleRates, error) {
	var sr models.SampleRates
	line, err := c.next("number of sample rates")
	if err != nil {
		return sr, err
	}
	declared, ok := parseInt(line)
	if !ok || declared < 0 {
		return sr, malformed(fileConfig, c.line(), "invalid number of sample rates")
	}
	sr.DeclaredCount = declared

	n := declared
	if n == 0 {
		n = 1
	}
	start := c.pos
	block, err := c.take(n, "sample rate")
	if err != nil {
		return sr, err
	}

	sr.Entries = make([]models.SampleRateEntry, 0, n)
	for i, l := range block {
		lineNo := start + i + 1
		f := splitFields(l)
		if len(f) != sampleRateFields {
			return sr, malformed(fileConfig, lineNo, "the number of fields is fewer than expected - sample rate")
		}
		rate, ok := parseFloat(f[0])
		if !ok {
			return sr, malformed(fileConfig, lineNo, "invalid sample rate")
		}
		last, ok := parseInt(f[1])
		if !ok {
			return sr, malformed(fileConfig, lineNo, "invalid last sample number")
		}
		sr.Entries = append(sr.Entries, models.SampleRateEntry{Rate: rate, LastSampleNumber: last})
	}
	return sr, nil
}

// parseTimes reads the first data time and the trigger time.
func (c *cfgCursor) parseTimes() (models.TimeRecord, error) {
	var tr models.TimeRecord
	start := c.pos
	block, err := c.take(2, "timestamp")
	if err != nil {
		return tr, err
	}
	if tr.FirstDataTime, err = parseCfgTimestamp(block[0], start+1, "invalid first data time"); err != nil {
		return tr, err
	}
	if tr.EventTime, err = parseCfgTimestamp(block[1], start+2, "invalid event time"); err != nil {
		return tr, err
	}
	return tr, nil
}

// parseCfgTimestamp converts "dd/mm/yyyy,hh:mm:ss.ssssss" into Unix nanoseconds.
// A line of any other length is null; a line of the right length with bad content is an error.
func parseCfgTimestamp(s string, lineNo int, reason string) (*int64, error) {
	if len(s) != timestampLength {
		return nil, nil
	}
	day := parseDigits(s[0:2])
	month := parseDigits(s[3:5])
	year := parseDigits(s[6:10])
	hour := parseDigits(s[11:13])
	minute := parseDigits(s[14:16])
	second := parseDigits(s[17:19])
	micros := parseDigits(s[20:26])
	if day < 0 || month < 0 || year < 0 || hour < 0 || minute < 0 || second < 0 || micros < 0 {
		return nil, malformed(fileConfig, lineNo, reason)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, micros*1000, time.UTC)
	// time.Date normalises out-of-range values; reject them instead.
	if t.Day() != day || int(t.Month()) != month || t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return nil, malformed(fileConfig, lineNo, reason)
	}
	ns := t.UnixNano()
	return &ns, nil
}

// parseFileType reads "ft".
func (c *cfgCursor) parseFileType() (models.FileType, error) {
	line, err := c.next("file type")
	if err != nil {
		return "", err
	}
	ft, ok := models.ParseFileType(line)
	if !ok {
		return "", invalidField(fileConfig, c.line(), "invalid file type: "+line)
	}
	return ft, nil
}

// parseTimestampFactor reads "timemult". There is no default.
func (c *cfgCursor) parseTimestampFactor() (float64, error) {
	line, err := c.next("timestamp multiplication factor")
	if err != nil {
		return 0, err
	}
	v, ok := parseFloat(line)
	if !ok {
		return 0, malformed(fileConfig, c.line(), "invalid timestamp multiplication factor")
	}
	return v, nil
}
