// Command comtrade decodes a COMTRADE recording from disk.
//
//	comtrade -cfg rec.cfg -dat rec.dat [-inf rec.inf] [-format json|yaml|msgpack] [-arrow out.arrow] [-critical]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/export"
	"github.com/comtrade-viewer/backend/internal/logging"
	"github.com/comtrade-viewer/backend/internal/models"
	"github.com/comtrade-viewer/backend/internal/parser"
)

type options struct {
	cfg      string
	dat      string
	inf      string
	format   string
	arrow    string
	out      string
	critical bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.cfg, "cfg", "", "configuration file (required)")
	flag.StringVar(&opts.dat, "dat", "", "data file; omit to decode the configuration only")
	flag.StringVar(&opts.inf, "inf", "", "information file")
	flag.StringVar(&opts.format, "format", "json", "output format: json, yaml or msgpack")
	flag.StringVar(&opts.arrow, "arrow", "", "also write the data table as an Arrow IPC stream to this file")
	flag.StringVar(&opts.out, "o", "", "output file (default stdout)")
	flag.BoolVar(&opts.critical, "critical", false, "fail on unparsable per-sample timestamps instead of nulling them")
	flag.BoolVar(&opts.verbose, "v", false, "log progress to stderr")
	flag.Parse()

	if opts.cfg == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Config{Level: level, Format: "console", OutputPath: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "comtrade: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, log *zap.Logger) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	rec, err := decode(opts, log)
	if err != nil {
		return err
	}

	if opts.arrow != "" {
		if err := writeArrow(opts.arrow, rec); err != nil {
			return err
		}
		log.Debug("arrow written", zap.String("path", opts.arrow), zap.Int("records", len(rec.Data)))
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := export.Write(bw, format, rec); err != nil {
		return err
	}
	return bw.Flush()
}

// decode reads and decodes the files named in opts. Plain paths are turned
// into path references.
func decode(opts options, log *zap.Logger) (export.Recording, error) {
	var rec export.Recording

	start := time.Now()
	cfg, err := parser.ParseConfigurationRef(asRef(opts.cfg))
	if err != nil {
		return rec, err
	}
	rec.Config = cfg
	log.Debug("configuration decoded",
		zap.String("station", cfg.Station.StationName),
		zap.Int("analog", len(cfg.AnalogChannels)),
		zap.Int("status", len(cfg.StatusChannels)),
		zap.String("fileType", string(cfg.FileType)),
		zap.Duration("elapsed", time.Since(start)))

	if opts.dat != "" {
		start = time.Now()
		table, err := parser.ParseDataRef(asRef(opts.dat), parser.SchemaFor(cfg, opts.critical))
		if err != nil {
			return rec, err
		}
		rec.Data = table
		log.Debug("data decoded", zap.Int("records", len(table)), zap.Duration("elapsed", time.Since(start)))
	}

	if opts.inf != "" {
		info, err := parser.ParseInfoRef(asRef(opts.inf))
		if err != nil {
			return rec, err
		}
		rec.Info = info
	}
	return rec, nil
}

func asRef(path string) string {
	if parser.IsPathReference(path) {
		return path
	}
	return parser.PathMarker + path
}

func writeArrow(path string, rec export.Recording) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	table := rec.Data
	if table == nil {
		table = models.DataTable{}
	}
	if err := export.WriteArrow(f, table, len(rec.Config.AnalogChannels), len(rec.Config.StatusChannels)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
