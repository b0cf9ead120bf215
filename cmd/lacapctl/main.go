// Command lacapctl is a thin manual exerciser for the capture core: it
// loads a session description, runs it against an emulated driver (or a
// real one addressed by --serial or --tcp), prints progress as the
// monitor observes it, and writes the result out as a .lac file. It plays
// the same role for this module that tnctest plays for a TNC: a hand-run
// smoke test, not a supported integration point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/northfork-instruments/logicap/internal/codec"
	"github.com/northfork-instruments/logicap/internal/driver"
	"github.com/northfork-instruments/logicap/internal/logx"
	"github.com/northfork-instruments/logicap/internal/monitor"
	"github.com/northfork-instruments/logicap/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("lacapctl", pflag.ContinueOnError)

	sessionPath := fs.StringP("session", "s", "", "path to a JSON-encoded capture session (required)")
	outPath := fs.StringP("out", "o", "capture.lac", "path to write the resulting .lac file")
	serialPort := fs.String("serial", "", "serial device to capture from, e.g. /dev/ttyUSB0")
	tcpAddr := fs.String("tcp", "", "host:port of a network-attached analyzer")
	seed := fs.Int64("emulate-seed", 1, "RNG seed for the emulated driver when no transport flag is given")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - run one capture session and save it as a .lac file.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s --session session.json [--out capture.lac]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}

	logger := logx.New(os.Stderr, level, "lacapctl")
	logx.SetDefault(logger)

	if *sessionPath == "" {
		fs.Usage()
		return 1
	}

	s, err := loadSession(*sessionPath)
	if err != nil {
		logger.Error("load session", "err", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, deviceID, err := openDriver(ctx, *serialPort, *tcpAddr, *seed, logger)
	if err != nil {
		logger.Error("open driver", "err", err)
		return 1
	}
	defer d.Close()

	mon := monitor.New(logger)

	watchCancel := mon.Watch(ctx, deviceID, d)
	defer watchCancel()

	done := make(chan struct{})

	var result session.CaptureSession

	go printProgress(ctx, d, &result, done)

	if ce := d.StartCapture(ctx, s); ce != driver.CaptureErrorNone {
		logger.Error("capture rejected", "reason", ce)
		return 1
	}

	<-done

	report := mon.GenerateStatusReport()

	var lastCapture monitor.CaptureSummary
	for _, c := range report.RecentHistory {
		if c.DeviceID == deviceID {
			lastCapture = c
		}
	}

	if !lastCapture.Success {
		logger.Error("capture failed")
		return 1
	}

	logger.Info("capture complete", "samples", lastCapture.SampleCount, "duration", lastCapture.Duration)

	encoded, err := codec.Encode(result, d.Caps().DeviceVersion)
	if err != nil {
		logger.Error("encode", "err", err)
		return 1
	}

	if err := os.WriteFile(*outPath, encoded, 0o644); err != nil {
		logger.Error("write output", "err", err)
		return 2
	}

	logger.Info("wrote capture", "path", *outPath, "bytes", len(encoded))

	return 0
}

func loadSession(path string) (session.CaptureSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return session.CaptureSession{}, err
	}

	var s session.CaptureSession
	if err := json.Unmarshal(data, &s); err != nil {
		return session.CaptureSession{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return s, nil
}

func openDriver(ctx context.Context, serialPort, tcpAddr string, seed int64, logger *log.Logger) (driver.AnalyzerDriver, string, error) {
	caps := driver.Caps{
		DeviceVersion:  "lacapctl-emulated",
		ChannelCount:   8,
		MaxFrequency:   24_000_000,
		BlastFrequency: 100_000_000,
		BufferSize:     24_000,
	}

	switch {
	case serialPort != "":
		d, err := driver.OpenSerial(serialPort, 115_200, caps, logger)
		return d, serialPort, err
	case tcpAddr != "":
		d, err := driver.DialTCP(ctx, tcpAddr, caps, logger)
		return d, tcpAddr, err
	default:
		return driver.NewEmulated(caps, seed, logger), "emulated", nil
	}
}

// printProgress streams Progress and CaptureCompleted events to stderr
// until the driver reports completion or ctx is done, then closes done.
// On a successful completion it writes the event's parsed Result session
// (channel samples, and bursts if requested) into *result for the caller
// to encode, since StartCapture's own session argument was passed by
// value and never sees the captured data.
func printProgress(ctx context.Context, d driver.AnalyzerDriver, result *session.CaptureSession, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.Events():
			if !ok {
				return
			}

			if ev.Progress != nil {
				fmt.Fprintf(os.Stderr, "[%s] %d/%d samples\n", ev.Progress.Phase, ev.Progress.CurrentSample, ev.Progress.TotalSamples)
			}

			if ev.CaptureCompleted != nil {
				if ev.CaptureCompleted.Success {
					*result = ev.CaptureCompleted.Result
				}

				return
			}
		}
	}
}
