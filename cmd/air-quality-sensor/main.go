// Command air-quality-sensor samples gas-sensitive resistor readings and
// reports a qualitative air-quality category for each configured sensor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sweeney/air-quality-sensor/internal/adc"
	"github.com/sweeney/air-quality-sensor/internal/config"
	"github.com/sweeney/air-quality-sensor/internal/logic"
	"github.com/sweeney/air-quality-sensor/internal/status"
)

type options struct {
	jsonOut    bool
	printState bool
	listPorts  bool
}

func main() {
	configPath := flag.String("config", "/etc/air-quality-sensor.yaml", "YAML config file (missing file uses defaults)")
	envFile := flag.String("env", ".env", "Env file with AQS_* overrides (missing file is ignored)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	sample := flag.Duration("sample", 0, "Sampling interval (overrides config)")
	report := flag.Duration("report", 0, "Reporting interval (overrides config)")
	warmUp := flag.Duration("warm-up", -1, "Sensor warm-up delay (overrides config)")
	noColor := flag.Bool("no-color", false, "Disable colored log output")
	jsonOut := flag.Bool("json", false, "Print reports as JSON lines")
	printState := flag.Bool("print-state", false, "Print one raw reading per sensor and exit")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *sample > 0 {
		cfg.SampleInterval = *sample
	}
	if *report > 0 {
		cfg.ReportInterval = *report
	}
	if *warmUp >= 0 {
		cfg.WarmUp = *warmUp
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: invalid config: %v\n", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(newLogger(os.Stderr, level, *noColor))

	opts := options{jsonOut: *jsonOut, printState: *printState, listPorts: *listPorts}
	if err := run(cfg, opts); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path, envFile string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
	}))
}

func run(cfg *config.Config, opts options) error {
	if opts.listPorts {
		ports, err := adc.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}

	startTime := time.Now()
	channels, err := openChannels(cfg, startTime)
	if err != nil {
		return err
	}
	defer closeChannels(channels)

	if opts.printState {
		return printState(os.Stdout, channels, time.Sleep)
	}

	slog.Info("starting sensors", "sensors", len(channels), "warm_up", cfg.WarmUp)
	ready := startSensors(channels, cfg.WarmUp, cfg.InitRetries, time.Sleep, time.Now)
	if len(ready) == 0 {
		return fmt.Errorf("no sensor initialized")
	}

	slog.Info("started", "sensors", len(ready), "sample", cfg.SampleInterval, "report", cfg.ReportInterval)

	sampleTicker := time.NewTicker(cfg.SampleInterval)
	defer sampleTicker.Stop()
	reportTicker := time.NewTicker(cfg.ReportInterval)
	defer reportTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ready, os.Stdout, opts.jsonOut, time.Now, sampleTicker.C, reportTicker.C, sigCh)
}

// channel bundles everything belonging to one physical sensor.
type channel struct {
	name    string
	reader  adc.Reader
	sensor  *logic.Sensor
	tracker *status.Tracker
}

func newChannel(name string, r adc.Reader, tracker *status.Tracker) *channel {
	return &channel{
		name:    name,
		reader:  r,
		sensor:  logic.NewSensor(),
		tracker: tracker,
	}
}

func openChannels(cfg *config.Config, startTime time.Time) ([]*channel, error) {
	var channels []*channel
	for _, sc := range cfg.Sensors {
		r, err := openReader(sc)
		if err != nil {
			closeChannels(channels)
			return nil, fmt.Errorf("sensor %s: %w", sc.Name, err)
		}
		tracker := status.NewTracker(sc.Name, startTime, status.Config{
			Source:   sc.Source,
			SampleMs: cfg.SampleInterval.Milliseconds(),
			ReportMs: cfg.ReportInterval.Milliseconds(),
			WarmUpMs: cfg.WarmUp.Milliseconds(),
		})
		channels = append(channels, newChannel(sc.Name, r, tracker))
	}
	return channels, nil
}

func openReader(sc config.SensorConfig) (adc.Reader, error) {
	var r adc.Reader
	switch sc.Source {
	case config.SourceIIO:
		r = adc.NewIIOReader(sc.IIO.Root, sc.IIO.Device, sc.IIO.Channel)
	case config.SourceSerial:
		r = adc.NewSerialReader(sc.Serial.Port, sc.Serial.BaudRate)
	case config.SourceMQTT:
		r = adc.NewMQTTReader(sc.MQTT.Broker, sc.MQTT.Topic, sc.MQTT.ClientID)
	case config.SourceFake:
		r = adc.NewFakeReader(sc.Fake.Samples...)
	default:
		return nil, fmt.Errorf("unknown source %q", sc.Source)
	}

	if sc.Power != nil {
		p, err := adc.NewGPIOPower(sc.Power.Chip, sc.Power.Pin)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("init power line: %w", err)
		}
		r = adc.WithPower(r, p)
	}
	return r, nil
}

func closeChannels(channels []*channel) {
	for _, ch := range channels {
		if err := ch.reader.Close(); err != nil {
			slog.Warn("close failed", "sensor", ch.name, "err", err)
		}
	}
}

// Streaming sources deliver their first reading some time after Configure.
const (
	firstSampleWait = 5 * time.Second
	firstSamplePoll = 100 * time.Millisecond
)

func printState(w io.Writer, channels []*channel, sleep func(time.Duration)) error {
	for _, ch := range channels {
		if err := ch.reader.Configure(); err != nil {
			return fmt.Errorf("sensor %s: configure: %w", ch.name, err)
		}
		raw, err := readFirst(ch.reader, firstSampleWait, sleep)
		if err != nil {
			return fmt.Errorf("sensor %s: read: %w", ch.name, err)
		}
		fmt.Fprintf(w, "%s: raw=%d\n", ch.name, raw)
	}
	return nil
}

// readFirst reads r, polling while it reports adc.ErrNoSample for up to wait.
func readFirst(r adc.Reader, wait time.Duration, sleep func(time.Duration)) (int, error) {
	for waited := time.Duration(0); ; waited += firstSamplePoll {
		raw, err := r.Read()
		if !errors.Is(err, adc.ErrNoSample) || waited >= wait {
			return raw, err
		}
		sleep(firstSamplePoll)
	}
}

// startSensors configures every channel, waits out the warm-up once for all
// of them and seeds each sensor from its first reading. Sensors whose first
// reading is implausible get up to retries further attempts, each after
// another warm-up. It returns the channels that are ready for sampling.
func startSensors(channels []*channel, warmUp time.Duration, retries int, sleep func(time.Duration), now func() time.Time) []*channel {
	var pending []*channel
	for _, ch := range channels {
		if err := ch.reader.Configure(); err != nil {
			slog.Error("sensor error: configure failed", "sensor", ch.name, "err", err)
			continue
		}
		pending = append(pending, ch)
	}
	if len(pending) == 0 {
		return nil
	}

	var ready []*channel
	for attempt := 0; attempt <= retries && len(pending) > 0; attempt++ {
		sleep(warmUp)

		var failed []*channel
		for _, ch := range pending {
			if err := initialize(ch, now()); err != nil {
				slog.Error("sensor error", "sensor", ch.name, "attempt", attempt+1, "err", err)
				failed = append(failed, ch)
				continue
			}
			slog.Info("sensor ready", "sensor", ch.name, "baseline", ch.sensor.Baseline())
			ready = append(ready, ch)
		}
		pending = failed
	}
	return ready
}

func initialize(ch *channel, now time.Time) error {
	raw, err := ch.reader.Read()
	if err != nil {
		return fmt.Errorf("read initial sample: %w", err)
	}
	err = ch.sensor.Initialize(raw, now)
	ch.tracker.Update(ch.sensor.Snapshot())
	return err
}

// runLoop samples every sensor on each sampleTick and reports on each
// reportTick from a separate goroutine. It returns after a signal.
func runLoop(channels []*channel, out io.Writer, jsonOut bool, now func() time.Time, sampleTick, reportTick <-chan time.Time, sig <-chan os.Signal) error {
	trackers := make([]*status.Tracker, len(channels))
	for i, ch := range channels {
		trackers[i] = ch.tracker
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reportLoop(ctx, trackers, out, jsonOut, reportTick)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", signalName(s))
			for _, ch := range channels {
				slog.Info("final state", "sensor", ch.name,
					"category", ch.sensor.Category(), "raw", ch.sensor.RawValue(), "baseline", ch.sensor.Baseline())
			}
			return nil

		case <-sampleTick:
			t := now()
			for _, ch := range channels {
				sampleOnce(ch, t)
			}
		}
	}
}

func sampleOnce(ch *channel, t time.Time) {
	raw, err := ch.reader.Read()
	if err != nil {
		// The cycle is skipped; state stays as it was.
		slog.Warn("adc read error", "sensor", ch.name, "err", err)
		ch.tracker.RecordReadError(err)
		return
	}

	prevCategory := ch.sensor.Category()
	prevBaseline := ch.sensor.Snapshot().BaselineAt

	category := ch.sensor.Classify(raw, t)
	snap := ch.sensor.Snapshot()
	ch.tracker.Update(snap)

	slog.Debug("sample", "sensor", ch.name, "raw", raw, "slope", snap.Slope(), "deviation", snap.Deviation(), "category", category)
	if !snap.BaselineAt.Equal(prevBaseline) {
		slog.Info("baseline updated", "sensor", ch.name, "baseline", snap.Baseline)
	}
	if category != prevCategory {
		slog.Info("category changed", "sensor", ch.name, "from", prevCategory, "to", category, "raw", raw)
	}
}

func reportLoop(ctx context.Context, trackers []*status.Tracker, out io.Writer, jsonOut bool, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			for _, tr := range trackers {
				snap := tr.Snapshot()
				var line string
				if jsonOut {
					line = string(status.FormatJSON(snap))
				} else {
					line = status.FormatLine(snap)
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					slog.Warn("report write failed", "sensor", tr.Name(), "err", err)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
