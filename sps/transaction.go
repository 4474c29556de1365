package sps

import (
	"fmt"
	"time"
)

// Logger is an optional structured logging interface the engine reports
// through. This allows integration with any logging framework.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config holds the transaction parameters.
type Config struct {
	// Timeout bounds each attempt's wait for a complete response frame.
	Timeout time.Duration
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// Settle is the pause between writing a request and reading the reply;
	// the sensor needs brief processing time before it starts answering.
	Settle time.Duration
	// Retries is the total number of attempts per transaction.
	Retries int
	// Logger receives protocol events (optional).
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		Timeout: 1 * time.Second,
		Backoff: 100 * time.Millisecond,
		Settle:  20 * time.Millisecond,
		Retries: 3,
	}
}

// Option is a functional option for configuring the Sensor.
type Option func(*Config)

// WithTimeout sets the per-attempt response deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithBackoff sets the fixed delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Config) { c.Backoff = d }
}

// WithSettleDelay sets the pause between sending a request and reading the
// response.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) { c.Settle = d }
}

// WithRetries sets the total number of attempts per transaction.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Retries = n
		}
	}
}

// WithLogger sets a logger for protocol events.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Sensor drives the request/response protocol against one SPS030. The
// protocol is strictly half duplex: one transaction at a time, each owning
// the transport for its duration.
type Sensor struct {
	t   Transport
	cfg Config
}

// New creates a Sensor on top of an open transport.
func New(t Transport, opts ...Option) *Sensor {
	if t == nil {
		panic("transport cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sensor{t: t, cfg: cfg}
}

// execute runs one confirmed request/response round trip: flush stale input,
// send the request frame, await the matching response within the deadline.
// Framing failures are retried up to cfg.Retries attempts with a fixed
// backoff; the last failure is surfaced unchanged. Device-reported errors
// and transport failures end the transaction immediately.
func (s *Sensor) execute(cmd byte, payload []byte) (*response, error) {
	frame := encodeFrame(DeviceAddr, cmd, payload)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 1 {
			time.Sleep(s.cfg.Backoff)
		}
		if err := s.t.FlushInput(); err != nil {
			return nil, fmt.Errorf("flush before command 0x%02X: %w", cmd, err)
		}
		if _, err := s.t.Write(frame); err != nil {
			return nil, fmt.Errorf("write command 0x%02X: %w", cmd, err)
		}
		if s.cfg.Settle > 0 {
			time.Sleep(s.cfg.Settle)
		}

		resp, err := readFrame(s.t, DeviceAddr, cmd, time.Now().Add(s.cfg.Timeout))
		if err == nil {
			s.logDebug("response received", "cmd", fmt.Sprintf("0x%02X", cmd), "payload_len", len(resp.payload), "attempt", attempt)
			return resp, nil
		}
		if !transientFailure(err) {
			s.logError("transaction failed", "cmd", fmt.Sprintf("0x%02X", cmd), "attempt", attempt, "err", err)
			return nil, err
		}
		s.logDebug("attempt failed", "cmd", fmt.Sprintf("0x%02X", cmd), "attempt", attempt, "err", err)
		lastErr = err
	}
	return nil, lastErr
}

func (s *Sensor) logDebug(msg string, keysAndValues ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Sensor) logInfo(msg string, keysAndValues ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, keysAndValues...)
	}
}

func (s *Sensor) logError(msg string, keysAndValues ...interface{}) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Error(msg, keysAndValues...)
	}
}
