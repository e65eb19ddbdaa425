// Package ingest implements the in-process telemetry client: an event
// buffer, a disk spool for sustained outages, and a flush engine that POSTs
// batches to a remote collector over SSRF-hardened HTTPS.
package ingest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
	"github.com/peekapi-dev/telemetry-go/pkg/logger"
	"github.com/peekapi-dev/telemetry-go/pkg/metrics"
)

const (
	defaultFlushInterval   = 10 * time.Second
	defaultBatchSize       = 100
	defaultMaxBufferSize   = 10000
	defaultMaxEventBytes   = 64 * 1024
	defaultMaxStorageBytes = 5 * 1024 * 1024
	defaultRequestTimeout  = 5 * time.Second
	mailboxCapacity        = 1024
)

// TLSConfig carries client certificate material for the submitter's
// transport, mirroring crypto/tls.Config's shape.
type TLSConfig struct {
	CertFile           string
	KeyFile            string
	CAFile             string
	InsecureSkipVerify bool
}

// Options configures a Client. Endpoint and APIKey are required; every
// other field has a default applied by New.
type Options struct {
	APIKey   string
	Endpoint string

	FlushInterval   time.Duration
	BatchSize       int
	MaxBufferSize   int
	MaxEventBytes   int
	MaxStorageBytes int64
	StoragePath     string
	RequestTimeout  time.Duration

	TLS   TLSConfig
	Debug bool

	// OnError, if set, receives the error of every failed flush submission.
	// Construction failures are returned directly from New; spool write
	// failures are only logged and never reach OnError.
	OnError func(error)
}

func (o *Options) applyDefaults() {
	if o.FlushInterval <= 0 {
		o.FlushInterval = defaultFlushInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxBufferSize <= 0 {
		o.MaxBufferSize = defaultMaxBufferSize
	}
	if o.MaxEventBytes <= 0 {
		o.MaxEventBytes = defaultMaxEventBytes
	}
	if o.MaxStorageBytes <= 0 {
		o.MaxStorageBytes = defaultMaxStorageBytes
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
}

// message types sent to the actor goroutine's mailbox.
type trackMsg struct{ event RequestEvent }
type flushMsg struct{ done chan error }
type shutdownMsg struct {
	done chan error
	// sync marks a signal-triggered shutdown: the actor spills the buffer to
	// disk and returns immediately, skipping the best-effort HTTP flush that
	// an explicit Shutdown call attempts first.
	sync bool
}

// Client buffers RequestEvents and periodically flushes them to a remote
// collector. All mutable delivery state (buffer, flush engine, submitter) is
// owned by a single actor goroutine; every public method communicates with
// it over mailbox, never by touching shared state directly. Signal handling
// runs in its own goroutine and reaches the actor through the same mailbox.
type Client struct {
	opts     Options
	endpoint string

	mailbox chan any
	done    chan struct{}

	signals chan os.Signal

	shutdownOnce    sync.Once
	shutdownStarted chan struct{}
}

// New validates opts, recovers any previously spooled events, and starts
// the client's background actor goroutine and signal handlers.
func New(opts Options) (*Client, error) {
	opts.applyDefaults()

	u, err := validateEndpoint(opts.Endpoint, opts.Debug)
	if err != nil {
		return nil, err
	}

	if err := validateAPIKey(opts.APIKey); err != nil {
		return nil, err
	}

	if opts.StoragePath == "" {
		opts.StoragePath = defaultSpoolPath(u.String())
	}

	var tlsConfig *tls.Config
	if opts.TLS.InsecureSkipVerify || opts.TLS.CertFile != "" || opts.TLS.CAFile != "" {
		tlsConfig, err = buildTLSConfig(opts.TLS)
		if err != nil {
			return nil, err
		}
	}

	sp := newSpool(opts.StoragePath, opts.MaxStorageBytes)
	buf := newBuffer(opts.MaxBufferSize)
	sp.Recover(buf)

	sub := newSubmitter(u, opts.APIKey, opts.RequestTimeout, tlsConfig)
	engine := newFlushEngine(sub, sp, opts.OnError)

	c := &Client{
		opts:     opts,
		endpoint: u.String(),
		mailbox:  make(chan any, mailboxCapacity),
		done:     make(chan struct{}),
		signals:  make(chan os.Signal, 1),

		shutdownStarted: make(chan struct{}),
	}

	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)

	go c.run(buf, engine, sub)
	go c.watchSignals()

	return c, nil
}

func buildTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // operator opt-in only
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfiguration, "failed to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfiguration, "failed to read CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, apperror.New(apperror.CodeConfiguration, "no certificates found in CA file")
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

// run is the actor loop: it owns buf, engine, and sub exclusively, and is
// the only goroutine permitted to touch them.
func (c *Client) run(buf *buffer, engine *flushEngine, sub *submitter) {
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()
	defer close(c.done)
	defer sub.Close()

	m := metrics.Get()

	for {
		select {
		case raw := <-c.mailbox:
			switch msg := raw.(type) {
			case trackMsg:
				ev, ok := admit(msg.event, c.opts.MaxEventBytes)
				if !ok {
					m.RecordDropped("oversize")
					if c.opts.Debug {
						logger.Debug("ingest: dropped oversize event", "max_event_bytes", c.opts.MaxEventBytes)
					}
					continue
				}
				if dropped := buf.Append(ev); dropped {
					m.RecordDropped("buffer_full")
				}
				m.EventsTrackedTotal.Inc()
				if buf.Len() >= c.opts.BatchSize {
					engine.Flush(context.Background(), buf, c.opts.BatchSize)
				}
				m.BufferLength.Set(float64(buf.Len()))

			case flushMsg:
				engine.Flush(context.Background(), buf, c.opts.BatchSize)
				m.BufferLength.Set(float64(buf.Len()))
				msg.done <- nil

			case shutdownMsg:
				if msg.sync {
					c.spillOnShutdown(buf, engine)
				} else {
					c.drainOnShutdown(buf, engine)
				}
				msg.done <- nil
				return
			}

		case <-ticker.C:
			engine.Flush(context.Background(), buf, c.opts.BatchSize)
			m.BufferLength.Set(float64(buf.Len()))
		}
	}
}

// drainOnShutdown makes one final flush attempt of up to BatchSize events,
// then spills whatever remains to disk so it survives process exit.
func (c *Client) drainOnShutdown(buf *buffer, engine *flushEngine) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	defer cancel()

	engine.Flush(ctx, buf, c.opts.BatchSize)

	if remaining := buf.SpliceAll(); len(remaining) > 0 {
		if err := engine.spool.Write(remaining); err != nil {
			logger.Error("ingest: failed to spool remaining events on shutdown", "error", err)
		}
	}
}

// spillOnShutdown spills every buffered event straight to disk without
// attempting any HTTP flush. Used for signal-triggered shutdown, where the
// process may be on its way out and a network round trip would just delay
// it.
func (c *Client) spillOnShutdown(buf *buffer, engine *flushEngine) {
	if remaining := buf.SpliceAll(); len(remaining) > 0 {
		if err := engine.spool.Write(remaining); err != nil {
			logger.Error("ingest: failed to spool remaining events on shutdown", "error", err)
		}
	}
}

// watchSignals triggers a shutdown on SIGINT/SIGTERM. It never calls
// os.Exit; the host process remains responsible for its own exit sequencing.
func (c *Client) watchSignals() {
	sig, ok := <-c.signals
	if !ok {
		return
	}
	logger.Info("ingest: received signal, shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout+2*time.Second)
	defer cancel()
	if err := c.shutdown(ctx, true); err != nil {
		logger.Error("ingest: shutdown after signal failed", "error", err)
	}
}

// Track enqueues ev for later delivery. It never blocks: if the actor's
// mailbox is full, the event is dropped and counted rather than applying
// back-pressure to the caller's request path.
func (c *Client) Track(ev RequestEvent) {
	select {
	case c.mailbox <- trackMsg{event: ev}:
	default:
		metrics.Get().RecordDropped("mailbox_full")
	}
}

// Flush blocks until one flush attempt has run (subject to the engine's own
// in-flight and backoff-window rules), or ctx is done.
func (c *Client) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	select {
	case c.mailbox <- flushMsg{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return apperror.ErrClientShutdown
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the ticker and signal handlers, makes one final flush of
// up to BatchSize events, spills anything undelivered to disk, and waits for
// the actor goroutine to exit. A call made while another shutdown is still
// in progress returns ErrShutdownInFlight; a call after shutdown has
// completed returns nil.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.shutdown(ctx, false)
}

// shutdown is shared by the public Shutdown and the signal handler. sync
// selects the signal-triggered variant, which spills to disk without
// attempting an HTTP flush first. Either caller races to the same
// shutdownOnce, so a signal during an in-flight explicit Shutdown (or vice
// versa) only ever sends one shutdownMsg.
func (c *Client) shutdown(ctx context.Context, sync bool) error {
	alreadyStarted := true
	var sendErr error

	c.shutdownOnce.Do(func() {
		alreadyStarted = false
		close(c.shutdownStarted)

		signal.Stop(c.signals)
		close(c.signals)

		done := make(chan error, 1)
		select {
		case c.mailbox <- shutdownMsg{done: done, sync: sync}:
		case <-ctx.Done():
			sendErr = ctx.Err()
			return
		}

		select {
		case sendErr = <-done:
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
	})

	if alreadyStarted {
		select {
		case <-c.done:
			return nil
		default:
			return apperror.ErrShutdownInFlight
		}
	}

	select {
	case <-c.done:
		return sendErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
