package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"geotask/internal/kv"
)

// Source tells where the value after a refresh attempt came from.
type Source int

const (
	// SourceNone means the attempt produced no value (failure or nothing stored).
	SourceNone Source = iota
	// SourceLive means a live query succeeded.
	SourceLive
	// SourceStored means the durable reading was used.
	SourceStored
	// SourceDenied means permission was refused and nothing changed.
	SourceDenied
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceStored:
		return "stored"
	case SourceDenied:
		return "denied"
	default:
		return "none"
	}
}

// Attempt is the outcome of one Refresh. Err explains a degraded outcome; it
// is informational and has already been logged.
type Attempt struct {
	Source  Source
	Reading Reading
	Err     error
}

// Cache maintains the last known device position.
//
// Lifecycle: NewCache, Init (load the durable reading, then poll every
// interval), Dispose. Refresh attempts are serialized.
type Cache struct {
	slots    kv.Store
	provider Provider
	conn     Connectivity
	interval time.Duration
	logger   *log.Logger

	mu        sync.RWMutex
	current   Reading
	has       bool
	granted   bool
	listeners []func(Reading)

	attemptMu sync.Mutex
	updates   chan Update

	initOnce    sync.Once
	disposeOnce sync.Once
	cancel      context.CancelFunc
	done        chan struct{}

	bgMu         sync.Mutex
	bgRegistered bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithInterval overrides the polling period.
func WithInterval(d time.Duration) CacheOption {
	return func(c *Cache) { c.interval = d }
}

// WithLogger sets the logger for degraded outcomes.
func WithLogger(l *log.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache creates a cache persisting into slots.
func NewCache(slots kv.Store, provider Provider, conn Connectivity, opts ...CacheOption) *Cache {
	c := &Cache{
		slots:    slots,
		provider: provider,
		conn:     conn,
		interval: DefaultInterval,
		logger:   log.New(io.Discard, "", 0),
		updates:  make(chan Update, 16),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	return c
}

// Current returns the value exposed to consumers.
func (c *Cache) Current() (Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.has
}

// OnChange registers fn to be called with every new current value.
func (c *Cache) OnChange(fn func(Reading)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Sink returns the channel background updates should be delivered to.
func (c *Cache) Sink() chan<- Update {
	return c.updates
}

// Init loads the durable reading and starts polling: one attempt right away,
// then one per interval, until Dispose or ctx is done.
// Only the first call has an effect.
func (c *Cache) Init(ctx context.Context) {
	c.initOnce.Do(func() {
		c.LoadStored(ctx)
		loopCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
		go c.run(loopCtx)
	})
}

// Dispose stops polling and unregisters background updates.
func (c *Cache) Dispose() {
	c.disposeOnce.Do(func() {
		c.mu.RLock()
		cancel := c.cancel
		c.mu.RUnlock()
		if cancel != nil {
			cancel()
			<-c.done
		}
		c.stopBackground()
	})
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Printf("location polling started: interval=%s", c.interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("location polling stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			c.Refresh(ctx)
		case u := <-c.updates:
			c.handleUpdate(ctx, u)
		}
	}
}

// Refresh performs one query attempt. Permission denial leaves the current
// value untouched. Without connectivity the durable reading is re-read.
// Otherwise a live query replaces the current value and is persisted.
func (c *Cache) Refresh(ctx context.Context) Attempt {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()

	if !c.isGranted() {
		status, err := c.provider.RequestForegroundPermission(ctx)
		if err != nil {
			c.logger.Printf("error requesting location permission: %v", err)
			return Attempt{Source: SourceNone, Err: fmt.Errorf("request permission: %w", err)}
		}
		if status != PermissionGranted {
			c.logger.Printf("location permission not granted")
			return Attempt{Source: SourceDenied, Err: ErrPermissionDenied}
		}
		c.setGranted(true)
	}

	online, err := c.conn.IsConnected(ctx)
	if err != nil {
		c.logger.Printf("error checking connectivity: %v", err)
		online = false
	}
	if !online {
		c.logger.Printf("no internet connection, using stored location")
		if r, ok := c.LoadStored(ctx); ok {
			return Attempt{Source: SourceStored, Reading: r, Err: ErrOffline}
		}
		return Attempt{Source: SourceNone, Err: ErrOffline}
	}

	r, err := c.provider.CurrentPosition(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.setGranted(false)
		}
		c.logger.Printf("error getting location: %v", err)
		return Attempt{Source: SourceNone, Err: err}
	}

	c.set(r)
	c.store(ctx, r)
	return Attempt{Source: SourceLive, Reading: r}
}

// LoadStored makes the durable reading current, if there is one.
func (c *Cache) LoadStored(ctx context.Context) (Reading, bool) {
	data, err := c.slots.Get(ctx, kv.LocationKey)
	if errors.Is(err, kv.ErrNotFound) {
		return Reading{}, false
	}
	if err != nil {
		c.logger.Printf("error loading stored location: %v", err)
		return Reading{}, false
	}

	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		c.logger.Printf("error loading stored location: %v", err)
		return Reading{}, false
	}
	c.set(r)
	return r, true
}

// handleUpdate applies a background delivery. Only a reading at least as new
// as the current one replaces it.
func (c *Cache) handleUpdate(ctx context.Context, u Update) {
	if u.Err != nil {
		c.logger.Printf("background location error: %v", u.Err)
		return
	}
	if len(u.Locations) == 0 {
		return
	}
	r := u.Locations[0]

	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()

	if cur, ok := c.Current(); ok && r.Timestamp < cur.Timestamp {
		return
	}
	c.set(r)
	c.store(ctx, r)
}

func (c *Cache) store(ctx context.Context, r Reading) {
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.Printf("error storing location: %v", err)
		return
	}
	if err := c.slots.Set(ctx, kv.LocationKey, data); err != nil {
		c.logger.Printf("error storing location: %v", err)
	}
}

func (c *Cache) set(r Reading) {
	c.mu.Lock()
	c.current = r
	c.has = true
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(r)
	}
}

func (c *Cache) isGranted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.granted
}

func (c *Cache) setGranted(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted = v
}
