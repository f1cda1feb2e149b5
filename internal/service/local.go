package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"geotask/internal/config"
	"geotask/internal/geo"
	"geotask/internal/kv"
	"geotask/internal/kv/bolt"
	"geotask/internal/kv/sqlite"
	"geotask/internal/location"
	"geotask/internal/location/fixed"
	"geotask/internal/netcheck"
	"geotask/internal/task"
)

// closeTimeout bounds the final flush in Close.
const closeTimeout = 5 * time.Second

// Local implements Service on this machine.
type Local struct {
	slots  kv.Store
	tasks  *task.Store
	cache  *location.Cache
	logger *log.Logger
}

// Options configures NewLocal.
type Options struct {
	PollInterval time.Duration
	Logger       *log.Logger
	TaskOptions  []task.Option
}

// Open opens the configured backend and builds a Local on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Local, error) {
	slots, err := OpenSlots(cfg)
	if err != nil {
		return nil, err
	}

	var coords *location.Coords
	if lat, lng, ok := cfg.FixedPosition(); ok {
		coords = &location.Coords{Latitude: lat, Longitude: lng}
	}

	return NewLocal(ctx, slots, fixed.New(coords), netcheck.New(cfg.ProbeAddr, 0), Options{
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	}), nil
}

// OpenSlots opens the durable store selected by cfg.Backend.
func OpenSlots(cfg *config.Config) (kv.Store, error) {
	if cfg.Backend == config.BackendMemory {
		return kv.NewMemory(), nil
	}
	if cfg.DBPath == "" {
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("%w: create config dir: %w", kv.ErrStorage, err)
		}
	}

	var (
		slots kv.Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendBolt:
		slots, err = bolt.Open(cfg.DatabasePath())
	case config.BackendSQLite:
		slots, err = sqlite.Open(cfg.DatabasePath())
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kv.ErrStorage, err)
	}
	return slots, nil
}

// NewLocal loads the task collection and the stored location from slots.
// The returned Local owns slots and closes it in Close.
func NewLocal(ctx context.Context, slots kv.Store, provider location.Provider, conn location.Connectivity, opts Options) *Local {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	taskOpts := append([]task.Option{task.WithLogger(logger)}, opts.TaskOptions...)
	l := &Local{
		slots:  slots,
		tasks:  task.NewStore(slots, taskOpts...),
		cache:  location.NewCache(slots, provider, conn, location.WithInterval(opts.PollInterval), location.WithLogger(logger)),
		logger: logger,
	}
	l.tasks.Init(ctx)
	l.cache.LoadStored(ctx)
	return l
}

// Tasks implements Service.
func (l *Local) Tasks(ctx context.Context) ([]task.Task, error) {
	return l.tasks.Tasks(), nil
}

// Task implements Service.
func (l *Local) Task(ctx context.Context, id string) (task.Task, error) {
	t, ok := l.tasks.Task(id)
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// AddTask implements Service.
func (l *Local) AddTask(ctx context.Context, in task.Input) (task.Task, error) {
	t := l.tasks.AddTask(in)
	return t, l.flush(ctx)
}

// UpdateTask implements Service.
func (l *Local) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if !l.tasks.UpdateTask(id, p) {
		return task.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t, _ := l.tasks.Task(id)
	return t, l.flush(ctx)
}

// CompleteTask implements Service.
func (l *Local) CompleteTask(ctx context.Context, id string) (task.Task, error) {
	if !l.tasks.CompleteTask(id) {
		return task.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t, _ := l.tasks.Task(id)
	return t, l.flush(ctx)
}

// DeleteTask implements Service.
func (l *Local) DeleteTask(ctx context.Context, id string) error {
	if !l.tasks.DeleteTask(id) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return l.flush(ctx)
}

// flush makes the latest mutation durable before reporting success. The
// in-memory change stands even when this fails.
func (l *Local) flush(ctx context.Context) error {
	if err := l.tasks.Flush(ctx); err != nil {
		if errors.Is(err, kv.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %w", kv.ErrStorage, err)
	}
	return nil
}

// Location implements Service.
func (l *Local) Location(ctx context.Context) (location.Reading, bool) {
	return l.cache.Current()
}

// Where implements Service.
func (l *Local) Where(ctx context.Context) (Where, error) {
	w := Where{Attempt: l.cache.Refresh(ctx)}
	if err := ctx.Err(); err != nil {
		return w, err
	}

	w.Reading, w.Known = l.cache.Current()
	if !w.Known {
		return w, nil
	}

	var zones []geo.Point
	for _, t := range l.tasks.Tasks() {
		zones = append(zones, geo.Point{Latitude: t.Location.Latitude, Longitude: t.Location.Longitude})
	}
	user := geo.Point{Latitude: w.Reading.Coords.Latitude, Longitude: w.Reading.Coords.Longitude}
	w.Region = geo.Fit(user, zones)
	return w, nil
}

// RequestPermissions implements Service.
func (l *Local) RequestPermissions(ctx context.Context) (location.Permissions, error) {
	p := l.cache.RequestPermissions(ctx)
	return p, ctx.Err()
}

// Watch implements Service. Background deliveries registered by
// RequestPermissions are applied by the same loop.
func (l *Local) Watch(ctx context.Context, fn func(location.Reading)) error {
	changes := make(chan location.Reading, 16)
	l.cache.OnChange(func(r location.Reading) {
		select {
		case changes <- r:
		case <-ctx.Done():
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.cache.Init(gctx)
		<-gctx.Done()
		l.cache.Dispose()
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case r := <-changes:
				fn(r)
			}
		}
	})
	return g.Wait()
}

// Close implements Service.
func (l *Local) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	l.cache.Dispose()
	var errs []error
	if err := l.tasks.Dispose(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := l.slots.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
