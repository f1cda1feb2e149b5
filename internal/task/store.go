package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"geotask/internal/kv"
)

// DefaultWriteTimeout bounds a single durable write.
const DefaultWriteTimeout = 5 * time.Second

// ErrCorrupt marks a durable task record that could not be parsed.
var ErrCorrupt = errors.New("corrupt task record")

// Store is the single source of truth for tasks.
//
// Mutations apply to memory synchronously and in call order. Each one bumps a
// sequence number and wakes a single writer goroutine that persists the full
// latest snapshot, so writes never interleave and the durable slot converges
// to the last in-memory state. Storage failures are logged, never returned to
// the mutating caller, and never roll memory back.
type Store struct {
	slots        kv.Store
	now          func() time.Time
	newID        func() string
	logger       *log.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	tasks   []Task
	seq     uint64 // bumped by every mutation
	written uint64 // seq of the last snapshot known to be durable

	writeMu sync.Mutex // serializes persist

	initOnce    sync.Once
	disposeOnce sync.Once
	kick        chan struct{}
	quit        chan struct{}
	stopped     chan struct{}
	started     bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger for storage failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithWriteTimeout bounds each durable write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) { s.writeTimeout = d }
}

// NewStore creates an empty store mirrored to slots.
// Call Init before relying on the contents.
func NewStore(slots kv.Store, opts ...Option) *Store {
	s := &Store{
		slots:        slots,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       log.New(io.Discard, "", 0),
		writeTimeout: DefaultWriteTimeout,
		tasks:        []Task{},
		kick:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	return s
}

// Init loads the durable collection and starts the writer.
// Only the first call has an effect.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.Load(ctx)
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run()
	})
}

// Dispose flushes pending writes and stops the writer.
func (s *Store) Dispose(ctx context.Context) error {
	s.disposeOnce.Do(func() {
		close(s.quit)
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()
		if started {
			<-s.stopped
		}
	})
	return s.Flush(ctx)
}

// Load replaces the in-memory collection with the durable one.
// A missing slot or a read failure yields an empty collection. Duplicate ids
// keep their first occurrence. An unparseable
// record also yields an empty collection; its raw bytes are copied to
// kv.TasksCorruptKey first so they survive the next write.
func (s *Store) Load(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	loaded, err := s.read(ctx)
	if err != nil {
		s.logger.Printf("error loading tasks: %v", err)
	}

	// Nothing to write back until the next mutation, even after a failed
	// read; an empty collection must not overwrite an unreadable slot.
	s.mu.Lock()
	s.tasks = loaded
	s.seq++
	s.written = s.seq
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context) ([]Task, error) {
	data, err := s.slots.Get(ctx, kv.TasksKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Task{}, nil
	}
	if err != nil {
		return []Task{}, fmt.Errorf("read %s: %w", kv.TasksKey, err)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		if qerr := s.slots.Set(ctx, kv.TasksCorruptKey, data); qerr != nil {
			s.logger.Printf("error preserving corrupt tasks: %v", qerr)
		}
		return []Task{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if tasks == nil {
		return []Task{}, nil
	}

	seen := make(map[string]bool, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if seen[t.ID] {
			s.logger.Printf("dropping duplicate task id %q", t.ID)
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out, nil
}

// Tasks returns a snapshot of the collection in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.clone()
	}
	return out
}

// Task returns the task with the given id.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].clone(), true
	}
	return Task{}, false
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// AddTask appends a new incomplete task stamped with a fresh id and the
// current time, and schedules a write.
func (s *Store) AddTask(in Input) Task {
	s.mu.Lock()
	t := Task{
		ID:          s.uniqueID(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Location:    in.Location,
		TriggerTime: in.TriggerTime,
		IsRecurring: in.IsRecurring,
		IsComplete:  false,
		CreatedAt:   s.now().UnixMilli(),
	}
	s.tasks = append(s.tasks, t)
	s.seq++
	s.mu.Unlock()

	s.schedule()
	return t.clone()
}

// UpdateTask merges p into the task with the given id.
// Returns false, and changes nothing, if there is no such task.
func (s *Store) UpdateTask(id string, p Patch) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	t := s.tasks[i].clone()
	p.apply(&t)
	s.tasks[i] = t
	s.seq++
	s.mu.Unlock()

	s.schedule()
	return true
}

// CompleteTask marks a task complete and stamps CompletedAt with the current
// time, overwriting any earlier stamp.
func (s *Store) CompleteTask(id string) bool {
	return s.UpdateTask(id, Patch{
		IsComplete:  Ptr(true),
		CompletedAt: Ptr(s.now().UnixMilli()),
	})
}

// DeleteTask removes the task with the given id, keeping the order of the rest.
func (s *Store) DeleteTask(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	next = append(next, s.tasks[i+1:]...)
	s.tasks = next
	s.seq++
	s.mu.Unlock()

	s.schedule()
	return true
}

// Flush writes the latest snapshot if it is not durable yet.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// uniqueID must be called with mu held.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Store) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
		// a write is already pending and will pick up this snapshot
	}
}

func (s *Store) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.kick:
			_ = s.persist(context.Background())
		case <-s.quit:
			return
		}
	}
}

func (s *Store) persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	seq := s.seq
	if seq == s.written {
		s.mu.RUnlock()
		return nil
	}
	data, err := json.Marshal(s.tasks)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Printf("error encoding tasks: %v", err)
		return fmt.Errorf("encode tasks: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.slots.Set(ctx, kv.TasksKey, data); err != nil {
		s.logger.Printf("error saving tasks: %v", err)
		return fmt.Errorf("save tasks: %w", err)
	}

	s.mu.Lock()
	s.written = seq
	s.mu.Unlock()
	return nil
}
