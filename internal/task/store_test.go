package task_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"geotask/internal/kv"
	"geotask/internal/task"
)

// stepClock advances by one millisecond on every read.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(t *testing.T, slots kv.Store, opts ...task.Option) *task.Store {
	t.Helper()
	opts = append([]task.Option{task.WithClock(newStepClock().Now)}, opts...)
	s := task.NewStore(slots, opts...)
	s.Init(context.Background())
	t.Cleanup(func() { _ = s.Dispose(context.Background()) })
	return s
}

func sampleInput(title string) task.Input {
	return task.Input{
		Title:       title,
		Description: "near the station",
		Priority:    task.PriorityHigh,
		Location:    task.Location{Latitude: 52.52, Longitude: 13.405, Radius: 150},
		TriggerTime: "08:30",
		IsRecurring: true,
	}
}

func TestAddTask_AssignsStoreFields(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	in := sampleInput("Pick up parcel")
	got := s.AddTask(in)

	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	stored := tasks[0]
	if stored.ID == "" || stored.ID != got.ID {
		t.Fatalf("expected returned id %q to match stored id %q", got.ID, stored.ID)
	}
	if stored.IsComplete {
		t.Error("new task should not be complete")
	}
	if stored.CreatedAt == 0 {
		t.Error("expected CreatedAt to be set")
	}
	if stored.CompletedAt != nil {
		t.Error("expected CompletedAt to be unset")
	}
	if stored.Title != in.Title || stored.Description != in.Description ||
		stored.Priority != in.Priority || stored.Location != in.Location ||
		stored.TriggerTime != in.TriggerTime || stored.IsRecurring != in.IsRecurring {
		t.Errorf("input fields not copied: %+v", stored)
	}
}

func TestAddTask_DistinctIDs(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s.AddTask(sampleInput(fmt.Sprintf("task %d", i)))
	}
	for _, tk := range s.Tasks() {
		if seen[tk.ID] {
			t.Fatalf("duplicate id %q", tk.ID)
		}
		seen[tk.ID] = true
	}
	if len(seen) != 200 {
		t.Fatalf("expected 200 ids, got %d", len(seen))
	}
}

func TestAddTask_RedrawsCollidingID(t *testing.T) {
	ids := []string{"same", "same", "", "other"}
	var mu sync.Mutex
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id
	}
	s := newTestStore(t, kv.NewMemory(), task.WithIDGenerator(gen))

	first := s.AddTask(sampleInput("a"))
	second := s.AddTask(sampleInput("b"))

	if first.ID != "same" {
		t.Fatalf("expected first id 'same', got %q", first.ID)
	}
	if second.ID != "other" {
		t.Fatalf("expected colliding and empty ids to be skipped, got %q", second.ID)
	}
}

func TestAddTask_PreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	for _, title := range []string{"one", "two", "three"} {
		s.AddTask(sampleInput(title))
	}
	var titles []string
	for _, tk := range s.Tasks() {
		titles = append(titles, tk.Title)
	}
	if !reflect.DeepEqual(titles, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected order: %v", titles)
	}
}

func TestUpdateTask_ChangesOnlyNamedField(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a := s.AddTask(sampleInput("a"))
	b := s.AddTask(sampleInput("b"))

	if ok := s.UpdateTask(a.ID, task.Patch{Title: task.Ptr("X")}); !ok {
		t.Fatal("expected update to find task")
	}

	got, _ := s.Task(a.ID)
	want := a
	want.Title = "X"
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	other, _ := s.Task(b.ID)
	if !reflect.DeepEqual(other, b) {
		t.Errorf("other task changed: %+v", other)
	}
}

func TestUpdateTask_UnknownIDIsNoop(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots)
	s.AddTask(sampleInput("a"))
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	before := s.Tasks()
	writes := slots.Writes()

	if ok := s.UpdateTask("missing", task.Patch{Title: task.Ptr("X")}); ok {
		t.Fatal("expected update of unknown id to report false")
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !reflect.DeepEqual(before, s.Tasks()) {
		t.Error("collection changed")
	}
	if slots.Writes() != writes {
		t.Errorf("expected no extra write, got %d -> %d", writes, slots.Writes())
	}
}

func TestUpdateTask_MergesLocation(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a := s.AddTask(sampleInput("a"))

	loc := task.Location{Latitude: 1, Longitude: 2, Radius: 25}
	s.UpdateTask(a.ID, task.Patch{Location: &loc, IsRecurring: task.Ptr(false)})

	got, _ := s.Task(a.ID)
	if got.Location != loc {
		t.Errorf("expected location %+v, got %+v", loc, got.Location)
	}
	if got.IsRecurring {
		t.Error("expected IsRecurring false")
	}
	if got.Title != "a" || got.TriggerTime != "08:30" {
		t.Errorf("unpatched fields changed: %+v", got)
	}
}

func TestUpdateTask_ReopenClearsCompletion(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots)
	a := s.AddTask(sampleInput("a"))
	s.CompleteTask(a.ID)

	s.UpdateTask(a.ID, task.Patch{IsComplete: task.Ptr(false), ClearCompletedAt: true, TriggerTime: task.Ptr("")})

	got, _ := s.Task(a.ID)
	if got.IsComplete || got.CompletedAt != nil || got.TriggerTime != "" {
		t.Fatalf("expected reopened task without time fields, got %+v", got)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	reloaded := newTestStore(t, slots)
	got, _ = reloaded.Task(a.ID)
	if got.CompletedAt != nil || got.TriggerTime != "" {
		t.Errorf("expected cleared fields to persist, got %+v", got)
	}
}

func TestPatch_ClearCompletedAtIsNotEmpty(t *testing.T) {
	if (task.Patch{ClearCompletedAt: true}).IsEmpty() {
		t.Error("expected ClearCompletedAt patch to be non-empty")
	}
}

func TestCompleteTask_SetsAndRestampsCompletion(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a := s.AddTask(sampleInput("a"))

	if !s.CompleteTask(a.ID) {
		t.Fatal("expected complete to find task")
	}
	first, _ := s.Task(a.ID)
	if !first.IsComplete || first.CompletedAt == nil {
		t.Fatalf("expected completed task, got %+v", first)
	}
	if *first.CompletedAt < first.CreatedAt {
		t.Errorf("CompletedAt %d before CreatedAt %d", *first.CompletedAt, first.CreatedAt)
	}

	s.CompleteTask(a.ID)
	second, _ := s.Task(a.ID)
	if !second.IsComplete {
		t.Error("expected task to stay complete")
	}
	if *second.CompletedAt <= *first.CompletedAt {
		t.Errorf("expected later CompletedAt, got %d then %d", *first.CompletedAt, *second.CompletedAt)
	}
}

func TestCompleteTask_UnknownID(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	if s.CompleteTask("missing") {
		t.Fatal("expected false for unknown id")
	}
	if s.Len() != 0 {
		t.Fatal("expected empty store")
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a := s.AddTask(sampleInput("a"))
	b := s.AddTask(sampleInput("b"))
	c := s.AddTask(sampleInput("c"))

	if !s.DeleteTask(b.ID) {
		t.Fatal("expected delete to find task")
	}
	tasks := s.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != a.ID || tasks[1].ID != c.ID {
		t.Fatalf("unexpected remaining order: %s, %s", tasks[0].Title, tasks[1].Title)
	}

	if s.DeleteTask(b.ID) {
		t.Fatal("expected second delete to be a no-op")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 tasks after no-op delete, got %d", s.Len())
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	a := s.AddTask(sampleInput("a"))
	s.CompleteTask(a.ID)

	snap := s.Tasks()
	snap[0].Title = "mutated"
	*snap[0].CompletedAt = 1

	got, _ := s.Task(a.ID)
	if got.Title != "a" || *got.CompletedAt == 1 {
		t.Fatalf("snapshot mutation leaked into store: %+v", got)
	}
}

func TestPersistReloadRoundTrip(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots)
	a := s.AddTask(sampleInput("a"))
	s.AddTask(task.Input{Title: "b", Priority: task.PriorityLow, Location: task.Location{Latitude: -33.8688, Longitude: 151.2093, Radius: 10}})
	s.CompleteTask(a.ID)
	if err := s.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	want := s.Tasks()

	reloaded := task.NewStore(slots)
	reloaded.Load(context.Background())

	if got := reloaded.Tasks(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestPersistedFormat(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots, task.WithIDGenerator(func() string { return "abc123" }))
	s.AddTask(task.Input{Title: "Buy milk", Priority: task.PriorityLow, Location: task.Location{Latitude: 1, Longitude: 1, Radius: 50}})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	data, err := slots.Get(context.Background(), kv.TasksKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 record, got %d", len(raw))
	}
	for _, key := range []string{"id", "title", "description", "priority", "location", "isComplete", "isRecurring", "createdAt"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	for _, key := range []string{"completedAt", "triggerTime"} {
		if _, ok := raw[0][key]; ok {
			t.Errorf("unexpected key %q in %s", key, data)
		}
	}
}

func TestLoad_MissingSlotIsEmpty(t *testing.T) {
	s := task.NewStore(kv.NewMemory())
	s.Load(context.Background())
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestLoad_CorruptRecordIsPreserved(t *testing.T) {
	slots := kv.NewMemory()
	ctx := context.Background()
	if err := slots.Set(ctx, kv.TasksKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newTestStore(t, slots)
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
	raw, err := slots.Get(ctx, kv.TasksCorruptKey)
	if err != nil {
		t.Fatalf("expected corrupt copy: %v", err)
	}
	if string(raw) != "{not json" {
		t.Fatalf("expected raw corrupt bytes, got %q", raw)
	}

	s.AddTask(sampleInput("fresh"))
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	raw, _ = slots.Get(ctx, kv.TasksCorruptKey)
	if string(raw) != "{not json" {
		t.Fatal("corrupt copy was overwritten")
	}
}

func TestLoad_ReadFailureDoesNotOverwrite(t *testing.T) {
	slots := kv.NewMemory()
	ctx := context.Background()
	if err := slots.Set(ctx, kv.TasksKey, []byte(`[{"id":"keep"}]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	slots.SetFailures(errors.New("io error"), nil)

	s := task.NewStore(slots)
	s.Init(ctx)
	if s.Len() != 0 {
		t.Fatalf("expected empty store after read failure, got %d", s.Len())
	}
	slots.SetFailures(nil, nil)
	if err := s.Dispose(ctx); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	raw, _ := slots.Get(ctx, kv.TasksKey)
	if string(raw) != `[{"id":"keep"}]` {
		t.Fatalf("durable record overwritten: %s", raw)
	}
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	slots := kv.NewMemory()
	ctx := context.Background()
	seed := `[{"id":"a","title":"first"},{"id":"a","title":"second"},{"id":"b","title":"third"}]`
	if err := slots.Set(ctx, kv.TasksKey, []byte(seed)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := task.NewStore(slots)
	s.Load(ctx)
	tasks := s.Tasks()
	if len(tasks) != 2 || tasks[0].Title != "first" || tasks[1].ID != "b" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots)
	slots.SetFailures(nil, errors.New("read-only"))

	a := s.AddTask(sampleInput("a"))
	if err := s.Flush(context.Background()); err == nil {
		t.Fatal("expected flush to report the write failure")
	}
	if _, ok := s.Task(a.ID); !ok {
		t.Fatal("in-memory task rolled back")
	}

	slots.SetFailures(nil, nil)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	reloaded := task.NewStore(slots)
	reloaded.Load(context.Background())
	if reloaded.Len() != 1 {
		t.Fatalf("expected retried write to land, got %d tasks", reloaded.Len())
	}
}

func TestConcurrentMutationsConverge(t *testing.T) {
	slots := kv.NewMemory()
	s := newTestStore(t, slots)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				tk := s.AddTask(sampleInput(fmt.Sprintf("%d-%d", w, i)))
				if i%5 == 0 {
					s.DeleteTask(tk.ID)
				}
			}
		}(w)
	}
	wg.Wait()
	if err := s.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	reloaded := task.NewStore(slots)
	reloaded.Load(context.Background())
	if !reflect.DeepEqual(reloaded.Tasks(), s.Tasks()) {
		t.Fatalf("durable state diverged: %d durable vs %d in memory", reloaded.Len(), s.Len())
	}
	if s.Len() != 8*20 {
		t.Fatalf("expected %d tasks, got %d", 8*20, s.Len())
	}
}

func TestBuyMilkScenario(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())

	s.AddTask(task.Input{
		Title:       "Buy milk",
		Description: "",
		Priority:    task.PriorityLow,
		Location:    task.Location{Latitude: 1, Longitude: 1, Radius: 50},
		IsRecurring: false,
	})
	if s.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", s.Len())
	}
	id := s.Tasks()[0].ID

	s.CompleteTask(id)
	got, _ := s.Task(id)
	if !got.IsComplete || got.CompletedAt == nil {
		t.Fatalf("expected completed task, got %+v", got)
	}

	s.DeleteTask(id)
	if s.Len() != 0 {
		t.Fatalf("expected empty collection, got %d", s.Len())
	}
}
