package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"geotask/internal/backend/googletasks"
	"geotask/internal/commands"
	"geotask/internal/config"
	"geotask/internal/exitcode"
	"geotask/internal/kv"
	"geotask/internal/location"
	"geotask/internal/mirror"
	"geotask/internal/task"
	"geotask/internal/testutil"
)

func testConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	return &config.Config{
		Dir:      t.TempDir(),
		Quiet:    quiet,
		Settings: config.Settings{MirrorList: "geotask"},
	}
}

// runCommand is a helper to run a command with FakeService. argv is parsed
// with the command's flags first, the way the dispatcher does.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, argv []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), testConfig(t, quiet), svc, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func seedMilk(svc *testutil.FakeService) task.Task {
	return svc.Seed(task.Input{
		Title:    "Buy milk",
		Priority: task.PriorityMedium,
		Location: task.Location{Latitude: 3, Longitude: 6, Radius: 100},
	})
}

func expectResult(t *testing.T, gotOut, gotErr string, gotCode int, wantOut, wantErr string, wantCode int) {
	t.Helper()
	if gotCode != wantCode {
		t.Errorf("expected exit code %d, got %d", wantCode, gotCode)
	}
	if gotOut != wantOut {
		t.Errorf("expected stdout %q, got %q", wantOut, gotOut)
	}
	if gotErr != wantErr {
		t.Errorf("expected stderr %q, got %q", wantErr, gotErr)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)
	expectResult(t, stdout, stderr, code, "geotask 0.1.0\n", "", exitcode.Success)
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("unexpected result: code=%d stderr=%q", code, stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

func TestAddCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"--lat", "37.78825", "--lng", "-122.4324", "Buy", "milk"}, false)
	expectResult(t, stdout, stderr, code, "task-1\n", "", exitcode.Success)

	got, err := svc.Task(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	want := task.Location{Latitude: 37.78825, Longitude: -122.4324, Radius: commands.DefaultRadius}
	if got.Title != "Buy milk" || got.Priority != task.PriorityMedium || got.Location != want {
		t.Errorf("unexpected task %+v", got)
	}
	if got.IsComplete || got.IsRecurring || got.TriggerTime != "" {
		t.Errorf("unexpected defaults %+v", got)
	}
}

func TestAddCommand_AllFlags(t *testing.T) {
	svc := testutil.NewFakeService()
	argv := []string{"--lat", "-33.8688", "--lng", "151.2093", "--radius", "250", "--priority", "HIGH",
		"--desc", "2 litres", "--at", "09:30", "--recurring", "Buy milk"}
	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, argv, true)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}

	got, _ := svc.Task(context.Background(), "task-1")
	if got.Location.Radius != 250 || got.Location.Latitude != -33.8688 {
		t.Errorf("unexpected location %+v", got.Location)
	}
	if got.Priority != task.PriorityHigh || got.Description != "2 litres" || got.TriggerTime != "09:30" || !got.IsRecurring {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"--lat", "1", "--lng", "2", "x"}, true)
	expectResult(t, stdout, stderr, code, "", "", exitcode.Success)
}

func TestAddCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr string
	}{
		{"no title", []string{"--lat", "1", "--lng", "2"}, "error: title required\n"},
		{"no location", []string{"Buy milk"}, "error: location required (--lat and --lng)\n"},
		{"bad priority", []string{"--lat", "1", "--lng", "2", "--priority", "urgent", "x"}, "error: invalid priority: urgent\n"},
		{"bad time", []string{"--lat", "1", "--lng", "2", "--at", "9am", "x"}, "error: invalid time (want HH:MM): 9am\n"},
		{"bad latitude", []string{"--lat", "91", "--lng", "2", "x"}, "error: invalid latitude: 91\n"},
		{"nan latitude", []string{"--lat", "NaN", "--lng", "2", "x"}, "error: invalid latitude: NaN\n"},
		{"infinite longitude", []string{"--lat", "1", "--lng", "-Inf", "x"}, "error: invalid longitude: -Inf\n"},
		{"bad radius", []string{"--lat", "1", "--lng", "2", "--radius", "0", "x"}, "error: invalid radius: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, tt.argv, false)
			expectResult(t, stdout, stderr, code, "", tt.wantErr, exitcode.UserError)
		})
	}
}

func TestAddCommand_StorageError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTaskErr = fmt.Errorf("%w: disk full", kv.ErrStorage)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"--lat", "1", "--lng", "2", "x"}, false)
	expectResult(t, stdout, stderr, code, "", "error: storage error: storage failure: disk full\n", exitcode.StorageError)
}

func TestCreateCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, stderr, code := runCommand(t, &commands.CreateCmd{}, svc, []string{"--lat", "1", "--lng", "2", "Post", "letter"}, false)
	expectResult(t, stdout, stderr, code, "task-1\n", "", exitcode.Success)
}

func TestListCommand_WithTasks(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	eggs := svc.Seed(task.Input{Title: "Buy eggs", Priority: task.PriorityLow, Location: task.Location{Radius: 50}, TriggerTime: "18:00"})
	svc.CompleteTask(context.Background(), eggs.ID)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	want := "   1  [ ] Buy milk  (medium, 100m)\n" +
		"   2  [x] Buy eggs  (low, 50m at 18:00)\n"
	expectResult(t, stdout, stderr, code, want, "", exitcode.Success)
}

func TestListCommand_OpenKeepsNumbers(t *testing.T) {
	svc := testutil.NewFakeService()
	first := seedMilk(svc)
	svc.Seed(task.Input{Title: "Buy eggs", Priority: task.PriorityLow, Location: task.Location{Radius: 50}})
	svc.CompleteTask(context.Background(), first.ID)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, []string{"--open"}, false)
	expectResult(t, stdout, stderr, code, "   2  [ ] Buy eggs  (low, 50m)\n", "", exitcode.Success)
}

func TestListCommand_Empty(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, false)
	expectResult(t, stdout, stderr, code, "no tasks found\n", "", exitcode.Success)

	stdout, stderr, code = runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, true)
	expectResult(t, stdout, stderr, code, "", "", exitcode.Success)
}

func TestListCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.TasksErr = errors.New("boom")
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "", "error: backend error: boom\n", exitcode.BackendError)
}

func TestDoneCommand_ByNumber(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1"}, false)
	expectResult(t, stdout, stderr, code, "ok\n", "", exitcode.Success)

	got, _ := svc.Task(context.Background(), "task-1")
	if !got.IsComplete || got.CompletedAt == nil {
		t.Errorf("expected task to be completed, got %+v", got)
	}
}

func TestDoneCommand_ByID(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	seedMilk(svc)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"task-2"}, true)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	first, _ := svc.Task(context.Background(), "task-1")
	second, _ := svc.Task(context.Background(), "task-2")
	if first.IsComplete || !second.IsComplete {
		t.Errorf("expected only task-2 completed: %+v %+v", first, second)
	}
}

func TestDoneCommand_BadRefs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr string
	}{
		{"no ref", nil, "error: task reference required\n"},
		{"zero", []string{"0"}, "error: invalid task reference: 0\n"},
		{"out of range", []string{"3"}, "error: task not found: number out of range: 3\n"},
		{"unknown id", []string{"nope"}, "error: task not found: nope\n"},
		{"extra args", []string{"1", "2"}, "error: invalid task reference: 1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			seedMilk(svc)
			stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, tt.argv, false)
			expectResult(t, stdout, stderr, code, "", tt.wantErr, exitcode.UserError)
		})
	}
}

func TestRmCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"1"}, false)
	expectResult(t, stdout, stderr, code, "ok\n", "", exitcode.Success)

	tasks, _ := svc.Tasks(context.Background())
	if len(tasks) != 1 || tasks[0].ID != "task-2" {
		t.Errorf("expected only task-2 to remain, got %+v", tasks)
	}

	stdout, stderr, code = runCommand(t, &commands.RmCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "", "error: task reference required\n", exitcode.UserError)
}

func TestEditCommand_OnlyGivenFlags(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--priority", "high", "--radius", "300", "1"}, false)
	expectResult(t, stdout, stderr, code, "ok\n", "", exitcode.Success)

	got, _ := svc.Task(context.Background(), "task-1")
	want := task.Location{Latitude: 3, Longitude: 6, Radius: 300}
	if got.Priority != task.PriorityHigh || got.Location != want || got.Title != "Buy milk" {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestEditCommand_Title(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"task-1", "Buy", "oat", "milk"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	got, _ := svc.Task(context.Background(), "task-1")
	if got.Title != "Buy oat milk" || got.Priority != task.PriorityMedium {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestEditCommand_RejectsNonFinite(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--lat", "NaN", "1"}, false)
	expectResult(t, stdout, stderr, code, "", "error: invalid latitude: NaN\n", exitcode.UserError)

	got, _ := svc.Task(context.Background(), "task-1")
	if got.Location.Latitude != 3 {
		t.Errorf("expected location unchanged, got %+v", got.Location)
	}
}

func TestEditCommand_Reopen(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	svc.CompleteTask(context.Background(), "task-1")

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--reopen", "1"}, false)
	expectResult(t, stdout, stderr, code, "ok\n", "", exitcode.Success)

	got, _ := svc.Task(context.Background(), "task-1")
	if got.IsComplete || got.CompletedAt != nil {
		t.Errorf("expected open task without completion time, got %+v", got)
	}
}

func TestEditCommand_ClearTime(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.Seed(task.Input{Title: "x", Location: task.Location{Radius: 10}, TriggerTime: "08:30"})

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"--at", "", "1"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d (%s)", code, stderr)
	}
	got, _ := svc.Task(context.Background(), "task-1")
	if got.TriggerTime != "" {
		t.Errorf("expected trigger time cleared, got %q", got.TriggerTime)
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1"}, false)
	expectResult(t, stdout, stderr, code, "", "error: nothing to change\n", exitcode.UserError)
}

func TestShowCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.ShowCmd{}, svc, []string{"1"}, false)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("unexpected result: code=%d stderr=%q", code, stderr)
	}
	for _, want := range []string{"Buy milk\n", "id:          task-1\n", "location:    3.00000,6.00000 (radius 100m)\n", "completed:   no\n"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got %q", want, stdout)
		}
	}
}

func TestWhereCommand_Live(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	svc.SetLocation(testutil.Reading(1, 2, 0))

	stdout, stderr, code := runCommand(t, &commands.WhereCmd{}, svc, nil, false)
	want := "1.00000,2.00000  live  1970-01-01 00:00 UTC\n" +
		"region: 2.00000,4.00000 span 2.4000 x 4.8000\n"
	expectResult(t, stdout, stderr, code, want, "", exitcode.Success)
}

func TestWhereCommand_CachedValue(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetLocation(testutil.Reading(1, 2, 0))
	svc.WhereSource = location.SourceNone

	stdout, _, code := runCommand(t, &commands.WhereCmd{}, svc, nil, false)
	if code != exitcode.Success || !strings.Contains(stdout, "  cached  ") {
		t.Errorf("expected cached value, got %q (code %d)", stdout, code)
	}
}

func TestWhereCommand_NoValue(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.WhereSource = location.SourceDenied
	stdout, stderr, code := runCommand(t, &commands.WhereCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "", "error: location permission denied\n", exitcode.UserError)

	svc.WhereSource = location.SourceNone
	stdout, stderr, code = runCommand(t, &commands.WhereCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "", "error: location unknown\n", exitcode.BackendError)
}

func TestPermsCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetPermissions(location.Permissions{Foreground: true, Background: true, Message: "Location permissions granted"})

	stdout, stderr, code := runCommand(t, &commands.PermsCmd{}, svc, nil, false)
	want := "foreground: granted\nbackground: granted\nLocation permissions granted\n"
	expectResult(t, stdout, stderr, code, want, "", exitcode.Success)

	svc.SetPermissions(location.Permissions{})
	stdout, stderr, code = runCommand(t, &commands.PermsCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "foreground: denied\nbackground: denied\n", "", exitcode.AuthError)
}

func TestWatchCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetPermissions(location.Permissions{Foreground: true})
	svc.SetWatchReadings(testutil.Reading(1, 2, 0), testutil.Reading(1.5, 2, 60_000))

	stdout, stderr, code := runCommand(t, &commands.WatchCmd{}, svc, nil, false)
	wantOut := "1.00000,2.00000  update  1970-01-01 00:00 UTC\n" +
		"1.50000,2.00000  update  1970-01-01 00:01 UTC\n"
	expectResult(t, stdout, stderr, code, wantOut, "warning: background location not granted, polling only\n", exitcode.Success)
}

func TestWatchCommand_Denied(t *testing.T) {
	svc := testutil.NewFakeService()
	stdout, stderr, code := runCommand(t, &commands.WatchCmd{}, svc, nil, false)
	expectResult(t, stdout, stderr, code, "", "error: location permission denied\n", exitcode.UserError)
}

func TestExportCommand_JSON(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)

	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, nil, false)
	if code != exitcode.Success || stderr != "" {
		t.Fatalf("unexpected result: code=%d stderr=%q", code, stderr)
	}
	var got []task.Task
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].ID != "task-1" {
		t.Errorf("unexpected export %+v", got)
	}
}

func TestExportCommand_YAMLToFile(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	path := filepath.Join(t.TempDir(), "tasks.yaml")

	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, svc, []string{"--format", "yaml", "--out", path}, false)
	expectResult(t, stdout, stderr, code, "", "", exitcode.Success)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got []task.Task
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Buy milk" {
		t.Errorf("unexpected export %+v", got)
	}
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ExportCmd{}, testutil.NewFakeService(), []string{"--format", "csv"}, false)
	expectResult(t, stdout, stderr, code, "", "error: unknown format: csv\n", exitcode.UserError)
}

func TestPushCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seedMilk(svc)
	seedMilk(svc)
	remote := testutil.NewFakeRemote()

	cmd := &commands.PushCmd{}
	cmd.SetRemoteFactory(func(ctx context.Context, cfg *config.Config) (mirror.Remote, error) {
		return remote, nil
	})

	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)
	expectResult(t, stdout, stderr, code, "pushed to geotask: 2 added, 0 updated, 0 removed, 0 unchanged\n", "", exitcode.Success)

	stdout, stderr, code = runCommand(t, cmd, svc, []string{"--list", "Errands"}, false)
	expectResult(t, stdout, stderr, code, "pushed to Errands: 2 added, 0 updated, 0 removed, 0 unchanged\n", "", exitcode.Success)

	if _, ok := remote.ListID("Errands"); !ok {
		t.Error("expected Errands list to be created")
	}
}

func TestPushCommand_NotLoggedIn(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.PushCmd{}, testutil.NewFakeService(), nil, false)
	if code != exitcode.AuthError || stdout != "" {
		t.Errorf("expected auth error, got code %d stdout %q", code, stdout)
	}
	if !strings.Contains(stderr, "oauth_client.json not found") {
		t.Errorf("expected missing oauth client message, got %q", stderr)
	}
}

func TestPushCommand_RemoteAuthError(t *testing.T) {
	cmd := &commands.PushCmd{}
	cmd.SetRemoteFactory(func(ctx context.Context, cfg *config.Config) (mirror.Remote, error) {
		return nil, googletasks.ErrAuth
	})

	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.AuthError, code, stderr)
	}
}
