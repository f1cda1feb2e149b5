package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"geotask/internal/service"
	"geotask/internal/task"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

var errInvalidRef = errors.New("invalid task reference")

// TaskRef is a parsed task reference: either a 1-based list number or a
// task id.
type TaskRef struct {
	Num int
	ID  string
}

// ParseTaskRef parses the task reference from args.
//
// Parsing rules:
// 1. No args or a blank first arg → error: task reference required
// 2. All digits → list number (must be ≥ 1)
// 3. Anything else → task id
// Extra args are an error.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("%w: %s", errInvalidRef, strings.Join(args, " "))
	}

	ref := strings.TrimSpace(args[0])
	if isAllDigits(ref) {
		num, err := strconv.Atoi(ref)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("%w: %s", errInvalidRef, ref)
		}
		return TaskRef{Num: num}, nil
	}
	return TaskRef{ID: ref}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ResolveTaskRef finds the task a reference points at. Numbers count every
// task in insertion order, the way list prints them.
func ResolveTaskRef(ctx context.Context, svc service.Service, ref TaskRef) (task.Task, error) {
	if ref.ID != "" {
		return svc.Task(ctx, ref.ID)
	}

	tasks, err := svc.Tasks(ctx)
	if err != nil {
		return task.Task{}, err
	}
	if ref.Num < 1 || ref.Num > len(tasks) {
		return task.Task{}, fmt.Errorf("%w: number out of range: %d", service.ErrTaskNotFound, ref.Num)
	}
	return tasks[ref.Num-1], nil
}

// resolveArgs parses and resolves the reference in args.
func resolveArgs(ctx context.Context, svc service.Service, args []string) (task.Task, error) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return task.Task{}, err
	}
	return ResolveTaskRef(ctx, svc, ref)
}
