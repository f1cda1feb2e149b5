package commands

import (
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"geotask/internal/task"
)

// DefaultRadius is the zone radius of a new task, in meters.
const DefaultRadius = 100

// taskForm holds the task flags shared by add, create and edit.
type taskForm struct {
	fs *flag.FlagSet

	lat         float64
	lng         float64
	radius      int
	priority    string
	description string
	at          string
	recurring   bool
}

func (f *taskForm) register(fs *flag.FlagSet) {
	f.fs = fs
	fs.Float64Var(&f.lat, "lat", 0, "")
	fs.Float64Var(&f.lng, "lng", 0, "")
	fs.IntVar(&f.radius, "radius", DefaultRadius, "")
	fs.StringVar(&f.priority, "priority", string(task.PriorityMedium), "")
	fs.StringVar(&f.priority, "p", string(task.PriorityMedium), "")
	fs.StringVar(&f.description, "desc", "", "")
	fs.StringVar(&f.at, "at", "", "")
	fs.BoolVar(&f.recurring, "recurring", false, "")
}

// set reports whether a flag was given on the command line.
func (f *taskForm) set(names ...string) bool {
	if f.fs == nil {
		return false
	}
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		for _, n := range names {
			if fl.Name == n {
				found = true
			}
		}
	})
	return found
}

// input builds a new task from the flags and title args.
func (f *taskForm) input(args []string) (task.Input, error) {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return task.Input{}, fmt.Errorf("title required")
	}
	if !f.set("lat") || !f.set("lng") {
		return task.Input{}, fmt.Errorf("location required (--lat and --lng)")
	}

	loc, err := f.location(task.Location{Radius: DefaultRadius})
	if err != nil {
		return task.Input{}, err
	}
	prio, err := task.ParsePriority(f.priority)
	if err != nil {
		return task.Input{}, err
	}
	if err := validateAt(f.at); err != nil {
		return task.Input{}, err
	}

	return task.Input{
		Title:       title,
		Description: f.description,
		Priority:    prio,
		Location:    loc,
		TriggerTime: f.at,
		IsRecurring: f.recurring,
	}, nil
}

// patch builds a patch from the flags that were given and the optional new
// title args.
func (f *taskForm) patch(current task.Task, titleArgs []string) (task.Patch, error) {
	var p task.Patch

	if len(titleArgs) > 0 {
		title := strings.TrimSpace(strings.Join(titleArgs, " "))
		if title == "" {
			return p, fmt.Errorf("title required")
		}
		p.Title = &title
	}
	if f.set("desc") {
		p.Description = task.Ptr(f.description)
	}
	if f.set("priority", "p") {
		prio, err := task.ParsePriority(f.priority)
		if err != nil {
			return p, err
		}
		p.Priority = &prio
	}
	if f.set("lat", "lng", "radius") {
		loc, err := f.location(current.Location)
		if err != nil {
			return p, err
		}
		p.Location = &loc
	}
	if f.set("at") {
		if err := validateAt(f.at); err != nil {
			return p, err
		}
		p.TriggerTime = task.Ptr(f.at)
	}
	if f.set("recurring") {
		p.IsRecurring = task.Ptr(f.recurring)
	}
	return p, nil
}

// location overlays the given coordinate flags on base.
func (f *taskForm) location(base task.Location) (task.Location, error) {
	loc := base
	if f.set("lat") {
		loc.Latitude = f.lat
	}
	if f.set("lng") {
		loc.Longitude = f.lng
	}
	if f.set("radius") {
		loc.Radius = f.radius
	}
	if !finite(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
		return loc, fmt.Errorf("invalid latitude: %v", loc.Latitude)
	}
	if !finite(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
		return loc, fmt.Errorf("invalid longitude: %v", loc.Longitude)
	}
	if loc.Radius <= 0 {
		return loc, fmt.Errorf("invalid radius: %d", loc.Radius)
	}
	return loc, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validateAt accepts "" or a 24-hour "HH:MM".
func validateAt(s string) error {
	if s == "" {
		return nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if ok && len(hh) == 2 && len(mm) == 2 {
		h, herr := strconv.Atoi(hh)
		m, merr := strconv.Atoi(mm)
		if herr == nil && merr == nil && h >= 0 && h < 24 && m >= 0 && m < 60 {
			return nil
		}
	}
	return fmt.Errorf("invalid time (want HH:MM): %s", s)
}
