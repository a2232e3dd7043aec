// Package settings holds the dashboard's application state. State changes
// only through Reduce; Store adds locking and persistence on top.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"yieldboard/aggregate"
)

// Widget is one dashboard panel.
type Widget struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Visible bool   `json:"visible"`
}

var WidgetKinds = []string{"packing", "tpy-daily", "tpy-weekly", "snfn", "station-times", "xbar-r", "pareto"}

type State struct {
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	Widgets      []Widget              `json:"widgets"`
	SNFN         aggregate.SNFNOptions `json:"snfn"`
	PollInterval time.Duration         `json:"pollInterval"`
	Extra        map[string]string     `json:"extra,omitempty"`
}

// Default is the state of a fresh install: the last seven days ending today
// and one widget of each kind.
func Default(now time.Time) State {
	end := now.Format("2006-01-02")
	start := now.AddDate(0, 0, -6).Format("2006-01-02")
	s := State{
		StartDate:    start,
		EndDate:      end,
		SNFN:         aggregate.SNFNOptions{SortByCount: true, MaxErrorCodes: 10},
		PollInterval: 5 * time.Minute,
	}
	for _, k := range WidgetKinds {
		s.Widgets = append(s.Widgets, Widget{ID: k, Kind: k, Visible: true})
	}
	return s
}

func (s State) clone() State {
	s.Widgets = slices.Clone(s.Widgets)
	s.SNFN.Stations = slices.Clone(s.SNFN.Stations)
	s.SNFN.Models = slices.Clone(s.SNFN.Models)
	s.SNFN.ErrorCodes = slices.Clone(s.SNFN.ErrorCodes)
	if s.Extra != nil {
		extra := make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			extra[k] = v
		}
		s.Extra = extra
	}
	return s
}

func (s State) widget(id string) int {
	return slices.IndexFunc(s.Widgets, func(w Widget) bool { return w.ID == id })
}

var ErrInvalidAction = errors.New("invalid settings action")

// Action is a state transition. apply receives a private copy of the state.
type Action interface {
	apply(State) (State, error)
}

// Reduce returns the state after a. It never mutates s; an invalid action
// returns s unchanged.
func Reduce(s State, a Action) State {
	next, err := a.apply(s.clone())
	if err != nil {
		return s
	}
	return next
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
}

type SetDateRange struct{ Start, End string }

func (a SetDateRange) apply(s State) (State, error) {
	start, err := aggregate.ParseDay(a.Start)
	if err != nil {
		return s, invalid("start date %q", a.Start)
	}
	end, err := aggregate.ParseDay(a.End)
	if err != nil {
		return s, invalid("end date %q", a.End)
	}
	if end.Before(start) {
		return s, invalid("end %s before start %s", a.End, a.Start)
	}
	s.StartDate, s.EndDate = start.Format("2006-01-02"), end.Format("2006-01-02")
	return s, nil
}

type AddWidget struct{ Widget Widget }

func (a AddWidget) apply(s State) (State, error) {
	if a.Widget.ID == "" || !slices.Contains(WidgetKinds, a.Widget.Kind) {
		return s, invalid("widget %q of kind %q", a.Widget.ID, a.Widget.Kind)
	}
	if s.widget(a.Widget.ID) >= 0 {
		return s, invalid("widget %q already exists", a.Widget.ID)
	}
	s.Widgets = append(s.Widgets, a.Widget)
	return s, nil
}

type RemoveWidget struct{ ID string }

func (a RemoveWidget) apply(s State) (State, error) {
	i := s.widget(a.ID)
	if i < 0 {
		return s, invalid("no widget %q", a.ID)
	}
	s.Widgets = slices.Delete(s.Widgets, i, i+1)
	return s, nil
}

// MoveWidget places a widget at Position, clamped to the layout bounds.
type MoveWidget struct {
	ID       string
	Position int
}

func (a MoveWidget) apply(s State) (State, error) {
	i := s.widget(a.ID)
	if i < 0 {
		return s, invalid("no widget %q", a.ID)
	}
	w := s.Widgets[i]
	s.Widgets = slices.Delete(s.Widgets, i, i+1)
	pos := min(max(a.Position, 0), len(s.Widgets))
	s.Widgets = slices.Insert(s.Widgets, pos, w)
	return s, nil
}

type ToggleWidget struct{ ID string }

func (a ToggleWidget) apply(s State) (State, error) {
	i := s.widget(a.ID)
	if i < 0 {
		return s, invalid("no widget %q", a.ID)
	}
	s.Widgets[i].Visible = !s.Widgets[i].Visible
	return s, nil
}

type SetSNFNOptions struct{ Options aggregate.SNFNOptions }

func (a SetSNFNOptions) apply(s State) (State, error) {
	if a.Options.MaxErrorCodes < 0 {
		return s, invalid("maxErrorCodes %d", a.Options.MaxErrorCodes)
	}
	s.SNFN = a.Options
	s.SNFN.Stations = slices.Clone(a.Options.Stations)
	s.SNFN.Models = slices.Clone(a.Options.Models)
	s.SNFN.ErrorCodes = slices.Clone(a.Options.ErrorCodes)
	return s, nil
}

type SetPollInterval struct{ Interval time.Duration }

func (a SetPollInterval) apply(s State) (State, error) {
	if a.Interval < time.Second {
		return s, invalid("poll interval %s", a.Interval)
	}
	s.PollInterval = a.Interval
	return s, nil
}

// SetExtra stores a free-form key; an empty Value deletes it.
type SetExtra struct{ Key, Value string }

func (a SetExtra) apply(s State) (State, error) {
	if a.Key == "" {
		return s, invalid("empty key")
	}
	if a.Value == "" {
		delete(s.Extra, a.Key)
		return s, nil
	}
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[a.Key] = a.Value
	return s, nil
}

// Reset replaces the state wholesale, typically with Default.
type Reset struct{ State State }

func (a Reset) apply(State) (State, error) { return a.State.clone(), nil }
