package settings

import (
	"strconv"
	"strings"
	"time"
)

// ParseAction turns a "key value" pair from the command line into an action.
// Unrecognized keys become SetExtra.
//
//	range          2025-01-01..2025-01-07
//	poll           10m
//	snfn.stations  FLA,FCT   (likewise snfn.models, snfn.codes)
//	snfn.sort      count|key
//	snfn.order     asc|desc
//	snfn.group     fixture|station
//	snfn.max       10
//	widget.toggle  <id>      (likewise widget.remove)
func ParseAction(current State, key, value string) (Action, error) {
	opts := current.SNFN
	switch key {
	case "range":
		start, end, ok := strings.Cut(value, "..")
		if !ok {
			return nil, invalid("range %q, want START..END", value)
		}
		return SetDateRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}, nil
	case "poll":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, invalid("poll interval %q", value)
		}
		return SetPollInterval{Interval: d}, nil
	case "snfn.stations":
		opts.Stations = splitList(value)
	case "snfn.models":
		opts.Models = splitList(value)
	case "snfn.codes":
		opts.ErrorCodes = splitList(value)
	case "snfn.sort":
		switch value {
		case "count":
			opts.SortByCount = true
		case "key":
			opts.SortByCount = false
		default:
			return nil, invalid("snfn.sort %q", value)
		}
	case "snfn.order":
		switch value {
		case "asc":
			opts.Ascending = true
		case "desc":
			opts.Ascending = false
		default:
			return nil, invalid("snfn.order %q", value)
		}
	case "snfn.group":
		switch value {
		case "fixture":
			opts.GroupByFixture = true
		case "station":
			opts.GroupByFixture = false
		default:
			return nil, invalid("snfn.group %q", value)
		}
	case "snfn.max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, invalid("snfn.max %q", value)
		}
		opts.MaxErrorCodes = n
	case "widget.toggle":
		return ToggleWidget{ID: value}, nil
	case "widget.remove":
		return RemoveWidget{ID: value}, nil
	default:
		return SetExtra{Key: key, Value: value}, nil
	}
	return SetSNFNOptions{Options: opts}, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
