package client

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// Param is one logical query parameter. It is sent only when Value is truthy.
type Param struct {
	ID    string
	Value any
}

const (
	dayStart = "T00:00:00.000Z"
	dayEnd   = "T23:59:59.999Z"
)

// BuildParams encodes params plus the date range. startDate covers the whole
// first calendar day and endDate the whole last one; zero times are omitted.
func BuildParams(params []Param, start, end time.Time) url.Values {
	v := url.Values{}
	for _, p := range params {
		if p.ID == "" || !truthy(p.Value) {
			continue
		}
		v.Add(p.ID, stringify(p.Value))
	}
	if !start.IsZero() {
		v.Set("startDate", start.Format("2006-01-02")+dayStart)
	}
	if !end.IsZero() {
		v.Set("endDate", end.Format("2006-01-02")+dayEnd)
	}
	return v
}

// StartOfDay and EndOfDay render the instant bounds used in request bodies.
func StartOfDay(t time.Time) string { return t.Format("2006-01-02") + dayStart }
func EndOfDay(t time.Time) string   { return t.Format("2006-01-02") + dayEnd }

func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil() && truthy(rv.Elem().Interface())
	}
	return true
}

func stringify(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Pointer:
		return stringify(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}
