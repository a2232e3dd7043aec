package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var serialHeaders = []string{"sn", "serial", "serial_number", "serialnumber"}

// ReadSerialNumbers reads serial numbers from CSV. The column is picked by
// header name (sn, serial, serial_number); without a recognized header the
// first column is used and the first row is treated as data. Values are
// trimmed and de-duplicated in first-seen order.
func ReadSerialNumbers(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read serial csv header: %w", err)
	}

	col, hasHeader := 0, false
	for i, h := range first {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, want := range serialHeaders {
			if name == want {
				col, hasHeader = i, true
			}
		}
		if hasHeader {
			break
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(record []string) {
		if col >= len(record) {
			return
		}
		sn := strings.TrimSpace(strings.TrimPrefix(record[col], "\ufeff"))
		if sn == "" || seen[sn] {
			return
		}
		seen[sn] = true
		out = append(out, sn)
	}
	if !hasHeader {
		add(first)
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read serial csv: %w", err)
		}
		add(record)
	}
	return out, nil
}
