// Package export writes analysis parameter records as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/tailgate.report/internal/tailgate"
)

// ImageColumn names the column that carries the image key.
const ImageColumn = "image"

// WriteParametersCSV writes one row per parameter record of every image.
// The header is the sorted union of all record keys, so pairs that stopped
// at an early stage leave the later columns empty. Images are written in
// key order and records in pair order.
func WriteParametersCSV(w io.Writer, a *tailgate.Analysis) error {
	var rows []map[string]string
	columns := map[string]bool{ImageColumn: true}
	for _, key := range a.ImageKeys() {
		records, _ := a.Parameters(key)
		for _, rec := range records {
			row := rec.Fields()
			row[ImageColumn] = key
			for k := range row {
				columns[k] = true
			}
			rows = append(rows, row)
		}
	}

	header := make([]string, 0, len(columns))
	for k := range columns {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
