package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"biaslens/internal/logging"
	"biaslens/internal/model"
	"biaslens/internal/util"
)

// Source supplies raw reference rows.
type Source interface {
	LoadBiasRows(ctx context.Context) ([]Row, error)
}

// Rows is an in-memory Source, mostly for fixtures.
type Rows []Row

func (r Rows) LoadBiasRows(ctx context.Context) ([]Row, error) { return r, nil }

// CSVFile reads rows from a CSV file with a source,bias,confidence header.
type CSVFile string

func (p CSVFile) LoadBiasRows(ctx context.Context) ([]Row, error) {
	f, err := os.Open(string(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a reference table. Column order is taken from the header.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("bias csv: missing header")
		}
		return nil, fmt.Errorf("bias csv: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"source", "bias", "confidence"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("bias csv: missing %q column", name)
		}
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bias csv: %w", err)
		}
		field := func(name string) string {
			if i := col[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}
		rows = append(rows, Row{Source: field("source"), Bias: field("bias"), Confidence: field("confidence")})
	}
	return rows, nil
}

// Parse converts raw rows into records, skipping rows it cannot read.
func Parse(rows []Row) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		name := util.NormalizeWhitespace(row.Source)
		if util.NormalizeSource(name) == "" {
			continue
		}
		bias, err := model.ParseBiasLabel(row.Bias)
		if err != nil {
			logging.Warn("catalog_row_skipped", map[string]any{"source": name, "error": err.Error()})
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(row.Confidence), 64)
		if err != nil || math.IsNaN(conf) || conf < 0 || conf > 1 {
			logging.Warn("catalog_row_skipped", map[string]any{"source": name, "confidence": row.Confidence})
			continue
		}
		out = append(out, Record{OriginalName: name, Bias: bias, Confidence: conf})
	}
	return out
}
