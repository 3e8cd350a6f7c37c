// Package dataprovider loads external example-row tables for scenario
// outlines.
package dataprovider

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// Provider fetches rows from an external data source. A row maps header
// names to string values. Fetch failures are returned as errors; the expander
// degrades on them rather than propagating.
type Provider interface {
	LoadRows(ctx context.Context, src *types.DataSource) ([]map[string]string, error)
}

// FileProvider loads rows from files relative to a base directory.
// Supported formats: csv (first record is the header), json (array of
// objects, or object of named arrays when Table is set), yaml (same shapes).
type FileProvider struct {
	baseDir string
	log     *zap.Logger
}

// NewFileProvider creates a provider rooted at baseDir.
func NewFileProvider(baseDir string, log *zap.Logger) *FileProvider {
	return &FileProvider{baseDir: baseDir, log: log}
}

// LoadRows reads and decodes the source file.
func (p *FileProvider) LoadRows(ctx context.Context, src *types.DataSource) ([]map[string]string, error) {
	if src == nil || src.Path == "" {
		return nil, fmt.Errorf("data source path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := src.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data source %s: %w", path, err)
	}

	format := src.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	switch strings.ToLower(format) {
	case "csv":
		return decodeCSV(data)
	case "json":
		return decodeJSON(data, src.Table)
	case "yaml", "yml":
		return decodeYAML(data, src.Table)
	default:
		return nil, fmt.Errorf("unsupported data source format %q", format)
	}
}

func decodeCSV(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeJSON(data []byte, table string) ([]map[string]string, error) {
	if table != "" {
		var tables map[string][]map[string]any
		if err := json.Unmarshal(data, &tables); err != nil {
			return nil, fmt.Errorf("parse json tables: %w", err)
		}
		rows, ok := tables[table]
		if !ok {
			return nil, fmt.Errorf("table %q not found in json source", table)
		}
		return stringifyRows(rows), nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return stringifyRows(rows), nil
}

func decodeYAML(data []byte, table string) ([]map[string]string, error) {
	if table != "" {
		var tables map[string][]map[string]any
		if err := yaml.Unmarshal(data, &tables); err != nil {
			return nil, fmt.Errorf("parse yaml tables: %w", err)
		}
		rows, ok := tables[table]
		if !ok {
			return nil, fmt.Errorf("table %q not found in yaml source", table)
		}
		return stringifyRows(rows), nil
	}
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return stringifyRows(rows), nil
}

func stringifyRows(in []map[string]any) []map[string]string {
	out := make([]map[string]string, 0, len(in))
	for _, raw := range in {
		row := make(map[string]string, len(raw))
		for k, v := range raw {
			row[k] = fmt.Sprintf("%v", v)
		}
		out = append(out, row)
	}
	return out
}
