package market

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/macross/pkg/backtest"
)

// Supported price file formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultColumn is the CSV column read when none is configured
const DefaultColumn = "close"

// ErrEmptySeries is returned when a source holds no prices
var ErrEmptySeries = errors.New("price series is empty")

// LoadOptions controls how a price file is parsed
type LoadOptions struct {
	Format string // csv, json or yaml; inferred from the extension when empty
	Column string // CSV column holding prices, case-insensitive
}

// priceDocument is the object form of a JSON/YAML price file,
// e.g. {"dates": [...], "prices": [...]}
type priceDocument struct {
	Dates  []string  `json:"dates,omitempty" yaml:"dates,omitempty"`
	Prices []float64 `json:"prices" yaml:"prices"`
}

// LoadPrices reads a chronological price series from a file
func LoadPrices(path string, opts LoadOptions) (backtest.PriceSeries, error) {
	format, err := resolveFormat(path, opts.Format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	prices, err := ReadPrices(f, format, opts.Column)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices from %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Str("format", format).
		Int("points", len(prices)).
		Float64("first", prices[0]).
		Float64("last", prices[len(prices)-1]).
		Msg("Loaded price series")

	return prices, nil
}

// ReadPrices parses a price series in the given format
func ReadPrices(r io.Reader, format, column string) (backtest.PriceSeries, error) {
	var (
		prices backtest.PriceSeries
		err    error
	)

	switch strings.ToLower(format) {
	case FormatCSV:
		prices, err = readCSV(r, column)
	case FormatJSON:
		prices, err = readJSON(r)
	case FormatYAML, "yml":
		prices, err = readYAML(r)
	default:
		return nil, fmt.Errorf("unsupported price format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if len(prices) == 0 {
		return nil, ErrEmptySeries
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("price at index %d is not a finite number", i)
		}
	}

	return prices, nil
}

func resolveFormat(path, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot determine price format for %q (format %q)", path, format)
	}
}

func readCSV(r io.Reader, column string) (backtest.PriceSeries, error) {
	if column == "" {
		column = DefaultColumn
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptySeries
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("CSV column %q not found in header %v", column, header)
	}

	var prices backtest.PriceSeries
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q in CSV row %d: %w", record[idx], row, err)
		}
		prices = append(prices, value)
	}

	return prices, nil
}

func readJSON(r io.Reader) (backtest.PriceSeries, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var prices backtest.PriceSeries
		if err := json.Unmarshal(data, &prices); err != nil {
			return nil, fmt.Errorf("failed to decode JSON price array: %w", err)
		}
		return prices, nil
	}

	var doc priceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON price document: %w", err)
	}
	if err := doc.checkDates(); err != nil {
		return nil, err
	}
	return doc.Prices, nil
}

func readYAML(r io.Reader) (backtest.PriceSeries, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if err == io.EOF {
			return nil, ErrEmptySeries
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	if root.Kind == yaml.SequenceNode {
		var prices backtest.PriceSeries
		if err := root.Decode(&prices); err != nil {
			return nil, fmt.Errorf("failed to decode YAML price list: %w", err)
		}
		return prices, nil
	}

	var doc priceDocument
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML price document: %w", err)
	}
	if err := doc.checkDates(); err != nil {
		return nil, err
	}
	return doc.Prices, nil
}

// checkDates rejects documents whose dates and prices are misaligned
func (d priceDocument) checkDates() error {
	if len(d.Dates) > 0 && len(d.Dates) != len(d.Prices) {
		return fmt.Errorf("document has %d dates but %d prices", len(d.Dates), len(d.Prices))
	}
	return nil
}
