// Package extractor reads raw record batches from files and streams.
package extractor

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
	"github.com/magicmaxmagic/ScrappingBot/internal/models"
)

// ErrMalformedSource is returned for a source whose container format
// cannot be decoded.
var ErrMalformedSource = errors.New("malformed source")

// Source is one raw record batch: a file path or an in-memory stream.
type Source struct {
	Name   string
	Path   string
	Reader io.Reader
}

// Result is the outcome of one extraction pass.
type Result struct {
	Records []models.RawRecord
	// SourceErrors holds one entry per skipped source. Partial success
	// is expected and reported, never fatal.
	SourceErrors []SourceError
}

// SourceError pairs a failed source with its cause.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

// Extractor reads raw records from one or more sources.
type Extractor struct {
	logger *logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract reads every source in order and concatenates their records.
// A missing or empty source contributes nothing; a malformed source is
// skipped and recorded. Only the per-source outcomes are returned, so
// the caller always gets whatever could be read.
func (e *Extractor) Extract(sources ...Source) Result {
	var result Result

	for _, src := range sources {
		records, err := e.extractOne(src)
		if err != nil {
			e.logger.Error("skipping source", "source", sourceName(src), "error", err)
			result.SourceErrors = append(result.SourceErrors, SourceError{
				Source: sourceName(src),
				Err:    err,
			})

			continue
		}

		e.logger.Info("extracted records", "source", sourceName(src), "count", len(records))
		result.Records = append(result.Records, records...)
	}

	return result
}

func (e *Extractor) extractOne(src Source) ([]models.RawRecord, error) {
	reader := src.Reader

	if reader == nil {
		if src.Path == "" {
			return nil, nil
		}

		file, err := os.Open(src.Path)
		if err != nil {
			if os.IsNotExist(err) {
				e.logger.Warn("source file not found", "path", src.Path)
				return nil, nil
			}

			return nil, fmt.Errorf("failed to open source: %w", err)
		}
		defer file.Close()

		reader = file
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	return decodeRecords(data)
}

// decodeRecords accepts a JSON array, a single JSON object, or JSONL.
func decodeRecords(data []byte) ([]models.RawRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var records []models.RawRecord
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
		}

		return records, nil

	case '{':
		// Either a single record or JSONL with one object per line.
		if !strings.Contains(trimmed, "\n") {
			var record models.RawRecord
			if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
			}

			return []models.RawRecord{record}, nil
		}

		return decodeLines(trimmed)

	default:
		return nil, fmt.Errorf("%w: not a JSON array, object, or JSONL", ErrMalformedSource)
	}
}

func decodeLines(data string) ([]models.RawRecord, error) {
	var records []models.RawRecord

	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var record models.RawRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedSource, line, err)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	return records, nil
}

func sourceName(src Source) string {
	if src.Name != "" {
		return src.Name
	}

	if src.Path != "" {
		return src.Path
	}

	return "stream"
}
