package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/magicmaxmagic/ScrappingBot/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("error", "text")
}

func TestExtractor_Extract_JSONArray(t *testing.T) {
	e := NewExtractor(testLogger())

	src := Source{
		Name:   "array",
		Reader: strings.NewReader(`[{"url": "https://example.com/1"}, {"url": "https://example.com/2"}]`),
	}

	result := e.Extract(src)

	if len(result.SourceErrors) != 0 {
		t.Fatalf("unexpected source errors: %v", result.SourceErrors)
	}

	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}

	if result.Records[0].String("url") != "https://example.com/1" {
		t.Errorf("url = %q", result.Records[0].String("url"))
	}
}

func TestExtractor_Extract_SingleObject(t *testing.T) {
	e := NewExtractor(testLogger())

	result := e.Extract(Source{Name: "one", Reader: strings.NewReader(`{"url": "https://example.com/1"}`)})

	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(result.Records))
	}
}

func TestExtractor_Extract_JSONL(t *testing.T) {
	e := NewExtractor(testLogger())

	input := `{"url": "https://example.com/1"}

{"url": "https://example.com/2"}
{"url": "https://example.com/3"}
`

	result := e.Extract(Source{Name: "lines", Reader: strings.NewReader(input)})

	if len(result.SourceErrors) != 0 {
		t.Fatalf("unexpected source errors: %v", result.SourceErrors)
	}

	if len(result.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(result.Records))
	}
}

func TestExtractor_Extract_MalformedSourceSkipped(t *testing.T) {
	e := NewExtractor(testLogger())

	good := Source{Name: "good", Reader: strings.NewReader(`[{"url": "https://example.com/1"}]`)}
	bad := Source{Name: "bad", Reader: strings.NewReader(`this is not json`)}

	result := e.Extract(bad, good)

	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1 from the good source", len(result.Records))
	}

	if len(result.SourceErrors) != 1 {
		t.Fatalf("got %d source errors, want 1", len(result.SourceErrors))
	}

	if result.SourceErrors[0].Source != "bad" {
		t.Errorf("source = %q, want bad", result.SourceErrors[0].Source)
	}

	if !errors.Is(result.SourceErrors[0].Err, ErrMalformedSource) {
		t.Errorf("error = %v, want ErrMalformedSource", result.SourceErrors[0].Err)
	}
}

func TestExtractor_Extract_MalformedJSONLLine(t *testing.T) {
	e := NewExtractor(testLogger())

	input := `{"url": "https://example.com/1"}
not json
`

	result := e.Extract(Source{Name: "lines", Reader: strings.NewReader(input)})

	if len(result.SourceErrors) != 1 {
		t.Fatalf("got %d source errors, want 1", len(result.SourceErrors))
	}
}

func TestExtractor_Extract_MissingFile(t *testing.T) {
	e := NewExtractor(testLogger())

	result := e.Extract(Source{Name: "gone", Path: filepath.Join(t.TempDir(), "nope.json")})

	if len(result.Records) != 0 || len(result.SourceErrors) != 0 {
		t.Error("a missing file should contribute nothing and raise no error")
	}
}

func TestExtractor_Extract_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, []byte(`[{"url": "https://example.com/1"}]`), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	e := NewExtractor(testLogger())

	result := e.Extract(Source{Name: "file", Path: path})

	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(result.Records))
	}
}

func TestExtractor_Extract_EmptySource(t *testing.T) {
	e := NewExtractor(testLogger())

	result := e.Extract(Source{Name: "empty", Reader: strings.NewReader("  \n ")})

	if len(result.Records) != 0 || len(result.SourceErrors) != 0 {
		t.Error("an empty source should contribute nothing")
	}
}
