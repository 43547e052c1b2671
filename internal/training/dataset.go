package training

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidDataset = errors.New("invalid training dataset")

const exampleSchema = `{
  "type": "object",
  "required": ["text", "label"],
  "properties": {
    "text":  {"type": "string", "pattern": "\\S"},
    "label": {"type": "string", "pattern": "\\S"}
  }
}`

var schema = mustSchema(exampleSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sch
}

// Example is one line of the JSONL training file.
type Example struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type Dataset struct {
	Texts  []string
	Labels []string
}

func (d *Dataset) Len() int { return len(d.Texts) }

// LabelCounts returns the number of examples per label.
func (d *Dataset) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, l := range d.Labels {
		counts[l]++
	}
	return counts
}

func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset parses JSON Lines of {"text": ..., "label": ...}. Blank lines
// are skipped; every other line must satisfy the example schema.
func ReadDataset(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	ds := &Dataset{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		result, err := schema.Validate(gojsonschema.NewStringLoader(line))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid JSON: %v", ErrInvalidDataset, lineNo, err)
		}
		if !result.Valid() {
			errs := make([]string, len(result.Errors()))
			for i, desc := range result.Errors() {
				errs[i] = desc.String()
			}
			return nil, fmt.Errorf("%w: line %d: %s", ErrInvalidDataset, lineNo, strings.Join(errs, "; "))
		}

		var ex Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDataset, lineNo, err)
		}
		ds.Texts = append(ds.Texts, ex.Text)
		ds.Labels = append(ds.Labels, ex.Label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: no examples", ErrInvalidDataset)
	}
	return ds, nil
}
