package importer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"codemaster/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://question-pack.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// record is one question in the content-pack wire format.
type record struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"intitule"`
	Answers      []string `json:"reponses"`
	CorrectIndex int      `json:"indexBonneReponse"`
	Explanation  string   `json:"explication"`
	Category     string   `json:"categorie"`
	Difficulty   string   `json:"difficulte"`
}

// Parse reads a content pack, validates it and returns catalog records with
// zeroed counters. Records without an id get imported-<unixMillis>-<n>.
func Parse(r io.Reader, now time.Time) ([]domain.Question, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrInvalidImport, err)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrInvalidImport, err)
	}

	schema, err := packSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrInvalidImport, err)
	}

	stamp := now.UnixMilli()
	out := make([]domain.Question, 0, len(records))
	for i, rec := range records {
		if rec.CorrectIndex >= len(rec.Answers) {
			return nil, fmt.Errorf("%w: question %d: correct index %d out of range for %d answers",
				domain.ErrInvalidImport, i, rec.CorrectIndex, len(rec.Answers))
		}
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("imported-%d-%d", stamp, i)
		}
		out = append(out, domain.Question{
			ID:           id,
			Prompt:       rec.Prompt,
			Answers:      rec.Answers,
			CorrectIndex: rec.CorrectIndex,
			Explanation:  rec.Explanation,
			Category:     rec.Category,
			Difficulty:   domain.Difficulty(rec.Difficulty),
		})
	}
	return out, nil
}

func packSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(schemaJSON, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
