package importer

import (
	"bytes"
	_ "embed"
	"time"

	"codemaster/internal/domain"
)

//go:embed starter.json
var starterPack []byte

// Starter returns the bundled catalog used to seed an empty store.
func Starter() ([]domain.Question, error) {
	return Parse(bytes.NewReader(starterPack), time.Time{})
}
