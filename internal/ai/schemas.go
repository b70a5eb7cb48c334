package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/rojgar/pkg/repository"
)

// SchemaError lists why a model answer was rejected by its schema.
type SchemaError struct {
	Version  string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("answer does not match schema %s: %s", e.Version, strings.Join(e.Problems, "; "))
}

// SchemaSet holds the compiled answer schemas keyed by version.
type SchemaSet struct {
	repo repository.SchemaRepo

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaSet compiles every schema stored in r.
func NewSchemaSet(ctx context.Context, r repository.SchemaRepo) (*SchemaSet, error) {
	s := &SchemaSet{repo: r}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload recompiles all schemas. On error the previous set stays in use.
func (s *SchemaSet) Reload(ctx context.Context) error {
	compiled, err := s.compile(ctx)
	if err != nil {
		return err
	}
	s.install(compiled)
	return nil
}

// compile reads and compiles every stored schema without touching the
// active set.
func (s *SchemaSet) compile(ctx context.Context) (map[string]*jsonschema.Schema, error) {
	rows, err := s.repo.ListSchemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}

	compiled := make(map[string]*jsonschema.Schema, len(rows))
	for _, row := range rows {
		sch := &jsonschema.Schema{}
		if err := json.Unmarshal(row.Document, sch); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", row.Version, err)
		}
		compiled[row.Version] = sch
	}
	return compiled, nil
}

func (s *SchemaSet) install(compiled map[string]*jsonschema.Schema) {
	s.mu.Lock()
	s.compiled = compiled
	s.mu.Unlock()
	logger.Debug("answer schemas loaded", "count", len(compiled))
}

// Has reports whether a schema with version is loaded.
func (s *SchemaSet) Has(version string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.compiled[version]
	return ok
}

// Validate checks doc against the schema version. Mismatches come back as
// *SchemaError.
func (s *SchemaSet) Validate(ctx context.Context, version string, doc []byte) error {
	s.mu.RLock()
	sch, ok := s.compiled[version]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema loaded for version %s", version)
	}

	keyErrs, err := sch.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("validate against schema %s: %w", version, err)
	}
	if len(keyErrs) == 0 {
		return nil
	}

	serr := &SchemaError{Version: version}
	for _, ke := range keyErrs {
		path := ke.PropertyPath
		if path == "" {
			path = "/"
		}
		serr.Problems = append(serr.Problems, path+": "+ke.Message)
	}
	return serr
}
