package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garnizeh/rojgar/internal/ai"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
)

// fakeSchemaRepo keeps schemas in a map.
type fakeSchemaRepo struct {
	schemas map[string]models.PromptSchema
}

func newFakeSchemaRepo() *fakeSchemaRepo {
	return &fakeSchemaRepo{schemas: make(map[string]models.PromptSchema)}
}

func (f *fakeSchemaRepo) SaveSchema(ctx context.Context, s *models.PromptSchema) error {
	s.ID = int64(len(f.schemas) + 1)
	f.schemas[s.Version] = *s
	return nil
}

func (f *fakeSchemaRepo) GetSchema(ctx context.Context, version string) (*models.PromptSchema, error) {
	if s, ok := f.schemas[version]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeSchemaRepo) ListSchemas(ctx context.Context) ([]models.PromptSchema, error) {
	out := make([]models.PromptSchema, 0, len(f.schemas))
	for _, s := range f.schemas {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSchemaRepo) DeleteSchema(ctx context.Context, version string) (bool, error) {
	_, ok := f.schemas[version]
	delete(f.schemas, version)
	return ok, nil
}

func (f *fakeSchemaRepo) add(t *testing.T, version, doc string) {
	t.Helper()
	if err := f.SaveSchema(context.Background(), &models.PromptSchema{Version: version, Document: []byte(doc)}); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
}

var _ repository.SchemaRepo = (*fakeSchemaRepo)(nil)

func TestSchemaSet_Validate(t *testing.T) {
	fr := newFakeSchemaRepo()
	fr.add(t, "v1", questionSchema)
	set, err := ai.NewSchemaSet(context.Background(), fr)
	if err != nil {
		t.Fatalf("NewSchemaSet: %v", err)
	}

	tests := []struct {
		name        string
		version     string
		doc         string
		wantSchema  bool
		wantProblem string
		wantOK      bool
	}{
		{name: "valid", version: "v1", doc: `{"technical":["q"],"behavioral":[]}`, wantOK: true},
		{name: "missing behavioral", version: "v1", doc: `{"technical":["q"]}`, wantSchema: true, wantProblem: "behavioral"},
		{name: "empty technical", version: "v1", doc: `{"technical":[],"behavioral":[]}`, wantSchema: true, wantProblem: "technical"},
		{name: "unknown version", version: "v7", doc: `{}`},
		{name: "not json", version: "v1", doc: `{nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := set.Validate(context.Background(), tt.version, []byte(tt.doc))
			if tt.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error")
			}
			var serr *ai.SchemaError
			if errors.As(err, &serr) != tt.wantSchema {
				t.Fatalf("SchemaError = %v, want %v (err %v)", serr != nil, tt.wantSchema, err)
			}
			if tt.wantProblem != "" && !strings.Contains(serr.Error(), tt.wantProblem) {
				t.Fatalf("error %q does not mention %q", serr.Error(), tt.wantProblem)
			}
		})
	}
}

func TestSchemaSet_InvalidSchemaFails(t *testing.T) {
	fr := newFakeSchemaRepo()
	fr.add(t, "bad", `{not json`)
	if _, err := ai.NewSchemaSet(context.Background(), fr); err == nil {
		t.Fatalf("expected NewSchemaSet to fail on invalid schema JSON")
	}
}

func TestSchemaSet_ReloadKeepsOldSetOnError(t *testing.T) {
	fr := newFakeSchemaRepo()
	set, err := ai.NewSchemaSet(context.Background(), fr)
	if err != nil {
		t.Fatalf("NewSchemaSet: %v", err)
	}
	if set.Has("v2") {
		t.Fatalf("expected empty set")
	}

	fr.add(t, "v2", `{"type":"object"}`)
	if err := set.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if !set.Has("v2") {
		t.Fatalf("expected v2 after reload")
	}

	fr.add(t, "v3", `{broken`)
	if err := set.Reload(context.Background()); err == nil {
		t.Fatalf("expected reload to fail")
	}
	if !set.Has("v2") {
		t.Fatalf("failed reload should keep the previous schemas")
	}
}
