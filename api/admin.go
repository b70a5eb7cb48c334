package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/ollama"
	"github.com/garnizeh/rojgar/pkg/repository"
)

// maxPromptAssetSize bounds uploaded schemas and templates.
const maxPromptAssetSize = 64 * 1024

// Reloader is satisfied by *ai.Engine.
type Reloader interface {
	Reload(ctx context.Context) error
}

// AdminHandler manages the prompt templates and answer schemas used by the
// question generator.
type AdminHandler struct {
	engine    Reloader
	schemas   repository.SchemaRepo
	templates repository.TemplateRepo
}

func NewAdminHandler(engine Reloader, schemas repository.SchemaRepo, templates repository.TemplateRepo) *AdminHandler {
	return &AdminHandler{engine: engine, schemas: schemas, templates: templates}
}

// Reload makes the engine pick up edited templates and schemas.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := h.engine.Reload(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("reload: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	rows, err := h.schemas.ListSchemas(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list schemas: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows, http.StatusOK)
}

func (h *AdminHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	s, err := h.schemas.GetSchema(r.Context(), mux.Vars(r)["version"])
	if err != nil {
		http.Error(w, fmt.Sprintf("get schema: %v", err), http.StatusInternalServerError)
		return
	}
	if s == nil {
		http.Error(w, "schema not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s, http.StatusOK)
}

type schemaRequest struct {
	Description string          `json:"description"`
	Document    json.RawMessage `json:"document"`
}

// PutSchema stores the schema under the version in the path. The document
// must compile as a JSON schema object.
func (h *AdminHandler) PutSchema(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if !decodeAsset(w, r, &req) {
		return
	}

	doc := strings.TrimSpace(string(req.Document))
	if !strings.HasPrefix(doc, "{") {
		http.Error(w, "document must be a JSON schema object", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(req.Document, &jsonschema.Schema{}); err != nil {
		http.Error(w, fmt.Sprintf("invalid schema: %v", err), http.StatusBadRequest)
		return
	}

	s := &models.PromptSchema{
		Version:     mux.Vars(r)["version"],
		Description: strings.TrimSpace(req.Description),
		Document:    json.RawMessage(doc),
	}
	if err := h.schemas.SaveSchema(r.Context(), s); err != nil {
		http.Error(w, fmt.Sprintf("store schema: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s, http.StatusOK)
}

// DeleteSchema refuses to remove a schema a template still points at.
func (h *AdminHandler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version := mux.Vars(r)["version"]

	tpls, err := h.templates.ListTemplates(ctx)
	if err != nil {
		http.Error(w, fmt.Sprintf("list templates: %v", err), http.StatusInternalServerError)
		return
	}
	for _, t := range tpls {
		if t.SchemaVersion == version {
			http.Error(w, fmt.Sprintf("schema %s is used by template %s:%s", version, t.Name, t.Version), http.StatusConflict)
			return
		}
	}

	deleted, err := h.schemas.DeleteSchema(ctx, version)
	if err != nil {
		http.Error(w, fmt.Sprintf("delete schema: %v", err), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "schema not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.templates.ListTemplates(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list templates: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows, http.StatusOK)
}

func (h *AdminHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := h.templates.GetTemplate(r.Context(), vars["name"], vars["version"])
	if err != nil {
		http.Error(w, fmt.Sprintf("get template: %v", err), http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

type templateRequest struct {
	Body          string `json:"body"`
	SchemaVersion string `json:"schemaVersion"`
}

// templateSample is what a stored template must render against.
var templateSample = map[string]any{"Stack": "backend_development", "Count": 1}

// PutTemplate stores a prompt template after a trial render. A referenced
// schema version must exist.
func (h *AdminHandler) PutTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeAsset(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}
	if _, err := ollama.RenderPrompt(req.Body, templateSample); err != nil {
		http.Error(w, fmt.Sprintf("template does not render: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	req.SchemaVersion = strings.TrimSpace(req.SchemaVersion)
	if req.SchemaVersion != "" {
		s, err := h.schemas.GetSchema(ctx, req.SchemaVersion)
		if err != nil {
			http.Error(w, fmt.Sprintf("get schema: %v", err), http.StatusInternalServerError)
			return
		}
		if s == nil {
			http.Error(w, fmt.Sprintf("unknown schema version %q", req.SchemaVersion), http.StatusBadRequest)
			return
		}
	}

	vars := mux.Vars(r)
	t := &models.PromptTemplate{Name: vars["name"], Version: vars["version"], Body: req.Body, SchemaVersion: req.SchemaVersion}
	if err := h.templates.SaveTemplate(ctx, t); err != nil {
		http.Error(w, fmt.Sprintf("store template: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (h *AdminHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deleted, err := h.templates.DeleteTemplate(r.Context(), vars["name"], vars["version"])
	if err != nil {
		http.Error(w, fmt.Sprintf("delete template: %v", err), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAsset reads a size-limited JSON body into v, answering 400/413 itself.
func decodeAsset(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxPromptAssetSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}
