package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/api/response"
)

// OpenAPIHandler serves the shell's OpenAPI document as JSON, stamped with
// the running version.
type OpenAPIHandler struct {
	rawYAML  []byte
	version  string
	jsonOnce sync.Once
	jsonSpec []byte
	jsonErr  error
}

// NewOpenAPIHandler creates a handler that converts the YAML document to JSON
// on first request.
func NewOpenAPIHandler(yamlSpec []byte, version string) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlSpec, version: version}
}

// ServeHTTP writes the cached JSON document.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.jsonOnce.Do(func() {
		h.jsonSpec, h.jsonErr = h.render()
	})

	if h.jsonErr != nil {
		slog.Error("failed to convert OpenAPI spec to JSON", "error", h.jsonErr)
		requestID := middleware.GetRequestID(r.Context())
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI spec", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.jsonSpec); err != nil {
		slog.Error("failed to write OpenAPI spec response", "error", err)
	}
}

func (h *OpenAPIHandler) render() ([]byte, error) {
	raw, err := yaml.YAMLToJSON(h.rawYAML)
	if err != nil {
		return nil, fmt.Errorf("converting YAML: %w", err)
	}
	if h.version == "" {
		return raw, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	info, ok := doc["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
		doc["info"] = info
	}
	info["version"] = h.version

	return json.Marshal(doc)
}
