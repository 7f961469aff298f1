package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"halcyon-ai/relay/pkg/proxy"
	"halcyon-ai/relay/pkg/proxy/types"
)

// ModelsHandler serves GET /v1/models with the single advertised model.
type ModelsHandler struct {
	model  ModelInfo
	logger *slog.Logger
}

// NewModelsHandler creates the OpenAI model listing handler.
func NewModelsHandler(model ModelInfo) *ModelsHandler {
	return &ModelsHandler{
		model:  model,
		logger: slog.Default().With("component", "handlers.models"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := types.ModelList{
		Object: "list",
		Data: []types.Model{
			{
				ID:      h.model.Name,
				Object:  "model",
				Created: h.model.Created,
				OwnedBy: h.model.OwnedBy,
			},
		},
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, list); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write model list", "error", err)
	}
}

// TagsHandler serves GET /api/tags with the Ollama-style model listing.
type TagsHandler struct {
	model  ModelInfo
	logger *slog.Logger
}

// NewTagsHandler creates the Ollama tag listing handler.
func NewTagsHandler(model ModelInfo) *TagsHandler {
	return &TagsHandler{
		model:  model,
		logger: slog.Default().With("component", "handlers.tags"),
	}
}

// ServeHTTP implements http.Handler.
func (h *TagsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := h.model.Name
	if name == "" {
		name = "default"
	}

	list := types.OllamaTagList{
		Models: []types.OllamaModel{
			{
				Name:       name + ":latest",
				Model:      name + ":latest",
				ModifiedAt: time.Unix(h.model.Created, 0).UTC().Format(time.RFC3339),
				Size:       h.model.Size,
				Digest:     h.model.Digest,
				Details: types.OllamaModelDetails{
					Format:            "gguf",
					Family:            h.model.Family,
					Families:          []string{h.model.Family},
					ParameterSize:     h.model.ParameterSize,
					QuantizationLevel: h.model.QuantizationLevel,
				},
			},
		},
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, list); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write tag list", "error", err)
	}
}
