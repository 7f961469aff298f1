package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"halcyon-ai/relay/pkg/prompt"
	"halcyon-ai/relay/pkg/proxy"
	"halcyon-ai/relay/pkg/proxy/middleware"
	"halcyon-ai/relay/pkg/proxy/types"
	"halcyon-ai/relay/pkg/session"
	"halcyon-ai/relay/pkg/usage"
)

// OllamaHandler serves POST /api/chat and POST /api/generate. Both
// routes accept the same request shape and mirror generated text into
// the message and legacy response fields, so one handler covers them.
type OllamaHandler struct {
	deps   Deps
	logger *slog.Logger
}

// NewOllamaHandler creates the Ollama-dialect handler.
func NewOllamaHandler(deps Deps) *OllamaHandler {
	return &OllamaHandler{
		deps:   deps,
		logger: slog.Default().With("component", "handlers.ollama"),
	}
}

// ServeHTTP implements http.Handler.
func (h *OllamaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if r.Method != http.MethodPost {
		errResp := types.NewInvalidRequestError(
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			"method",
			"method_not_allowed",
		)
		h.writeError(ctx, w, errResp)
		return
	}

	req, err := proxy.ParseOllamaRequest(r)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to parse request",
			"request_id", requestID,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	promptText := h.renderPrompt(req)
	temperature := h.temperature(req)
	model := h.deps.modelName(req.Model)

	h.logger.InfoContext(ctx, "processing ollama request",
		"request_id", requestID,
		"path", r.URL.Path,
		"model", model,
		"stream", req.Streaming(),
	)

	sess, err := h.deps.Generator.Start(ctx, promptText, temperature)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start generation",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	if req.Streaming() {
		h.stream(ctx, w, sess, model, promptText, startTime)
		return
	}

	content, err := h.deps.Generator.Collect(ctx, sess)
	if err != nil {
		h.logger.WarnContext(ctx, "request cancelled during generation",
			"request_id", requestID,
			"endpoint", sess.Endpoint.Address,
		)
		return
	}
	content = proxy.StripThinkTags(content)

	resp := proxy.FormatOllamaResponse(model, promptText, content, true, time.Since(startTime))

	h.logger.InfoContext(ctx, "ollama completion successful",
		"request_id", requestID,
		"endpoint", sess.Endpoint.Address,
		"retries", sess.Retries,
		"eval_count", resp.EvalCount,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}

	h.recordUsage(ctx, usage.Record{
		ID:               proxy.NewCompletionID(),
		Protocol:         usage.ProtocolOllama,
		Model:            model,
		Endpoint:         sess.Endpoint.Address,
		Streamed:         false,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		FaultRetries:     sess.Retries,
		Duration:         time.Since(startTime),
	})
}

// stream writes one NDJSON line per chunk and a final done:true line
// carrying the duration fields and mirrored empty text fields.
func (h *OllamaHandler) stream(ctx context.Context, w http.ResponseWriter, sess *session.Session, model, promptText string, startTime time.Time) {
	requestID := middleware.GetRequestID(ctx)

	proxy.SetNDJSONHeaders(w)

	var completion strings.Builder
	for chunk := range h.deps.Generator.Stream(ctx, sess) {
		if chunk.Done || chunk.Text == "" {
			continue
		}
		completion.WriteString(chunk.Text)

		line := proxy.FormatOllamaResponse(model, promptText, chunk.Text, false, 0)
		if err := proxy.WriteNDJSONLine(w, line); err != nil {
			h.logger.WarnContext(ctx, "failed to write NDJSON line",
				"request_id", requestID,
				"error", err,
			)
			return
		}
	}

	if ctx.Err() != nil {
		h.logger.WarnContext(ctx, "stream cancelled",
			"request_id", requestID,
			"endpoint", sess.Endpoint.Address,
		)
		return
	}

	final := proxy.FormatOllamaResponse(model, promptText, "", true, time.Since(startTime))
	final.EvalCount = proxy.EstimateTokens(completion.String())
	if err := proxy.WriteNDJSONLine(w, final); err != nil {
		h.logger.WarnContext(ctx, "failed to write final NDJSON line",
			"request_id", requestID,
			"error", err,
		)
		return
	}

	h.logger.InfoContext(ctx, "ollama stream finished",
		"request_id", requestID,
		"endpoint", sess.Endpoint.Address,
		"retries", sess.Retries,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	h.recordUsage(ctx, usage.Record{
		ID:               proxy.NewCompletionID(),
		Protocol:         usage.ProtocolOllama,
		Model:            model,
		Endpoint:         sess.Endpoint.Address,
		Streamed:         true,
		PromptTokens:     proxy.EstimateTokens(promptText),
		CompletionTokens: final.EvalCount,
		FaultRetries:     sess.Retries,
		Duration:         time.Since(startTime),
	})
}

// renderPrompt formats the conversation, treating a raw prompt string as
// a single user message so both request forms go through the same
// filtering and cue handling.
func (h *OllamaHandler) renderPrompt(req *types.OllamaChatRequest) string {
	if len(req.Messages) > 0 {
		return h.deps.Formatter.Format(toPromptMessages(req.Messages))
	}
	return h.deps.Formatter.Format([]prompt.Message{
		{Role: prompt.RoleUser, Content: req.Prompt},
	})
}

func (h *OllamaHandler) temperature(req *types.OllamaChatRequest) float64 {
	if req.Options != nil && req.Options.Temperature != nil {
		return *req.Options.Temperature
	}
	return h.deps.DefaultTemperature
}

func (h *OllamaHandler) writeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

func (h *OllamaHandler) recordUsage(ctx context.Context, rec usage.Record) {
	if err := h.deps.record(ctx, rec); err != nil {
		h.logger.WarnContext(ctx, "failed to record usage", "error", err)
	}
}
