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

// ChatCompletionsHandler serves POST /v1/chat/completions in both
// buffered and SSE streaming form.
type ChatCompletionsHandler struct {
	deps   Deps
	logger *slog.Logger
}

// NewChatCompletionsHandler creates the OpenAI chat completions handler.
func NewChatCompletionsHandler(deps Deps) *ChatCompletionsHandler {
	return &ChatCompletionsHandler{
		deps:   deps,
		logger: slog.Default().With("component", "handlers.openai"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	chatReq, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to parse request",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	promptText := h.deps.Formatter.Format(toPromptMessages(chatReq.Messages))
	temperature := h.deps.temperature(chatReq.Temperature)
	model := h.deps.modelName(chatReq.Model)

	h.logger.InfoContext(ctx, "processing chat completion request",
		"request_id", requestID,
		"model", model,
		"messages", len(chatReq.Messages),
		"stream", chatReq.Stream,
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

	if chatReq.Stream {
		h.stream(ctx, w, sess, model, promptText, startTime)
		return
	}

	content, err := h.deps.Generator.Collect(ctx, sess)
	if err != nil {
		// Collect fails only when the client went away; there is no one
		// left to write a response to.
		h.logger.WarnContext(ctx, "request cancelled during generation",
			"request_id", requestID,
			"endpoint", sess.Endpoint.Address,
		)
		return
	}
	content = proxy.StripThinkTags(content)

	resp := proxy.FormatChatCompletionResponse(proxy.NewCompletionID(), model, promptText, content)

	h.logger.InfoContext(ctx, "chat completion successful",
		"request_id", requestID,
		"endpoint", sess.Endpoint.Address,
		"retries", sess.Retries,
		"completion_tokens", resp.Usage.CompletionTokens,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}

	h.recordUsage(ctx, usage.Record{
		ID:               resp.ID,
		Protocol:         usage.ProtocolOpenAI,
		Model:            model,
		Endpoint:         sess.Endpoint.Address,
		Streamed:         false,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		FaultRetries:     sess.Retries,
		Duration:         time.Since(startTime),
	})
}

// stream forwards chunks as SSE events, ending with the literal [DONE]
// terminator. Every non-empty chunk becomes exactly one event; chunks
// forwarded before a mid-stream fault stay with the client.
func (h *ChatCompletionsHandler) stream(ctx context.Context, w http.ResponseWriter, sess *session.Session, model, promptText string, startTime time.Time) {
	requestID := middleware.GetRequestID(ctx)
	completionID := proxy.NewCompletionID()

	proxy.SetSSEHeaders(w)

	var completion strings.Builder
	for chunk := range h.deps.Generator.Stream(ctx, sess) {
		if chunk.Done || chunk.Text == "" {
			continue
		}
		completion.WriteString(chunk.Text)

		event := proxy.FormatStreamChunk(completionID, model, chunk.Text, "")
		if err := proxy.WriteSSEChunk(w, event); err != nil {
			h.logger.WarnContext(ctx, "failed to write SSE chunk",
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

	if err := proxy.WriteSSEDone(w); err != nil {
		h.logger.WarnContext(ctx, "failed to write SSE terminator",
			"request_id", requestID,
			"error", err,
		)
		return
	}

	h.logger.InfoContext(ctx, "streaming chat completion finished",
		"request_id", requestID,
		"endpoint", sess.Endpoint.Address,
		"retries", sess.Retries,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	h.recordUsage(ctx, usage.Record{
		ID:               completionID,
		Protocol:         usage.ProtocolOpenAI,
		Model:            model,
		Endpoint:         sess.Endpoint.Address,
		Streamed:         true,
		PromptTokens:     proxy.EstimateTokens(promptText),
		CompletionTokens: proxy.EstimateTokens(completion.String()),
		FaultRetries:     sess.Retries,
		Duration:         time.Since(startTime),
	})
}

func (h *ChatCompletionsHandler) writeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

func (h *ChatCompletionsHandler) recordUsage(ctx context.Context, rec usage.Record) {
	if err := h.deps.record(ctx, rec); err != nil {
		h.logger.WarnContext(ctx, "failed to record usage", "error", err)
	}
}

// toPromptMessages converts wire messages to formatter input.
func toPromptMessages(messages []types.ChatMessage) []prompt.Message {
	out := make([]prompt.Message, len(messages))
	for i, msg := range messages {
		out[i] = prompt.Message{
			Role:    prompt.Role(msg.Role),
			Content: msg.Content,
		}
	}
	return out
}
