// Package anthropic implements llm.Transport over the Anthropic Messages API
// with plain HTTP. Provider errors are converted to *llm.TransportError at
// this boundary so classification never sees provider-specific shapes.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/daniel-osaze/newsletter-mentions/internal/llm"
)

var errMissingAPIKey = errors.New("anthropic: API key is required (set ANTHROPIC_API_KEY)")

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":       req.Model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"system":      req.System,
		"messages":    messages,
	}

	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		if status > 0 {
			return llm.CompletionResponse{}, &llm.TransportError{
				Status:  status,
				Message: apiErrorMessage(raw),
				Err:     err,
			}
		}
		// no response at all: network fault or deadline
		return llm.CompletionResponse{}, &llm.TransportError{Message: "request failed", Err: err}
	}

	var mr struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &mr); err != nil {
		return llm.CompletionResponse{}, &llm.TransportError{
			Status:  status,
			Message: "decode messages response",
			Err:     err,
		}
	}

	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return llm.CompletionResponse{}, &llm.TransportError{
			Status:  status,
			Message: "empty content in messages response",
		}
	}

	return llm.CompletionResponse{
		Text:         text.String(),
		Model:        mr.Model,
		InputTokens:  mr.Usage.InputTokens,
		OutputTokens: mr.Usage.OutputTokens,
	}, nil
}

// apiErrorMessage extracts {"error":{"message":...}} from an error body,
// falling back to a trimmed raw body.
func apiErrorMessage(raw []byte) string {
	var er struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		if er.Error.Type != "" {
			return er.Error.Type + ": " + er.Error.Message
		}
		return er.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
