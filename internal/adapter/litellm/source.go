package litellm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

const systemPrompt = `You are a regulatory research assistant for financial compliance.
Answer with a single JSON object: {"text": string, "snippets": [{"source_id": string,
"source_type": one of regulation|guidance|case_law|industry_standard|internal_policy,
"jurisdiction": string, "text": string, "citation": string, "trust": number 0..1,
"published_at": RFC3339 date or empty}]}. Cite only sources you are confident exist.`

// Source implements evidence.Source on top of a chat completion model.
type Source struct {
	client *Client
	model  string
}

// NewSource creates an evidence source using the given model name.
func NewSource(client *Client, model string) *Source {
	return &Source{client: client, model: model}
}

type wireSnippet struct {
	SourceID     string  `json:"source_id"`
	SourceType   string  `json:"source_type"`
	Jurisdiction string  `json:"jurisdiction"`
	Text         string  `json:"text"`
	Citation     string  `json:"citation"`
	Trust        float64 `json:"trust"`
	PublishedAt  string  `json:"published_at"`
}

type wireResult struct {
	Text     string        `json:"text"`
	Snippets []wireSnippet `json:"snippets"`
}

// Retrieve asks the model for snippets relevant to req.
func (s *Source) Retrieve(ctx context.Context, req evidence.Request) (*evidence.Result, error) {
	content, err := s.client.Complete(ctx, ChatRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", req.Purpose, err)
	}
	return parseResult(content, req.MaxSnippets), nil
}

// Health reports proxy liveness.
func (s *Source) Health(ctx context.Context) (bool, error) {
	return s.client.Health(ctx)
}

func userPrompt(req evidence.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purpose: %s\n", req.Purpose)
	fmt.Fprintf(&b, "Jurisdiction: %s\n", req.Jurisdiction)
	if len(req.Frameworks) > 0 {
		fmt.Fprintf(&b, "Frameworks: %s\n", strings.Join(req.Frameworks, ", "))
	}
	if req.MaxSnippets > 0 {
		fmt.Fprintf(&b, "Return at most %d snippets.\n", req.MaxSnippets)
	}
	fmt.Fprintf(&b, "Question: %s", req.Query)
	return b.String()
}

// parseResult decodes the model output. Non-JSON output is kept as plain text.
func parseResult(content string, limit int) *evidence.Result {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var wr wireResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &wr); err != nil {
		return &evidence.Result{Text: strings.TrimSpace(content)}
	}

	out := &evidence.Result{Text: wr.Text}
	for _, ws := range wr.Snippets {
		if ws.Text == "" {
			continue
		}
		if limit > 0 && len(out.Snippets) == limit {
			break
		}
		sn := evidence.Snippet{
			SourceID:     ws.SourceID,
			SourceType:   ws.SourceType,
			Jurisdiction: ws.Jurisdiction,
			Text:         ws.Text,
			Citation:     ws.Citation,
			Trust:        ws.Trust,
		}
		if ws.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, ws.PublishedAt); err == nil {
				sn.PublishedAt = t
			} else if t, err := time.Parse(time.DateOnly, ws.PublishedAt); err == nil {
				sn.PublishedAt = t
			}
		}
		out.Snippets = append(out.Snippets, sn)
	}
	return out
}
