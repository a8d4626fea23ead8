package llm

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/provider"
	"github.com/adrianliechti/forge/pkg/text"

	"github.com/google/jsonschema-go/jsonschema"
)

var _ planner.Provider = &Client{}

var (
	//go:embed prompt.md
	prompt string

	//go:embed retry.md
	retry string

	retryTemplate = template.Must(template.New("retry").Parse(retry))
)

type Client struct {
	completer provider.Completer

	attempts    int
	temperature float32

	schema   *provider.Schema
	resolved *jsonschema.Resolved
}

type response struct {
	Ops []document.PatchOp `json:"ops"`

	Rationale string   `json:"rationale,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

type input struct {
	DocumentID string `json:"doc_id"`
	PageIndex  int    `json:"page_index"`

	Instruction string `json:"instruction"`

	Selection []document.SelectionFingerprint `json:"selection"`
}

func New(completer provider.Completer, options ...Option) (*Client, error) {
	schema, err := jsonschema.For[response](nil)

	if err != nil {
		return nil, err
	}

	resolved, err := schema.Resolve(nil)

	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(schema)

	if err != nil {
		return nil, err
	}

	var properties map[string]any

	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, err
	}

	c := &Client{
		completer: completer,

		attempts: 2,

		schema: &provider.Schema{
			Name:        "patch_plan",
			Description: "edit operations for the selected elements",

			Schema: properties,
		},

		resolved: resolved,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Plan asks the model for ops and validates them against the selection. An
// invalid answer is retried once with a stricter prompt naming the problem.
func (c *Client) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	if len(req.Selection) == 0 {
		return nil, fmt.Errorf("%w: empty selection", planner.ErrPlanningFailed)
	}

	data, err := json.Marshal(input{
		DocumentID: req.DocumentID,
		PageIndex:  req.PageIndex,

		Instruction: req.Prompt,

		Selection: req.Selection,
	})

	if err != nil {
		return nil, err
	}

	system := prompt

	var lastErr error

	for attempt := range c.attempts {
		if attempt > 0 {
			var buf bytes.Buffer

			if err := retryTemplate.Execute(&buf, map[string]any{"Error": lastErr.Error()}); err != nil {
				return nil, err
			}

			system = prompt + "\n\n" + buf.String()
		}

		plan, err := c.complete(ctx, system, string(data))

		if err != nil {
			var invalid *invalidOutputError

			// provider and transport failures are not retried
			if !errors.As(err, &invalid) {
				return nil, err
			}
		} else {
			err = planner.Validate(req, plan)
		}

		if err == nil {
			return plan, nil
		}

		slog.WarnContext(ctx, "rejected plan", "doc_id", req.DocumentID, "page_index", req.PageIndex, "attempt", attempt+1, "error", err)

		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", planner.ErrPlanningFailed, lastErr)
}

func (c *Client) complete(ctx context.Context, system, user string) (*planner.Plan, error) {
	messages := []provider.Message{
		provider.SystemMessage(system),
		provider.UserMessage(user),
	}

	options := &provider.CompleteOptions{
		Temperature: &c.temperature,

		Format: provider.CompletionFormatJSON,
		Schema: c.schema,
	}

	completion, err := provider.Collect(c.completer.Complete(ctx, messages, options))

	if err != nil {
		return nil, err
	}

	content, err := text.ExtractJSON(completion.Message.Text())

	if err != nil {
		return nil, &invalidOutputError{err}
	}

	var raw any

	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &invalidOutputError{err}
	}

	if err := c.resolved.Validate(raw); err != nil {
		return nil, &invalidOutputError{err}
	}

	var result response

	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, &invalidOutputError{err}
	}

	return &planner.Plan{
		Ops: result.Ops,

		Rationale: result.Rationale,
		Warnings:  result.Warnings,
	}, nil
}
