package provider

import (
	"context"
	"errors"
	"iter"
	"strings"
)

type Completer interface {
	Complete(ctx context.Context, messages []Message, options *CompleteOptions) iter.Seq2[*Completion, error]
}

type Message struct {
	Role MessageRole

	Content []Content
}

func SystemMessage(content string) Message {
	return Message{
		Role: MessageRoleSystem,

		Content: []Content{
			{
				Text: content,
			},
		},
	}
}

func UserMessage(content string) Message {
	return Message{
		Role: MessageRoleUser,

		Content: []Content{
			{
				Text: content,
			},
		},
	}
}

func AssistantMessage(content string) Message {
	return Message{
		Role: MessageRoleAssistant,

		Content: []Content{
			{
				Text: content,
			},
		},
	}
}

func (m Message) Text() string {
	var parts []string

	for _, c := range m.Content {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}

	return strings.Join(parts, "\n\n")
}

type CompletionAccumulator struct {
	id    string
	model string

	role MessageRole

	content   strings.Builder
	reasoning strings.Builder

	usage *Usage
}

func (a *CompletionAccumulator) Add(c Completion) {
	if c.ID != "" {
		a.id = c.ID
	}

	if c.Model != "" {
		a.model = c.Model
	}

	if c.Message != nil {
		if c.Message.Role != "" {
			a.role = c.Message.Role
		}

		for _, c := range c.Message.Content {
			if c.Text != "" {
				a.content.WriteString(c.Text)
			}

			if c.Reasoning != nil {
				a.reasoning.WriteString(c.Reasoning.Text)
			}
		}
	}

	if c.Usage != nil {
		if a.usage == nil {
			a.usage = &Usage{}
		}

		a.usage.InputTokens += c.Usage.InputTokens
		a.usage.OutputTokens += c.Usage.OutputTokens

		a.usage.CacheReadInputTokens += c.Usage.CacheReadInputTokens
		a.usage.CacheCreationInputTokens += c.Usage.CacheCreationInputTokens
	}
}

func (a *CompletionAccumulator) Result() *Completion {
	var content []Content

	if a.reasoning.Len() > 0 {
		content = append(content, ReasoningContent(Reasoning{Text: a.reasoning.String()}))
	}

	if a.content.Len() > 0 {
		content = append(content, TextContent(a.content.String()))
	}

	role := a.role

	if role == "" {
		role = MessageRoleAssistant
	}

	return &Completion{
		ID:    a.id,
		Model: a.model,

		Message: &Message{
			Role:    role,
			Content: content,
		},

		Usage: a.usage,
	}
}

// Collect drains a completion stream into a single completion.
func Collect(seq iter.Seq2[*Completion, error]) (*Completion, error) {
	var acc CompletionAccumulator

	var received bool

	for c, err := range seq {
		if err != nil {
			return nil, err
		}

		if c == nil {
			continue
		}

		received = true
		acc.Add(*c)
	}

	if !received {
		return nil, errors.New("empty completion")
	}

	return acc.Result(), nil
}

func TextContent(val string) Content {
	return Content{
		Text: val,
	}
}

func ReasoningContent(val Reasoning) Content {
	return Content{
		Reasoning: &val,
	}
}

type Content struct {
	Text string

	Reasoning *Reasoning
}

type Reasoning struct {
	Text      string
	Signature string
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type CompleteOptions struct {
	Stop []string

	MaxTokens   *int
	Temperature *float32

	Format CompletionFormat
	Schema *Schema
}

type Completion struct {
	ID    string
	Model string

	Message *Message

	Usage *Usage
}

type CompletionFormat string

const (
	CompletionFormatJSON CompletionFormat = "json"
)
