// Package assistant collects form answers through a chat conversation.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mbolis/quick-form/model"
	"github.com/microcosm-cc/bluemonday"
	openai "github.com/sashabaranov/go-openai"
)

// FinalPhrase is said by the assistant once every answer has been collected.
const FinalPhrase = "I have all the information I need. We can finalize now."

type Assistant interface {
	// Reply continues the conversation after the respondent said next.
	Reply(ctx context.Context, form model.Form, history []model.Message, next string) (string, error)
	// Extract turns a finished conversation into answers keyed by model.FieldKeys.
	Extract(ctx context.Context, form model.Form, history []model.Message) (map[string]string, error)
}

// FollowUp asks the respondent to fix the answers that did not fit the form.
func FollowUp(issues []string) string {
	return "Some answers are still missing or do not fit the form:\n- " +
		strings.Join(issues, "\n- ") +
		"\nCould you help me complete them?"
}

// Finished reports whether reply closes the conversation.
func Finished(reply string) bool {
	return strings.Contains(reply, FinalPhrase)
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAI struct {
	client chatClient
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (a *OpenAI) Reply(ctx context.Context, form model.Form, history []model.Message, next string) (string, error) {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: conversationPrompt(form),
	}}
	messages = append(messages, toChat(history)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: next,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *OpenAI) Extract(ctx context.Context, form model.Form, history []model.Message) (map[string]string, error) {
	messages := toChat(history)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: extractionPrompt(form),
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices")
	}
	return ParseAnswers(form, resp.Choices[0].Message.Content)
}

func toChat(history []model.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case model.AssistantRole:
			role = openai.ChatMessageRoleAssistant
		case model.SystemRole:
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return messages
}

func requirements(form model.Form) string {
	var b strings.Builder
	keys := model.FieldKeys(form.Inputs)
	for i, input := range form.Inputs {
		fmt.Fprintf(&b, "- %s (%s): %s", keys[i], input.Label, input.Description)
		switch data := input.Data.(type) {
		case model.ChoiceData:
			fmt.Fprintf(&b, " [choice: %s]", strings.Join(quoteAll(data.Values), ", "))
		case model.NumberData:
			b.WriteString(" [number]")
		case model.StringData:
			b.WriteString(" [text]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func conversationPrompt(form model.Form) string {
	return fmt.Sprintf(`You are a compassionate assistant collecting answers for the questionnaire %q.
The following data is required:
%s
Ask clarifying questions if the user's answer is vague.
Once you believe you have all necessary data, say the exact phrase:
%q
After that, do not ask further questions.`, form.Title, requirements(form), FinalPhrase)
}

func extractionPrompt(form model.Form) string {
	return fmt.Sprintf(`You are now a data parser. Output a single JSON object with exactly these keys:
%s
For choice fields use one of the listed values verbatim. Use an empty string for missing data.
Return valid JSON only, no extra text.`, requirements(form))
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return quoted
}

var policy = bluemonday.StrictPolicy()

// ParseAnswers decodes the extraction reply. Only keys of the form's inputs
// are kept; non-string values are formatted and every value is stripped of markup.
func ParseAnswers(form model.Form, reply string) (map[string]string, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return nil, fmt.Errorf("could not parse answers: %w", err)
	}

	answers := map[string]string{}
	for _, key := range model.FieldKeys(form.Inputs) {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			s = fmt.Sprint(v)
		}
		answers[key] = Sanitize(s)
	}
	return answers, nil
}

// Sanitize strips markup from respondent-provided text. The result is plain
// text: entities produced by the policy are decoded again.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
