package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/mbolis/quick-form/model"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

var diary = model.Form{
	Title: "Diary",
	Inputs: []model.InputField{
		{Description: "How do you feel?", Label: "Mood", Data: model.ChoiceData{Values: []string{"Terrible", "Fine", "Great"}}},
		{Description: "How long did you sleep?", Label: "Hours slept", Data: model.NumberData{}},
		{Description: "Anything else?", Label: "Notes", Data: model.StringData{}},
	},
}

func TestFinished(t *testing.T) {
	assert.True(t, Finished("Thanks! "+FinalPhrase))
	assert.False(t, Finished("How many hours did you sleep?"))
}

func TestParseAnswers(t *testing.T) {
	answers, err := ParseAnswers(diary, "```json\n{\"mood\": \"Fine\", \"hours_slept\": 7.5, \"notes\": \"<b>tired</b>\", \"extra\": \"x\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"mood":        "Fine",
		"hours_slept": "7.5",
		"notes":       "tired",
	}, answers)
}

func TestParseAnswersInvalid(t *testing.T) {
	_, err := ParseAnswers(diary, "I could not do it")
	assert.Error(t, err)
}

func TestReply(t *testing.T) {
	client := &mockChatClient{}
	a := &OpenAI{client: client, model: openai.GPT3Dot5Turbo}

	history := []model.Message{
		{Role: model.UserRole, Content: "hi"},
		{Role: model.AssistantRole, Content: "How do you feel?"},
	}
	client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 4 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[2].Role == openai.ChatMessageRoleAssistant &&
			req.Messages[3].Content == "fine"
	})).Return(reply("How long did you sleep?"), nil)

	got, err := a.Reply(context.Background(), diary, history, "fine")
	require.NoError(t, err)
	assert.Equal(t, "How long did you sleep?", got)
	client.AssertExpectations(t)
}

func TestReplyError(t *testing.T) {
	client := &mockChatClient{}
	a := &OpenAI{client: client, model: openai.GPT3Dot5Turbo}

	client.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, errors.New("rate limited"))

	_, err := a.Reply(context.Background(), diary, nil, "fine")
	assert.ErrorContains(t, err, "rate limited")
}

func TestExtract(t *testing.T) {
	client := &mockChatClient{}
	a := &OpenAI{client: client, model: openai.GPT3Dot5Turbo}

	client.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Temperature == 0
	})).Return(reply(`{"mood": "Great", "hours_slept": 8, "notes": ""}`), nil)

	answers, err := a.Extract(context.Background(), diary, []model.Message{{Role: model.UserRole, Content: "great, 8h"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mood": "Great", "hours_slept": "8", "notes": ""}, answers)
}

func TestSanitizeKeepsPlainText(t *testing.T) {
	assert.Equal(t, "Tom & Jerry's 1 < 2", Sanitize("  Tom & Jerry's 1 < 2 "))
	assert.Equal(t, "R&D", Sanitize("<b>R&D</b>"))
	assert.Equal(t, "Città è \"bella\"", Sanitize(`Città è "bella"<script>alert(1)</script>`))
}

func TestParseAnswersKeepsEntitiesDecoded(t *testing.T) {
	form := model.Form{Inputs: []model.InputField{
		{Description: "Team", Label: "Team", Data: model.ChoiceData{Values: []string{"R&D", "Sales"}}},
	}}
	answers, err := ParseAnswers(form, `{"team": "R&D"}`)
	require.NoError(t, err)
	assert.Equal(t, "R&D", answers["team"])
	assert.Empty(t, form.AnswerIssues(answers))
}
