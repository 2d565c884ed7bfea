package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region helpers

type flagReply struct {
	Flag bool `json:"flag"`
}

func decodeFlag(raw string) (flagReply, error) {
	var v flagReply
	if !strings.Contains(raw, "flag") {
		return v, errors.New("missing flag")
	}
	err := json.Unmarshal([]byte(raw), &v)
	return v, err
}

func testClient(t Transport, timeout time.Duration) *Client {
	return NewClient(t, ClientConfig{Timeout: timeout, MaxAttempts: 2}, nil)
}

type panicTransport struct{}

func (panicTransport) Complete(context.Context, Request) (string, error) {
	panic("boom")
}

// #endregion helpers

// #region invoke-tests

func TestInvoke_NoTransport(t *testing.T) {
	var c *Client
	res := Invoke(context.Background(), c, Request{TaskKind: TaskNextQuestion}, decodeFlag)
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Failure(), ErrTransport)
	assert.ErrorIs(t, res.Failure(), ErrNoTransport)

	res = Invoke(context.Background(), NewClient(nil, DefaultClientConfig(), nil), Request{TaskKind: TaskNextQuestion}, decodeFlag)
	assert.Equal(t, FailTransport, res.Failure().Reason)
}

func TestInvoke_Success(t *testing.T) {
	st := NewScriptedTransport().OnText(TaskDistressCheck, `{"flag": true}`)
	res := Invoke(context.Background(), testClient(st, time.Second), Request{TaskKind: TaskDistressCheck}, decodeFlag)

	v, ok := res.Value()
	require.True(t, ok)
	assert.True(t, v.Flag)
	assert.Equal(t, 1, st.Calls(TaskDistressCheck))
}

func TestInvoke_SchemaFailureAfterRetries(t *testing.T) {
	st := NewScriptedTransport().OnText(TaskDiscovery, "not json at all")
	res := Invoke(context.Background(), testClient(st, time.Second), Request{TaskKind: TaskDiscovery}, decodeFlag)

	require.False(t, res.OK())
	assert.Equal(t, FailSchema, res.Failure().Reason)
	assert.Equal(t, TaskDiscovery, res.Failure().Task)
	assert.ErrorIs(t, res.Failure(), ErrSchema)
	assert.NotErrorIs(t, res.Failure(), ErrTransport)
	assert.Equal(t, 2, st.Calls(TaskDiscovery))
}

func TestInvoke_RetryRecovers(t *testing.T) {
	st := NewScriptedTransport().On(TaskDashboard,
		Reply{Err: errors.New("connection reset")},
		Reply{Text: `{"flag": false}`},
	)
	res := Invoke(context.Background(), testClient(st, time.Second), Request{TaskKind: TaskDashboard}, decodeFlag)
	require.True(t, res.OK())
	assert.Equal(t, 2, st.Calls(TaskDashboard))
}

func TestInvoke_TimeoutIsTransportFailure(t *testing.T) {
	st := NewScriptedTransport().On(TaskNextQuestion, Reply{Text: `{"flag": true}`, Delay: time.Second})

	start := time.Now()
	res := Invoke(context.Background(), testClient(st, 30*time.Millisecond), Request{TaskKind: TaskNextQuestion}, decodeFlag)

	require.False(t, res.OK())
	assert.True(t, IsTimeout(res.Failure()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	// Budget exhausted on the first attempt; no second attempt.
	assert.Equal(t, 1, st.Calls(TaskNextQuestion))
}

func TestInvoke_CallerCancelled(t *testing.T) {
	st := NewScriptedTransport().On(TaskTrendCheck, Reply{Text: `{"flag": true}`, Delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Invoke(ctx, testClient(st, time.Second), Request{TaskKind: TaskTrendCheck}, decodeFlag)
	require.False(t, res.OK())
	assert.Equal(t, FailTransport, res.Failure().Reason)
	assert.ErrorIs(t, res.Failure(), context.Canceled)
	assert.Equal(t, 1, st.Calls(TaskTrendCheck))
}

func TestInvoke_PanicRecovered(t *testing.T) {
	res := Invoke(context.Background(), testClient(panicTransport{}, time.Second), Request{TaskKind: TaskShortlist}, decodeFlag)
	require.False(t, res.OK())
	assert.Equal(t, FailTransport, res.Failure().Reason)
	assert.Contains(t, res.Failure().Error(), "panic")
}

func TestInvoke_RateLimited(t *testing.T) {
	st := NewScriptedTransport().OnText(TaskSuggestions, `{"flag": true}`)
	c := NewClient(st, ClientConfig{Timeout: time.Second, MaxAttempts: 1, RateLimit: 1000, Burst: 1}, nil)
	for i := 0; i < 3; i++ {
		require.True(t, Invoke(context.Background(), c, Request{TaskKind: TaskSuggestions}, decodeFlag).OK())
	}
	assert.Equal(t, 3, st.Calls(TaskSuggestions))
}

func TestFailureIs(t *testing.T) {
	f := &Failure{Reason: FailInsufficientMatches, Task: TaskShortlist}
	assert.ErrorIs(t, f, ErrInsufficientMatches)
	assert.ErrorIs(t, f, &Failure{Reason: FailInsufficientMatches, Task: TaskShortlist})
	assert.NotErrorIs(t, f, &Failure{Reason: FailInsufficientMatches, Task: TaskDiscovery})
	assert.NotErrorIs(t, f, ErrEmptyPool)
}

func TestResultUnwrap(t *testing.T) {
	v, err := Ok(3).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = Failed[int](nil).Unwrap()
	assert.ErrorIs(t, err, ErrTransport)
}

// #endregion invoke-tests

// #region grpc-tests

type mockInvoker struct {
	method string
	args   *structpb.Struct
	reply  string
	err    error
}

func (m *mockInvoker) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.method = method
	m.args = args.(*structpb.Struct)
	if m.err != nil {
		return m.err
	}
	reply.(*wrapperspb.StringValue).Value = m.reply
	return nil
}

func TestGRPCTransport_Complete(t *testing.T) {
	inv := &mockInvoker{reply: `{"flag": true}`}
	tr := NewGRPCTransportWithInvoker(inv)

	out, err := tr.Complete(context.Background(), Request{
		TaskKind: TaskDistressCheck,
		Context:  map[string]any{"history": []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"flag": true}`, out)
	assert.Equal(t, JudgeMethod, inv.method)
	assert.Equal(t, "distress-check", inv.args.GetFields()["taskKind"].GetStringValue())
	history := inv.args.GetFields()["context"].GetStructValue().GetFields()["history"].GetListValue()
	assert.Len(t, history.GetValues(), 2)
	assert.NoError(t, tr.Close())
}

func TestGRPCTransport_Error(t *testing.T) {
	tr := NewGRPCTransportWithInvoker(&mockInvoker{err: errors.New("unavailable")})
	_, err := tr.Complete(context.Background(), Request{TaskKind: TaskDiscovery})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge rpc")
}

func TestNewGRPCTransport(t *testing.T) {
	tr, err := NewGRPCTransport("localhost:0")
	require.NoError(t, err)
	defer tr.Close()
}

// #endregion grpc-tests

// #region chat-transport-tests

type mockCompleter struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (m *mockCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.got = req
	return m.resp, m.err
}

func TestOpenAITransport_Complete(t *testing.T) {
	mc := &mockCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: `{"flag": true}`}}},
	}}
	tr := newOpenAITransportWithClient(mc, OpenAIConfig{Model: DefaultOpenAIModel})

	out, err := tr.Complete(context.Background(), Request{TaskKind: TaskDashboard, Context: map[string]any{"gpa": 3.4}})
	require.NoError(t, err)
	assert.Equal(t, `{"flag": true}`, out)
	assert.Equal(t, DefaultOpenAIModel, mc.got.Model)
	require.Len(t, mc.got.Messages, 2)
	assert.Contains(t, mc.got.Messages[1].Content, "Task: dashboard")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, mc.got.ResponseFormat.Type)
}

func TestOpenAITransport_NoChoices(t *testing.T) {
	tr := newOpenAITransportWithClient(&mockCompleter{}, OpenAIConfig{})
	_, err := tr.Complete(context.Background(), Request{TaskKind: TaskDashboard})
	assert.Error(t, err)
}

func TestNewOpenAITransport_RequiresKey(t *testing.T) {
	_, err := NewOpenAITransport(OpenAIConfig{})
	assert.Error(t, err)

	tr, err := NewOpenAITransport(OpenAIConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIBaseURL, tr.cfg.BaseURL)
}

type mockGenerator struct {
	model  string
	config *genai.GenerateContentConfig
	text   string
}

func (m *mockGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.model = model
	m.config = config
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: m.text}}},
		}},
	}, nil
}

func TestGenAITransport_Complete(t *testing.T) {
	mg := &mockGenerator{text: `{"flag": true}`}
	tr := &GenAITransport{models: mg, cfg: GenAIConfig{Model: DefaultGenAIModel}}

	out, err := tr.Complete(context.Background(), Request{TaskKind: TaskTrendCheck})
	require.NoError(t, err)
	assert.Equal(t, `{"flag": true}`, out)
	assert.Equal(t, DefaultGenAIModel, mg.model)
	assert.Equal(t, "application/json", mg.config.ResponseMIMEType)

	mg.text = ""
	_, err = tr.Complete(context.Background(), Request{TaskKind: TaskTrendCheck})
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	system, user, err := RenderPrompt(Request{
		TaskKind:    TaskNextQuestion,
		Context:     map[string]any{"answers": map[string]any{"gpa": "3.2"}},
		Constraints: map[string]any{"maxQuestions": 18},
	})
	require.NoError(t, err)
	assert.Contains(t, system, "JSON")
	assert.Contains(t, user, "Task: next-question")
	assert.Contains(t, user, `"maxQuestions": 18`)
	assert.Contains(t, user, "nextQuestion")
}

// #endregion chat-transport-tests
