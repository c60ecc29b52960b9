package command

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sllt-wei/plugin-summary/internal/llm"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestExtractMentions(t *testing.T) {
	authors, residual := ExtractMentions("@Alice @Bob 过去1小时内的总结")
	assert.Equal(t, []string{"Alice", "Bob"}, authors)
	assert.Equal(t, "过去1小时内的总结", residual)
}

func TestExtractMentions_RejoinsWithoutSpaces(t *testing.T) {
	authors, residual := ExtractMentions("过去 @Alice 1小时 内的总结")
	assert.Equal(t, []string{"Alice"}, authors)
	assert.Equal(t, "过去1小时内的总结", residual)
}

func TestExtractMentions_BareAtIsNotAMention(t *testing.T) {
	authors, residual := ExtractMentions("@ 100")
	assert.Empty(t, authors)
	assert.Equal(t, "@100", residual)
}

func TestParse_FastPathInteger(t *testing.T) {
	translator := &llm.StubTranslator{}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, 3, req.CountLimit)
	assert.Equal(t, int64(-1), req.DurationSeconds)
	assert.Empty(t, req.Authors)
	assert.Zero(t, translator.Calls, "fast path must not invoke the translator")
}

func TestParse_EmptyTextUsesDefaultCount(t *testing.T) {
	translator := &llm.StubTranslator{}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCount, req.CountLimit)
	assert.Zero(t, translator.Calls)
}

func TestParse_MentionsOnly(t *testing.T) {
	translator := &llm.StubTranslator{}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "@Alice @Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, req.Authors)
	assert.Equal(t, DefaultCount, req.CountLimit)
	assert.Zero(t, translator.Calls)
}

func TestParse_NegativeIntegerGoesToTranslator(t *testing.T) {
	translator := &llm.StubTranslator{Output: `{"name": "do_nothing", "args": {}}`}
	p := NewParser(translator, testLogger())

	_, err := p.Parse(context.Background(), "-5")
	assert.ErrorIs(t, err, ErrDoNothing)
	assert.Equal(t, 1, translator.Calls)
}

func TestParse_TranslatorSummary(t *testing.T) {
	translator := &llm.StubTranslator{
		Output: `{"name": "summary", "args": {"count": 10, "duration_in_seconds": 3600}}`,
	}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "过去1小时内的最近10条消息")
	require.NoError(t, err)
	assert.Equal(t, 10, req.CountLimit)
	assert.Equal(t, int64(3600), req.DurationSeconds)
}

func TestParse_TranslatorStringArgsCoerced(t *testing.T) {
	translator := &llm.StubTranslator{
		Output: `{"name": "Summary", "args": {"count": "20", "duration_in_seconds": "7200"}}`,
	}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "最近两小时")
	require.NoError(t, err)
	assert.Equal(t, 20, req.CountLimit)
	assert.Equal(t, int64(7200), req.DurationSeconds)
}

func TestParse_AbsentArgsUseSentinels(t *testing.T) {
	translator := &llm.StubTranslator{Output: `{"name": "summary", "args": {}}`}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "总结一下")
	require.NoError(t, err)
	assert.Equal(t, repository.NoLimit, req.CountLimit)
	assert.Equal(t, int64(-1), req.DurationSeconds)
}

func TestParse_NegativeArgsNormalized(t *testing.T) {
	translator := &llm.StubTranslator{
		Output: `{"name": "summary", "args": {"count": -3, "duration_in_seconds": -60}}`,
	}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "全部")
	require.NoError(t, err)
	assert.Equal(t, repository.NoLimit, req.CountLimit)
	assert.Equal(t, int64(-1), req.DurationSeconds)
}

func TestParse_LenientJSONExtraction(t *testing.T) {
	translator := &llm.StubTranslator{
		Output: "Sure, here is the command:\n{\"name\": \"summary\", \"args\": {\"count\": 5}}\nDone.",
	}
	p := NewParser(translator, testLogger())

	req, err := p.Parse(context.Background(), "帮我总结五条")
	require.NoError(t, err)
	assert.Equal(t, 5, req.CountLimit)
}

func TestParse_NoJSONObjectFails(t *testing.T) {
	translator := &llm.StubTranslator{Output: "I cannot help with that."}
	p := NewParser(translator, testLogger())

	_, err := p.Parse(context.Background(), "随便聊聊")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParse_MalformedJSONFails(t *testing.T) {
	translator := &llm.StubTranslator{Output: `{"name": "summary", "args": {`}
	p := NewParser(translator, testLogger())

	_, err := p.Parse(context.Background(), "总结")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParse_UnknownCommandNameFails(t *testing.T) {
	translator := &llm.StubTranslator{Output: `{"name": "dance", "args": {}}`}
	p := NewParser(translator, testLogger())

	_, err := p.Parse(context.Background(), "跳个舞")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParse_TranslatorErrorFails(t *testing.T) {
	translator := &llm.StubTranslator{Err: assert.AnError}
	p := NewParser(translator, testLogger())

	_, err := p.Parse(context.Background(), "最近的消息")
	assert.ErrorIs(t, err, ErrParse)
}
