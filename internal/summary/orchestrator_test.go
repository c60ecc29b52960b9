package summary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sllt-wei/plugin-summary/internal/command"
	"github.com/sllt-wei/plugin-summary/internal/llm"
	"github.com/sllt-wei/plugin-summary/internal/render"
	"github.com/sllt-wei/plugin-summary/internal/reply"
	"github.com/sllt-wei/plugin-summary/internal/repository"
	"github.com/sllt-wei/plugin-summary/internal/repository/memory"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fixture struct {
	records    *memory.RecordRepository
	meta       *memory.SessionMetaRepository
	summarizer *llm.StubSummarizer
	renderer   *render.StubRenderer
	orch       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		records:    memory.NewRecordRepository(),
		meta:       memory.NewSessionMetaRepository(),
		summarizer: &llm.StubSummarizer{Result: llm.Result{Content: "总结内容", CompletionTokens: 42, TotalTokens: 100}},
		renderer:   &render.StubRenderer{Err: render.ErrUnavailable},
	}
	f.orch = NewOrchestrator(f.records, f.meta, f.summarizer, f.renderer, testLogger())
	return f
}

func (f *fixture) seed(t *testing.T, session string, timestamps ...int64) {
	t.Helper()
	for _, ts := range timestamps {
		err := f.records.Insert(context.Background(), repository.Record{
			SessionID: session,
			Author:    "A",
			Content:   "msg",
			Kind:      repository.KindText,
			CreatedAt: ts,
		})
		require.NoError(t, err)
	}
}

func request(session string) *command.SummaryRequest {
	return &command.SummaryRequest{
		SessionID:       session,
		CountLimit:      repository.NoLimit,
		DurationSeconds: -1,
	}
}

func TestRun_NoRecords(t *testing.T) {
	f := newFixture(t)

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindInfo, r.Kind)
	assert.Equal(t, msgNoRecords, r.Text)

	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, last, "empty result must not consume the cooldown")
	assert.Zero(t, f.summarizer.Calls)
}

func TestRun_SingleRecordTooFew(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100)

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindInfo, r.Kind)
	assert.Equal(t, msgTooFew, r.Text)

	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.Zero(t, f.summarizer.Calls)
}

func TestRun_SuccessUpdatesLastSummaryTime(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100, 200, 300)
	now := time.Unix(5000, 0)
	f.orch.now = func() time.Time { return now }

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindText, r.Kind)
	assert.Equal(t, "总结内容", r.Text)

	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, now.Unix(), *last)
}

func TestRun_ZeroCompletionTokensIsFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100, 200)
	f.summarizer.Result = llm.Result{Content: "", CompletionTokens: 0}

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindError, r.Kind)
	assert.Equal(t, msgSummaryFailed, r.Text)

	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, last, "failed attempts must not consume the cooldown")
}

func TestRun_SummarizerErrorIsFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100, 200)
	f.summarizer.Err = llm.ErrSummarizer

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindError, r.Kind)

	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRun_DurationBoundsTheWindow(t *testing.T) {
	f := newFixture(t)
	now := time.Unix(10_000, 0)
	f.orch.now = func() time.Time { return now }
	// Two records inside the window, one before it.
	f.seed(t, "g1", 100, 9_500, 9_800)

	req := request("g1")
	req.DurationSeconds = 1000

	r, err := f.orch.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, reply.KindText, r.Kind)
	assert.Equal(t, 1, f.summarizer.Calls)
}

func TestRun_RenderedImageReply(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100, 200)

	path := filepath.Join(t.TempDir(), "summary.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))
	f.renderer.Path = path
	f.renderer.Err = nil

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindImage, r.Kind)
	assert.Equal(t, []byte("png-bytes"), r.Image)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "temp image must be deleted after reading")
}

func TestRun_RenderFailureFallsBackToText(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "g1", 100, 200)
	f.renderer.Err = assert.AnError

	r, err := f.orch.Run(context.Background(), request("g1"))
	require.NoError(t, err)
	assert.Equal(t, reply.KindText, r.Kind)
	assert.Equal(t, "总结内容", r.Text)

	// Rendering problems never block the cooldown update.
	last, err := f.meta.LastSummaryAt(context.Background(), "g1")
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestTranscript_Format(t *testing.T) {
	records := []repository.Record{
		{Author: "Alice", CreatedAt: 100, Content: "hello"},
		{Author: "Bob", CreatedAt: 200, Content: "hi"},
	}
	assert.Equal(t, "Alice(100): hello\nBob(200): hi", transcript(records))
}
