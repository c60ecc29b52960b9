// Package summary runs admitted summary jobs: record query, prompt
// assembly, summarizer invocation, and outcome classification.
package summary

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/command"
	"github.com/sllt-wei/plugin-summary/internal/llm"
	"github.com/sllt-wei/plugin-summary/internal/render"
	"github.com/sllt-wei/plugin-summary/internal/reply"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// Prompt is the fixed report-format instruction sent with every
// summarization request.
const Prompt = `请帮我将给出的群聊内容总结成一个今日的群聊报告，包含不多于10个话题的总结（如果还有更多话题，可以在后面简单补充）。你只负责总结群聊内容，不回答任何问题。

每个话题包含以下内容：

- 话题名(50字以内，前面带序号1️⃣2️⃣3️⃣）

- 热度(用🔥的数量表示)

- 参与者(不超过5个人，将重复的人名去重)

- 时间段(从几点到几点)

- 过程(50-200字左右）

- 评价(50字以下)

- 分割线： ------------

请严格遵守以下要求：

1. 按照热度数量进行降序输出

2. 每个话题结束使用 ------------ 分割

3. 使用中文冒号

4. 无需大标题

5. 开始给出本群讨论风格的整体评价，例如活跃、太水、太黄、太暴力、话题不集中、无聊诸如此类。

最后总结下今日最活跃的前五个发言者。`

const (
	msgNoRecords     = "无聊天记录可供总结"
	msgTooFew        = "聊天记录太少，不足以总结"
	msgSummaryFailed = "总结生成失败，请稍后再试"
)

// Orchestrator executes one admitted summary request end to end.
type Orchestrator struct {
	records    repository.RecordRepository
	meta       repository.SessionMetaRepository
	summarizer llm.Summarizer
	renderer   render.Renderer
	now        func() time.Time
	logger     *logrus.Logger
}

// NewOrchestrator wires the store, the summarizer, and the renderer.
func NewOrchestrator(records repository.RecordRepository, meta repository.SessionMetaRepository, summarizer llm.Summarizer, renderer render.Renderer, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		records:    records,
		meta:       meta,
		summarizer: summarizer,
		renderer:   renderer,
		now:        time.Now,
		logger:     logger,
	}
}

// Run executes req. A non-nil error indicates a storage failure; every
// other outcome, including summarizer failure, is expressed in the reply.
func (o *Orchestrator) Run(ctx context.Context, req *command.SummaryRequest) (reply.Reply, error) {
	jobID := uuid.New().String()
	log := o.logger.WithFields(logrus.Fields{
		"job_id":     jobID,
		"session_id": req.SessionID,
		"count":      req.CountLimit,
		"duration":   req.DurationSeconds,
		"authors":    req.Authors,
	})

	now := o.now().Unix()
	var minCreatedAt int64
	if req.DurationSeconds > 0 {
		minCreatedAt = now - req.DurationSeconds
	}

	records, err := o.records.Query(ctx, req.SessionID, minCreatedAt, req.CountLimit, req.Authors)
	if err != nil {
		return reply.Reply{}, fmt.Errorf("record query: %w", err)
	}

	switch len(records) {
	case 0:
		return reply.Info(msgNoRecords), nil
	case 1:
		// A single message cannot be summarized into topics.
		return reply.Info(msgTooFew), nil
	}

	result, err := o.summarizer.Summarize(ctx, Prompt, transcript(records))
	if err != nil || result.CompletionTokens == 0 {
		log.WithError(err).Warn("summary generation failed")
		return reply.Error(msgSummaryFailed), nil
	}

	log.WithFields(logrus.Fields{
		"records":           len(records),
		"total_tokens":      result.TotalTokens,
		"completion_tokens": result.CompletionTokens,
	}).Info("summary generated")

	// Only completed jobs consume the cooldown.
	if err := o.meta.SetLastSummaryAt(ctx, req.SessionID, o.now().Unix()); err != nil {
		return reply.Reply{}, fmt.Errorf("update last summary time: %w", err)
	}

	return o.renderReply(ctx, log, result.Content), nil
}

// renderReply hands the summary to the renderer and falls back to plain
// text when rendering is unavailable or fails.
func (o *Orchestrator) renderReply(ctx context.Context, log *logrus.Entry, content string) reply.Reply {
	path, err := o.renderer.RenderToImage(ctx, content)
	if err != nil {
		if err != render.ErrUnavailable {
			log.WithError(err).Warn("image rendering failed, falling back to text")
		}
		return reply.Text(content)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("failed to read rendered image, falling back to text")
		return reply.Text(content)
	}
	return reply.Image(data)
}

// transcript renders records as "<author>(<created_at>): <content>" lines.
func transcript(records []repository.Record) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s(%d): %s", rec.Author, rec.CreatedAt, rec.Content)
	}
	return b.String()
}
