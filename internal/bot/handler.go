// Package bot wires the ingestion filter, command parser, admission
// controller, and summary orchestrator into the message pipeline.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/admission"
	"github.com/sllt-wei/plugin-summary/internal/command"
	"github.com/sllt-wei/plugin-summary/internal/config"
	"github.com/sllt-wei/plugin-summary/internal/ingest"
	"github.com/sllt-wei/plugin-summary/internal/reply"
	"github.com/sllt-wei/plugin-summary/internal/repository"
	"github.com/sllt-wei/plugin-summary/internal/summary"
)

const (
	cmdSummary = "总结"
	cmdEnable  = "开启"
	cmdDisable = "关闭"

	msgDisabled   = "我不想总结了，请联系管理员开启"
	msgCooldown   = "我有些累了，请稍后再试"
	msgInProgress = "正在总结中，请稍候"
	msgEnabled    = "开启成功"
	msgDisabledOK = "关闭成功"
	msgNotAdmin   = "仅管理员可以使用该指令"
	msgInternal   = "内部错误，请稍后再试"
)

// AdminChecker reports whether author may run admin commands in session.
// Permission checking itself is the host's concern; this is only the hook.
type AdminChecker func(sessionID, author string) bool

// AllowNames builds an AdminChecker from a name allowlist. An empty list
// allows everyone.
func AllowNames(names []string) AdminChecker {
	if len(names) == 0 {
		return func(string, string) bool { return true }
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(_, author string) bool {
		_, ok := set[author]
		return ok
	}
}

// Handler processes inbound messages end to end.
type Handler struct {
	cfg          config.BotConfig
	filter       *ingest.Filter
	parser       *command.Parser
	admission    *admission.Controller
	orchestrator *summary.Orchestrator
	records      repository.RecordRepository
	meta         repository.SessionMetaRepository
	isAdmin      AdminChecker
	logger       *logrus.Logger
}

// NewHandler assembles the pipeline.
func NewHandler(
	cfg config.BotConfig,
	filter *ingest.Filter,
	parser *command.Parser,
	ctrl *admission.Controller,
	orchestrator *summary.Orchestrator,
	records repository.RecordRepository,
	meta repository.SessionMetaRepository,
	isAdmin AdminChecker,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		cfg:          cfg,
		filter:       filter,
		parser:       parser,
		admission:    ctrl,
		orchestrator: orchestrator,
		records:      records,
		meta:         meta,
		isAdmin:      isAdmin,
		logger:       logger,
	}
}

// HandleMessage stores the message when it qualifies and dispatches trigger
// commands. A nil reply means nothing should be sent back. Duplicated
// deliveries are tolerated and simply re-stored.
func (h *Handler) HandleMessage(ctx context.Context, msg ingest.Message) (*reply.Reply, error) {
	record, store, _ := h.filter.Decide(msg)
	if store {
		if err := h.records.Insert(ctx, record); err != nil {
			h.logger.WithFields(logrus.Fields{
				"session_id": msg.SessionID,
				"message_id": msg.MessageID,
			}).WithError(err).Error("failed to store record")
			r := reply.Error(msgInternal)
			return &r, nil
		}
	}

	if !h.filter.IsCommand(msg.Content) {
		return nil, nil
	}
	return h.handleCommand(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg ingest.Message) (*reply.Reply, error) {
	fields := strings.Fields(msg.Content)
	cmd := strings.TrimPrefix(fields[0], h.cfg.TriggerPrefix)

	switch {
	case strings.HasPrefix(cmd, cmdEnable):
		return h.setDisabled(ctx, msg, false, msgEnabled)
	case strings.HasPrefix(cmd, cmdDisable):
		return h.setDisabled(ctx, msg, true, msgDisabledOK)
	case strings.HasPrefix(cmd, cmdSummary):
		return h.handleSummary(ctx, msg)
	default:
		// Unknown trigger words are ignored.
		return nil, nil
	}
}

func (h *Handler) setDisabled(ctx context.Context, msg ingest.Message, disabled bool, ok string) (*reply.Reply, error) {
	if !h.isAdmin(msg.SessionID, msg.Author) {
		r := reply.Text(msgNotAdmin)
		return &r, nil
	}
	if err := h.meta.SetDisabled(ctx, msg.SessionID, disabled); err != nil {
		h.logger.WithField("session_id", msg.SessionID).WithError(err).Error("failed to toggle disabled flag")
		r := reply.Error(msgInternal)
		return &r, nil
	}
	r := reply.Text(ok)
	return &r, nil
}

func (h *Handler) handleSummary(ctx context.Context, msg ingest.Message) (*reply.Reply, error) {
	sessionID := msg.SessionID

	if err := h.admission.Admit(ctx, sessionID); err != nil {
		var cooldown *admission.CooldownError
		switch {
		case errors.Is(err, admission.ErrDisabled):
			r := reply.Text(msgDisabled)
			return &r, nil
		case errors.As(err, &cooldown):
			r := reply.Text(msgCooldown)
			return &r, nil
		case errors.Is(err, admission.ErrInProgress):
			r := reply.Text(msgInProgress)
			return &r, nil
		default:
			h.logger.WithField("session_id", sessionID).WithError(err).Error("admission check failed")
			r := reply.Error(msgInternal)
			return &r, nil
		}
	}
	defer h.admission.Release(sessionID)

	rest := h.commandArgs(msg.Content)
	req, err := h.parser.Parse(ctx, rest)
	if err != nil {
		// Unparseable commands are dropped without a reply. See the
		// parser's documented fallback behavior.
		h.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"text":       rest,
		}).WithError(err).Info("summary command dropped")
		return nil, nil
	}
	req.SessionID = sessionID

	r, err := h.orchestrator.Run(ctx, req)
	if err != nil {
		h.logger.WithField("session_id", sessionID).WithError(err).Error("summary job failed")
		errReply := reply.Error(msgInternal)
		return &errReply, nil
	}
	return &r, nil
}

// commandArgs strips the trigger prefix and the summary command word,
// keeping everything else (mentions included) for the parser.
func (h *Handler) commandArgs(content string) string {
	rest := content
	if i := strings.Index(rest, h.cfg.TriggerPrefix); i >= 0 {
		rest = rest[i+len(h.cfg.TriggerPrefix):]
	}
	rest = strings.Replace(rest, cmdSummary, "", 1)
	return strings.TrimSpace(rest)
}

// Help returns the usage text for the summary command surface.
func (h *Handler) Help() string {
	p := h.cfg.TriggerPrefix
	return fmt.Sprintf("聊天记录总结插件。\n"+
		"使用方法:输入\"%s总结 最近消息数量\"，我会帮助你总结聊天记录。\n"+
		"例如：\"%s总结 100\"，我会总结最近100条消息。\n\n"+
		"你也可以直接输入\"%s总结前99条信息\"或\"%s总结3小时内的最近10条消息\"\n"+
		"我会尽可能理解你的指令。\n"+
		"在命令前添加@昵称，可以只总结指定成员的发言。", p, p, p, p)
}
