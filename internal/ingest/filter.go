// Package ingest decides which inbound messages become stored records and
// whether a message counts as addressed to the bot.
package ingest

import (
	"strings"

	"github.com/sllt-wei/plugin-summary/internal/config"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// Message is the inbound-message shape supplied by the host runtime.
type Message struct {
	SessionID string                 `json:"session_id"`
	MessageID string                 `json:"message_id"`
	Author    string                 `json:"author"`
	Content   string                 `json:"content"`
	Kind      repository.ContentKind `json:"kind"`
	CreatedAt int64                  `json:"created_at"`
	IsGroup   bool                   `json:"is_group"`
	IsAtBot   bool                   `json:"is_at_bot"`
}

// Filter classifies inbound messages.
type Filter struct {
	cfg config.BotConfig
}

// NewFilter creates a filter from the bot configuration.
func NewFilter(cfg config.BotConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Decide returns the record to persist for msg, whether it should be stored
// at all, and whether it counts as triggered. Trigger commands themselves
// are not stored, to keep commands out of the summarized corpus.
func (f *Filter) Decide(msg Message) (repository.Record, bool, bool) {
	record := repository.Record{
		SessionID: msg.SessionID,
		MessageID: msg.MessageID,
		Author:    msg.Author,
		Content:   msg.Content,
		Kind:      msg.Kind,
		CreatedAt: msg.CreatedAt,
	}
	if record.Kind == "" {
		record.Kind = repository.KindText
	}

	if f.IsCommand(msg.Content) {
		return record, false, f.isTriggered(msg)
	}

	record.IsTriggered = f.isTriggered(msg)
	return record, true, record.IsTriggered
}

// IsCommand reports whether the message text is a bot command, i.e. its
// first whitespace-separated token starts with the trigger prefix.
func (f *Filter) IsCommand(content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return false
	}
	return strings.HasPrefix(fields[0], f.cfg.TriggerPrefix)
}

func (f *Filter) isTriggered(msg Message) bool {
	if msg.IsGroup {
		if matchPrefix(msg.Content, f.cfg.GroupChatPrefixes) {
			return true
		}
		if matchContain(msg.Content, f.cfg.GroupChatKeywords) {
			return true
		}
		if msg.IsAtBot && !f.cfg.GroupAtOff {
			return true
		}
		return false
	}
	return matchPrefix(msg.Content, f.cfg.SingleChatPrefixes)
}

// An empty prefix matches everything, which is how direct chats default to
// always-triggered.
func matchPrefix(content string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(content, p) {
			return true
		}
	}
	return false
}

func matchContain(content string, keywords []string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(content, k) {
			return true
		}
	}
	return false
}
