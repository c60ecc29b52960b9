// Package command parses trigger commands into summary requests, using a
// literal fast path and a language-model-assisted fallback for free-form
// phrasing.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/llm"
	"github.com/sllt-wei/plugin-summary/internal/repository"
)

// TranslatePrompt instructs the translator to turn free-form text into a
// structured command.
const TranslatePrompt = `You are now the following python function:
` + "```" + `# {translate text to commands}"
        def translate_text(text: str) -> str:
` + "```" + `
Only respond with your ` + "`return`" + ` value, Don't reply anything else.

Commands:
{Summary chat logs}: "summary", args: {("duration_in_seconds"): <integer>, ("count"): <integer>}
{Do Nothing}:"do_nothing",  args:  {}

argument in brackets means optional argument.

You should only respond in JSON format as described below.
Response Format:
{
    "name": "command name",
    "args": {"arg name": "value"}
}
Ensure the response can be parsed by Python json.loads.
`

// DefaultCount is the record limit used when the command carries no
// explicit count.
const DefaultCount = 99

var (
	// ErrDoNothing means the translator decided the text is not a command.
	ErrDoNothing = errors.New("command is a no-op")
	// ErrParse means the command could not be understood. Callers drop the
	// command silently rather than surfacing this to the user.
	ErrParse = errors.New("command parse failed")
)

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// SummaryRequest is a parsed, admitted-pipeline-ready summary command.
// DurationSeconds <= 0 means no lower time bound; CountLimit of
// repository.NoLimit means no count bound; empty Authors means no filter.
type SummaryRequest struct {
	SessionID       string
	CountLimit      int
	DurationSeconds int64
	Authors         []string
}

// Parser turns raw command text into a SummaryRequest.
type Parser struct {
	translator llm.Translator
	logger     *logrus.Logger
}

// NewParser creates a parser backed by the given translator.
func NewParser(translator llm.Translator, logger *logrus.Logger) *Parser {
	return &Parser{translator: translator, logger: logger}
}

// Parse parses the command text that followed the trigger. Mention tokens
// select authors; the residual text is either a literal count or free-form
// phrasing handed to the translator.
func (p *Parser) Parse(ctx context.Context, text string) (*SummaryRequest, error) {
	authors, residual := ExtractMentions(text)

	req := &SummaryRequest{
		CountLimit:      DefaultCount,
		DurationSeconds: -1,
		Authors:         authors,
	}

	if residual == "" {
		return req, nil
	}

	// Fast path: a bare non-negative integer is a count limit.
	if n, err := strconv.Atoi(residual); err == nil && n >= 0 {
		req.CountLimit = n
		return req, nil
	}

	raw, err := p.translator.Translate(ctx, TranslatePrompt, residual)
	if err != nil {
		p.logger.WithError(err).Error("command translation failed")
		return nil, ErrParse
	}

	cmd, err := decodeCommand(raw)
	if err != nil {
		p.logger.WithFields(logrus.Fields{"raw": raw}).WithError(err).Error("command decode failed")
		return nil, ErrParse
	}

	switch strings.ToLower(cmd.Name) {
	case "summary":
		req.CountLimit = coerceCount(cmd.Args["count"])
		req.DurationSeconds = coerceDuration(cmd.Args["duration_in_seconds"])
		return req, nil
	case "do_nothing":
		return nil, ErrDoNothing
	default:
		return nil, ErrParse
	}
}

// ExtractMentions splits text on whitespace, lifts out tokens beginning
// with '@' (without the marker), and rejoins the remaining tokens without
// separators.
func ExtractMentions(text string) ([]string, string) {
	var authors []string
	var rest []string
	for _, token := range strings.Fields(text) {
		if strings.HasPrefix(token, "@") && len(token) > 1 {
			authors = append(authors, token[1:])
			continue
		}
		rest = append(rest, token)
	}
	return authors, strings.Join(rest, "")
}

type rawCommand struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// decodeCommand first tries the whole output as JSON, then falls back to
// extracting the first {...} substring from surrounding prose.
func decodeCommand(raw string) (*rawCommand, error) {
	var cmd rawCommand
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &cmd); err == nil && cmd.Name != "" {
		return &cmd, nil
	}

	match := jsonObjectRe.FindString(raw)
	if match == "" {
		return nil, errors.New("no JSON object in translator output")
	}
	if err := json.Unmarshal([]byte(match), &cmd); err != nil {
		return nil, err
	}
	if cmd.Name == "" {
		return nil, errors.New("translator output has no command name")
	}
	return &cmd, nil
}

// coerceCount normalizes the optional count argument. Absent or negative
// values mean no limit; numeric strings are accepted.
func coerceCount(v interface{}) int {
	n, ok := toInt64(v)
	if !ok || n < 0 {
		return repository.NoLimit
	}
	return int(n)
}

// coerceDuration normalizes the optional duration argument. Absent or
// negative values mean no lower time bound.
func coerceDuration(v interface{}) int64 {
	n, ok := toInt64(v)
	if !ok || n < 0 {
		return -1
	}
	return n
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
