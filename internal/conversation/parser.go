// Package conversation provides command parsing and user notification
// implementations for the interactive prompt.
package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*CommandParser)(nil)

// CommandPrefix starts every prompt command. Anything else is text to say.
// A doubled prefix ("//") escapes it so the rest is spoken literally.
const CommandPrefix = "/"

// CommandParser matches prompt input to intents using slash commands.
type CommandParser struct {
	log   *logger.Logger
	rules []commandRule
}

// commandRule maps a command pattern to an intent. Submatches are read
// positionally by the rule's shape: (index), (index, target), (payload)
// or (index, payload).
type commandRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
	shape  ruleShape
}

type ruleShape int

const (
	shapeBare ruleShape = iota
	shapeIndex
	shapeIndexTarget
	shapePayload
	shapeIndexPayload
)

// NewCommandParser creates the prompt command parser.
func NewCommandParser(log *logger.Logger) *CommandParser {
	p := &CommandParser{log: log}
	p.rules = []commandRule{
		{regexp.MustCompile(`(?i)^(\d{1,3})$`), domain.IntentSayStatement, shapeIndex},
		{regexp.MustCompile(`(?i)^(stop|s|hush)$`), domain.IntentStop, shapeBare},
		{regexp.MustCompile(`(?i)^(clear|c|cls)$`), domain.IntentClear, shapeBare},
		{regexp.MustCompile(`(?i)^(online|net)$`), domain.IntentToggleOnline, shapeBare},
		{regexp.MustCompile(`(?i)^(word|echo)$`), domain.IntentToggleWordEcho, shapeBare},
		{regexp.MustCompile(`(?i)^slots?$`), domain.IntentListSlots, shapeBare},
		{regexp.MustCompile(`(?i)^slot\s+(\d+)$`), domain.IntentSwitchSlot, shapeIndex},
		{regexp.MustCompile(`(?i)^(cats|categories)$`), domain.IntentListCategories, shapeBare},
		{regexp.MustCompile(`(?i)^cat\s+(\d+)$`), domain.IntentSelectCategory, shapeIndex},
		{regexp.MustCompile(`(?i)^(list|ls|l)$`), domain.IntentListStatements, shapeBare},
		{regexp.MustCompile(`(?i)^save$`), domain.IntentSaveStatement, shapeBare},
		{regexp.MustCompile(`(?i)^save\s+(.+)$`), domain.IntentSaveStatement, shapePayload},
		{regexp.MustCompile(`(?i)^(?:del|rm)\s+(\d+)$`), domain.IntentDeleteStatement, shapeIndex},
		{regexp.MustCompile(`(?i)^(?:move|mv)\s+(\d+)\s+(\d+)$`), domain.IntentMoveStatement, shapeIndexTarget},
		{regexp.MustCompile(`(?i)^newcat\s+(.+)$`), domain.IntentCreateCategory, shapePayload},
		{regexp.MustCompile(`(?i)^rencat\s+(\d+)\s+(.+)$`), domain.IntentRenameCategory, shapeIndexPayload},
		{regexp.MustCompile(`(?i)^delcat\s+(\d+)$`), domain.IntentDeleteCategory, shapeIndex},
		{regexp.MustCompile(`(?i)^(?:find|search)\s+(.+)$`), domain.IntentSearch, shapePayload},
		{regexp.MustCompile(`(?i)^voice$`), domain.IntentVoice, shapeBare},
		{regexp.MustCompile(`(?i)^voice\s+(\S+)$`), domain.IntentVoice, shapePayload},
		{regexp.MustCompile(`(?i)^(listen|mic)$`), domain.IntentListen, shapeBare},
		{regexp.MustCompile(`(?i)^feedback\s+(.+)$`), domain.IntentFeedback, shapePayload},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp, shapeBare},
		{regexp.MustCompile(`(?i)^(quit|exit|q)$`), domain.IntentQuit, shapeBare},
	}
	return p
}

// Parse converts prompt input into an intent. Text that is not a command
// becomes IntentSay with the trimmed text as payload.
func (p *CommandParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	if strings.HasPrefix(trimmed, CommandPrefix+CommandPrefix) {
		return &domain.Intent{Type: domain.IntentSay, Payload: trimmed[len(CommandPrefix):]}, nil
	}
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return &domain.Intent{Type: domain.IntentSay, Payload: trimmed}, nil
	}

	cmd := strings.TrimSpace(strings.TrimPrefix(trimmed, CommandPrefix))
	p.log.Debug("parsing command: %q", cmd)

	for _, rule := range p.rules {
		m := rule.regex.FindStringSubmatch(cmd)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		return rule.build(m), nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: cmd}, nil
}

func (r commandRule) build(m []string) *domain.Intent {
	in := &domain.Intent{Type: r.intent}
	switch r.shape {
	case shapeIndex:
		in.Index = atoi(m[1])
	case shapeIndexTarget:
		in.Index = atoi(m[1])
		in.Target = atoi(m[2])
	case shapePayload:
		in.Payload = strings.TrimSpace(m[1])
	case shapeIndexPayload:
		in.Index = atoi(m[1])
		in.Payload = strings.TrimSpace(m[2])
	}
	return in
}

// atoi parses a regex-validated digit run. The patterns guarantee digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
