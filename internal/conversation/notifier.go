package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*PromptNotifier)(nil)

// LineFunc prints a single line of output. display.UI.PrintChat and
// display.UI.PrintUrgent both match it.
type LineFunc func(text string)

// PromptNotifier routes notifications to the prompt's output helpers.
// Nil funcs fall back to plain stdout with an ANSI highlight.
type PromptNotifier struct {
	log    *logger.Logger
	normal LineFunc
	urgent LineFunc
}

// NewPromptNotifier creates a notifier writing through the given funcs.
func NewPromptNotifier(log *logger.Logger, normal, urgent LineFunc) *PromptNotifier {
	if normal == nil {
		normal = func(text string) { fmt.Printf("\033[36m%s\033[0m\n", text) }
	}
	if urgent == nil {
		urgent = func(text string) { fmt.Printf("\033[1;31m%s\033[0m\n", text) }
	}
	return &PromptNotifier{log: log, normal: normal, urgent: urgent}
}

// Notify prints a normal notification.
func (n *PromptNotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.normal(message)
	return nil
}

// NotifyUrgent prints an urgent notification, e.g. a failed save or a
// feedback submission error.
func (n *PromptNotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.urgent(message)
	return nil
}
