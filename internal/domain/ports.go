package domain

import "context"

// PhraseStore persists categories and statements. Implementations can be
// in-memory, relational (SQLite), or a document tree. Calls are independent
// of each other; there is no transactional coupling and the last write wins.
//
// In the memory and relational stores, deleting a category does not
// cascade: statements keep their (now dangling) category reference. The
// document store nests statements under their category, so removing the
// category node removes them with it.
type PhraseStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, label string) (*Category, error)
	RenameCategory(ctx context.Context, id, label string) error
	DeleteCategory(ctx context.Context, id string) error

	// ListStatements returns a category's statements, highest rating first.
	ListStatements(ctx context.Context, categoryID string) ([]Statement, error)
	GetStatement(ctx context.Context, id string) (*Statement, error)
	// FindStatement looks up a statement by exact text within a category.
	FindStatement(ctx context.Context, categoryID, text string) (*Statement, error)
	CreateStatement(ctx context.Context, text, categoryID string) (*Statement, error)
	RenameStatement(ctx context.Context, id, text string) error
	// IncrementRating adds one to the statement's counter on every call.
	IncrementRating(ctx context.Context, id string) error
	SetCategory(ctx context.Context, id, categoryID string) error
	DeleteStatement(ctx context.Context, id string) error
}

// Vocalizer is a remote (network-hosted) speech engine. Vocalize blocks
// until playback finishes, fails, or ctx is cancelled.
//
// Implementations must call begin right before audio starts and must not
// play anything if it returns false: that means the dispatcher already
// gave up on the remote path.
type Vocalizer interface {
	Vocalize(ctx context.Context, text string, begin func() bool) error
}

// Synthesizer is the on-device speech engine. Speak blocks until playback
// finishes or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// ConnectivityProbe reports whether a data connection is currently active.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// Notifier delivers messages to the user. Implementations can write to
// stdout or the terminal UI.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
