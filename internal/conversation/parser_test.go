package conversation

import (
	"context"
	"testing"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

func TestCommandParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewCommandParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantPayload string
		wantIndex   int
		wantTarget  int
	}{
		// Plain text is spoken.
		{"I would like some water", domain.IntentSay, "I would like some water", 0, 0},
		{"  hello  ", domain.IntentSay, "hello", 0, 0},
		{"//slash is literal", domain.IntentSay, "/slash is literal", 0, 0},

		// Saved statements by number.
		{"/3", domain.IntentSayStatement, "", 3, 0},
		{"/12", domain.IntentSayStatement, "", 12, 0},

		// Playback control.
		{"/stop", domain.IntentStop, "", 0, 0},
		{"/s", domain.IntentStop, "", 0, 0},
		{"/clear", domain.IntentClear, "", 0, 0},
		{"/online", domain.IntentToggleOnline, "", 0, 0},
		{"/word", domain.IntentToggleWordEcho, "", 0, 0},

		// Slots.
		{"/slots", domain.IntentListSlots, "", 0, 0},
		{"/slot 2", domain.IntentSwitchSlot, "", 2, 0},

		// Categories.
		{"/cats", domain.IntentListCategories, "", 0, 0},
		{"/cat 4", domain.IntentSelectCategory, "", 4, 0},
		{"/newcat Food and drink", domain.IntentCreateCategory, "Food and drink", 0, 0},
		{"/rencat 2 Family", domain.IntentRenameCategory, "Family", 2, 0},
		{"/delcat 3", domain.IntentDeleteCategory, "", 3, 0},

		// Statements.
		{"/list", domain.IntentListStatements, "", 0, 0},
		{"/save", domain.IntentSaveStatement, "", 0, 0},
		{"/save Thank you", domain.IntentSaveStatement, "Thank you", 0, 0},
		{"/del 5", domain.IntentDeleteStatement, "", 5, 0},
		{"/move 1 2", domain.IntentMoveStatement, "", 1, 2},
		{"/find water", domain.IntentSearch, "water", 0, 0},

		// Misc.
		{"/voice", domain.IntentVoice, "", 0, 0},
		{"/voice zahar", domain.IntentVoice, "zahar", 0, 0},
		{"/listen", domain.IntentListen, "", 0, 0},
		{"/feedback works great", domain.IntentFeedback, "works great", 0, 0},
		{"/help", domain.IntentHelp, "", 0, 0},
		{"/?", domain.IntentHelp, "", 0, 0},
		{"/QUIT", domain.IntentQuit, "", 0, 0},

		// Unknown commands keep the command as payload.
		{"/dance", domain.IntentUnknown, "dance", 0, 0},
		{"", domain.IntentUnknown, "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := parser.Parse(ctx, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intent.Type != tt.wantType {
				t.Fatalf("input %q: expected %s, got %s", tt.input, tt.wantType, intent.Type)
			}
			if intent.Payload != tt.wantPayload {
				t.Fatalf("input %q: expected payload %q, got %q", tt.input, tt.wantPayload, intent.Payload)
			}
			if intent.Index != tt.wantIndex || intent.Target != tt.wantTarget {
				t.Fatalf("input %q: expected index/target %d/%d, got %d/%d",
					tt.input, tt.wantIndex, tt.wantTarget, intent.Index, intent.Target)
			}
		})
	}
}

func TestIntentNamesRoundTrip(t *testing.T) {
	for _, it := range []domain.IntentType{domain.IntentSay, domain.IntentMoveStatement, domain.IntentQuit} {
		if got := domain.IntentFromString(it.String()); got != it {
			t.Fatalf("IntentFromString(%q) = %v, want %v", it.String(), got, it)
		}
	}
}
