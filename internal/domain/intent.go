package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentSay                // speak the payload (plain typed text)
	IntentSayStatement       // speak saved statement N of the current list
	IntentStop               // stop whatever is being spoken
	IntentClear              // clear the active slot
	IntentToggleOnline       // flip the online-voice preference
	IntentToggleWordEcho     // flip "say after word input"
	IntentSwitchSlot         // switch to speech slot N
	IntentListSlots          // show the slot picker
	IntentListCategories     // list categories
	IntentSelectCategory     // make category N current
	IntentListStatements     // list statements of the current category
	IntentSaveStatement      // save payload (or the active slot) as a statement
	IntentDeleteStatement    // delete statement N
	IntentMoveStatement      // move statement N to category M
	IntentCreateCategory     // create a category labelled payload
	IntentRenameCategory     // rename category N
	IntentDeleteCategory     // delete category N
	IntentSearch             // find statements containing payload
	IntentVoice              // choose the remote voice
	IntentListen             // dictate into the active slot
	IntentFeedback           // send feedback text
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	for name, t := range intentNames {
		if t == i {
			return name
		}
	}
	return "unknown"
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // optional context, e.g. the text to say
	Index   int    // 1-based list index for numbered intents, 0 when unused
	Target  int    // second index, e.g. destination category for a move
}

// intentNames maps snake_case names to IntentType values.
var intentNames = map[string]IntentType{
	"say":              IntentSay,
	"say_statement":    IntentSayStatement,
	"stop":             IntentStop,
	"clear":            IntentClear,
	"toggle_online":    IntentToggleOnline,
	"toggle_word_echo": IntentToggleWordEcho,
	"switch_slot":      IntentSwitchSlot,
	"list_slots":       IntentListSlots,
	"list_categories":  IntentListCategories,
	"select_category":  IntentSelectCategory,
	"list_statements":  IntentListStatements,
	"save_statement":   IntentSaveStatement,
	"delete_statement": IntentDeleteStatement,
	"move_statement":   IntentMoveStatement,
	"create_category":  IntentCreateCategory,
	"rename_category":  IntentRenameCategory,
	"delete_category":  IntentDeleteCategory,
	"search":           IntentSearch,
	"voice":            IntentVoice,
	"listen":           IntentListen,
	"feedback":         IntentFeedback,
	"help":             IntentHelp,
	"quit":             IntentQuit,
	"unknown":          IntentUnknown,
}

// IntentFromString converts a snake_case intent name to an IntentType.
// Returns IntentUnknown for unrecognized names.
func IntentFromString(name string) IntentType {
	if t, ok := intentNames[name]; ok {
		return t
	}
	return IntentUnknown
}
