package display

import (
	"github.com/ItsDanik/rfidisk/internal/state"
	"github.com/ItsDanik/rfidisk/internal/version"
)

// Idle is shown when no tag is inserted.
func Idle() state.Lines {
	return state.Lines{"Ready", "Insert Disk", "", version.Banner()}
}

// ConfigNeeded is shown for a known tag with no command. editorOpened picks
// the hint on line 3.
func ConfigNeeded(tagID string, editorOpened bool) state.Lines {
	return state.Lines{"Config Error", "No command for tag", editHint(editorOpened), tagID}
}

// StateError is shown when recovery finds the active tag missing from the registry.
func StateError(tagID string) state.Lines {
	return state.Lines{"State Error", "Tag config missing", "Check tags file", tagID}
}

func editHint(editorOpened bool) string {
	if editorOpened {
		return "opening editor"
	}
	return "edit tags file"
}

// EditHint is line 3 of a placeholder screen.
func EditHint(editorOpened bool) string { return editHint(editorOpened) }
