package ui

import (
	"github.com/desertthunder/scribe/internal/models"
)

// loginResultMsg reports the outcome of a login attempt.
type loginResultMsg struct {
	err error
}

// runUpdateMsg carries a run snapshot published by the streaming client.
type runUpdateMsg struct {
	run models.Run
}

// historyLoadedMsg carries recent records for the history view.
type historyLoadedMsg struct {
	records []*models.RunRecord
	err     error
}

// themeSavedMsg reports a failed preference write. A nil err is not sent.
type themeSavedMsg struct {
	err error
}
