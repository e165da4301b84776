package web

import (
	"errors"
	"fmt"

	"github.com/thewug/cakeraffle/roster"
)

const (
	KIND_SUCCESS = "success"
	KIND_ERROR   = "error"
	KIND_INFO    = "info"
)

var (
	ErrDrawUnderway  = errors.New("a draw is already underway")
	ErrUnknownAction = errors.New("unknown action")
)

type Notify struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func notice(kind, text string) Notify {
	return Notify{Type: "notify", Kind: kind, Text: text}
}

// describe turns the outcome of an action into the toast the user sees.
func describe(action, name string, err error) Notify {
	switch {
	case errors.Is(err, roster.ErrEmptyName):
		return notice(KIND_ERROR, "Please enter a name")
	case errors.Is(err, roster.ErrTooLong):
		return notice(KIND_ERROR, fmt.Sprintf("Name is too long (max %d characters)", roster.MaxNameLength))
	case errors.Is(err, roster.ErrDuplicate):
		return notice(KIND_ERROR, fmt.Sprintf("%s is already in the raffle!", name))
	case errors.Is(err, roster.ErrNotFound):
		return notice(KIND_ERROR, fmt.Sprintf("%s is not in the raffle", name))
	case errors.Is(err, roster.ErrEmptyRoster):
		return notice(KIND_ERROR, "Add participants before drawing!")
	case errors.Is(err, ErrDrawUnderway):
		return notice(KIND_INFO, "Hold on, a draw is already underway")
	case errors.Is(err, ErrUnknownAction):
		return notice(KIND_ERROR, "Sorry, that did not make sense")
	case err != nil:
		return notice(KIND_ERROR, "Something went wrong, please try again")
	}

	switch action {
	case ACTION_ADD:
		return notice(KIND_SUCCESS, fmt.Sprintf("%s added to raffle! 🎉", name))
	case ACTION_REMOVE:
		return notice(KIND_INFO, fmt.Sprintf("%s removed from raffle", name))
	case ACTION_DRAW:
		return notice(KIND_INFO, "Drawing a winner...")
	}
	return notice(KIND_INFO, "Raffle has been reset! Add new participants.")
}

func nothingToReset() Notify {
	return notice(KIND_INFO, "Nothing to reset!")
}
