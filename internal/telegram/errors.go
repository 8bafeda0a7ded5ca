package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
)

// Gateway error kinds. Callers branch with errors.Is: forbidden and
// not-found are permanent for the item, rate-limited and transient are
// retried by the next scheduled run, never synchronously.
var (
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrTransient   = errors.New("transient error")
)

// IsPermanent reports whether an error is terminal for the current item.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}

// classify wraps a raw Bot API error with one of the gateway kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, bot.ErrorForbidden):
		return errors.Join(ErrForbidden, err)
	case bot.IsTooManyRequestsError(err), errors.Is(err, bot.ErrorTooManyRequests):
		return errors.Join(ErrRateLimited, err)
	case errors.Is(err, bot.ErrorNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, bot.ErrorBadRequest):
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "not found") || strings.Contains(msg, "participant_id_invalid") {
			return errors.Join(ErrNotFound, err)
		}
		return errors.Join(ErrTransient, err)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTransient, err)
	}
	return errors.Join(ErrTransient, err)
}
