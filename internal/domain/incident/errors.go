package incident

import "errors"

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrUnknownStatus    = errors.New("unknown status")
	ErrForbidden        = errors.New("operation not permitted for role and status")
	ErrMixedPhaseUpdate = errors.New("update touches 1st info together with 2nd/3rd info; submit one phase at a time")
	ErrEmptyPatch       = errors.New("update carries no fields")
	ErrInvalidInput     = errors.New("invalid incident input")
	ErrPhaseNotStarted  = errors.New("phase has not been started")
	ErrPhaseStarted     = errors.New("phase has already been started")
)
