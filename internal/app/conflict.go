package app

import (
	"errors"
	"strings"

	"github.com/justyntemme/filepane/internal/fs"
)

// errorsIsDuplicate reports a folder name collision.
func errorsIsDuplicate(err error) bool {
	return errors.Is(err, fs.ErrDuplicateName)
}

// validationMessage strips the sentinel prefix from a validation error,
// leaving the text meant for the user.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && errors.Is(err, fs.ErrValidation) {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
