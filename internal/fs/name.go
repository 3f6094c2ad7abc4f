package fs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation reports a user supplied name that cannot be used.
	ErrValidation = errors.New("invalid name")
	// ErrDuplicateName reports a folder name already taken in its directory.
	ErrDuplicateName = errors.New("name already exists")
)

// reservedChars may not appear in folder names.
const reservedChars = `/\:*?"<>|`

// ValidateFolderName trims name and checks it can be used for a new folder.
// The trimmed name is returned on success.
func ValidateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name cannot be empty", ErrValidation)
	}
	if strings.ContainsAny(name, reservedChars) {
		return "", fmt.Errorf("%w: folder name contains invalid characters", ErrValidation)
	}
	return name, nil
}

// FindFolder returns the index of the folder called name, or -1.
func FindFolder(entries []Entry, name string) int {
	for i, e := range entries {
		if e.IsDir() && e.Name == name {
			return i
		}
	}
	return -1
}
