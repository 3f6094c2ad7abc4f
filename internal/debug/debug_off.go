//go:build !debug

// Package debug provides a centralized, categorized debug logging system.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	APP         Category = "APP"
	STORE       Category = "STORE"
	SEARCH      Category = "SEARCH"
	SERVER      Category = "SERVER"
	CONFIG      Category = "CONFIG"
	IMPORT      Category = "IMPORT"
	IMPORT_WALK Category = "IMPORT_WALK"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }

// EnableAll is a no-op in release builds
func EnableAll() {}

// ListEnabled returns nil in release builds
func ListEnabled() []Category { return nil }
