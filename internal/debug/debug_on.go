//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP    Category = "APP"    // Engine state, navigation, history
	STORE  Category = "STORE"  // Namespace loads, saves, reloads
	SEARCH Category = "SEARCH" // Query parsing and matching
	SERVER Category = "SERVER" // HTTP store API
	CONFIG Category = "CONFIG" // Config loading and overrides
	IMPORT Category = "IMPORT" // Host directory import

	// Verbose, disabled by default
	IMPORT_WALK Category = "IMPORT_WALK" // Every visited host path
)

var (
	enabledCategories = map[Category]bool{
		APP:         true,
		STORE:       true,
		SEARCH:      true,
		SERVER:      true,
		CONFIG:      true,
		IMPORT:      true,
		IMPORT_WALK: false,
	}
	categoryMu sync.RWMutex

	logger *zap.SugaredLogger
)

func init() {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	if l, err := config.Build(); err == nil {
		logger = l.Named("debug").Sugar()
	} else {
		logger = zap.NewNop().Sugar()
	}

	// Format: FILEPANE_DEBUG=APP,STORE or FILEPANE_DEBUG=all or FILEPANE_DEBUG=none
	if env := os.Getenv("FILEPANE_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				enabledCategories[Category(strings.TrimSpace(cat))] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}
	logger.Debugw(fmt.Sprintf(format, args...), "category", string(cat))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}

// ListEnabled returns the enabled categories in name order
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })
	return enabled
}
