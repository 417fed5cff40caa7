package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/storage"
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// IsStoreFailure reports whether err came from the persistence layer.
func IsStoreFailure(err error) bool {
	return stderrors.Is(err, schedule.ErrStoreUnavailable)
}

// Describe turns a schedule error into a message for the user. Store
// failures are phrased as warnings because the edit itself was kept.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case IsStoreFailure(err):
		return fmt.Sprintf("Warning: could not save to the store, your change may not survive a restart (%v)", err)
	case stderrors.Is(err, schedule.ErrEmptyName):
		return "Slot name cannot be empty."
	case stderrors.Is(err, schedule.ErrDuplicateSlot):
		return "A slot with that name already exists."
	case stderrors.Is(err, schedule.ErrSlotNotFound):
		return "That slot does not exist."
	case stderrors.Is(err, schedule.ErrOutOfRange):
		return "The slot cannot move any further in that direction."
	case stderrors.Is(err, storage.ErrNotInitialized):
		return storage.ErrNotInitialized.Error()
	default:
		return Format(err)
	}
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
