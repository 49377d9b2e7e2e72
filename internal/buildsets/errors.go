package buildsets

import "fmt"

// AlreadyCompleteError is returned by CompleteBuildset when the buildset
// is already complete, or when no such buildset exists. A second
// completion attempt is rejected, never silently accepted.
type AlreadyCompleteError struct {
	BuildsetID int64
}

func (e *AlreadyCompleteError) Error() string {
	return fmt.Sprintf("buildsets: buildset %d is already complete or does not exist", e.BuildsetID)
}
