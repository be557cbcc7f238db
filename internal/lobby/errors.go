package lobby

import (
	"fmt"

	"github.com/hardliner66/MageBattle/internal/model"
)

// RejectedError is returned by Join when the requested name is already held
// by a registered player. It unwraps to model.ErrNameNotAvailable.
type RejectedError struct {
	Name string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("join rejected: name %q is not available", e.Name)
}

func (e *RejectedError) Unwrap() error {
	return model.ErrNameNotAvailable
}
