package service

import (
	"errors"

	"github.com/okian/cdtimeline/internal/domain/propagation"
	"github.com/okian/cdtimeline/internal/domain/registry"
)

// Error kinds returned by Service. Check them with errors.Is.
var (
	ErrUnknownAbility        = registry.ErrUnknownAbility
	ErrInvalidAbility        = registry.ErrInvalidAbility
	ErrEventNotFound         = propagation.ErrEventNotFound
	ErrInvalidTimelineLength = errors.New("timeline length must be positive")
)
