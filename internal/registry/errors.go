package registry

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("registry: feed not found")
	ErrNotLoaded   = errors.New("registry: feed not loaded")
	ErrStore       = errors.New("registry: index store failure")
	ErrNameTaken   = errors.New("registry: local name already bound")
	ErrInvalidName = errors.New("registry: invalid local name")
	ErrClosed      = errors.New("registry: closed")
)

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}
