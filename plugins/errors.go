package plugins

import (
	"errors"
	"fmt"
)

var ErrMissingPluginID = errors.New("plugin manifest has no id")

type DuplicatePluginError struct {
	ID string
}

func (err DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %q is already registered", err.ID)
}

type UnknownHookError struct {
	PluginID string
	Hook     string
}

func (err UnknownHookError) Error() string {
	return fmt.Sprintf("plugin %q declares unknown hook %q", err.PluginID, err.Hook)
}

type HookNotImplementedError struct {
	PluginID string
	Hook     string
}

func (err HookNotImplementedError) Error() string {
	return fmt.Sprintf("plugin %q declares hook %q but does not implement it", err.PluginID, err.Hook)
}
