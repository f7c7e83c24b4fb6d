package cli

import (
	"errors"
	"fmt"

	"mercator-hq/notfound/pkg/config"
)

// Exit codes returned by the notfound command.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// ConfigError reports a configuration problem, optionally tied to the
// dotted field it concerns.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	switch {
	case e.Err != nil && msg == "":
		msg = e.Err.Error()
	case e.Err != nil:
		msg = msg + ": " + e.Err.Error()
	}
	if e.Field == "" {
		return "config error: " + msg
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError from a message.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// WrapConfigError creates a ConfigError carrying err.
func WrapConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// CommandError reports a runtime failure of a command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps err to a process exit code. Configuration problems,
// including validation errors from the config package that were not wrapped
// in a ConfigError, exit with ExitConfig so scripts can tell them from
// runtime failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	var validationErr config.ValidationError
	if errors.As(err, &validationErr) {
		return ExitConfig
	}
	return ExitFailed
}
