package settings

import "strings"

// HandlerMode controls whether the not-found handler acts on a request.
type HandlerMode int

const (
	// ModeOn intercepts every not-found request.
	ModeOn HandlerMode = iota
	// ModeOff never intercepts.
	ModeOff
	// ModeRemoteOnly intercepts only requests from non-local clients.
	ModeRemoteOnly
)

// String returns the canonical spelling of the mode.
func (m HandlerMode) String() string {
	switch m {
	case ModeOff:
		return "Off"
	case ModeRemoteOnly:
		return "RemoteOnly"
	default:
		return "On"
	}
}

// ParseHandlerMode parses a mode case-insensitively.
func ParseHandlerMode(s string) (HandlerMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return ModeOn, true
	case "off":
		return ModeOff, true
	case "remoteonly":
		return ModeRemoteOnly, true
	}
	return ModeOn, false
}

// LoggerMode controls whether misses are recorded.
type LoggerMode int

const (
	// LoggerOn records misses.
	LoggerOn LoggerMode = iota
	// LoggerOff discards misses.
	LoggerOff
)

// String returns the canonical spelling of the mode.
func (m LoggerMode) String() string {
	if m == LoggerOff {
		return "Off"
	}
	return "On"
}

// ParseLoggerMode parses a mode case-insensitively.
func ParseLoggerMode(s string) (LoggerMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return LoggerOn, true
	case "off":
		return LoggerOff, true
	}
	return LoggerOn, false
}
