package interceptor

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

// ErrRouteNotFound is reported by site backends when no page or route
// matches the request.
var ErrRouteNotFound = errors.New("route not found")

// HTTPError is a host-level error carrying an HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// NewHTTPError returns an *HTTPError for code.
func NewHTTPError(code int, message string) error {
	return &HTTPError{Code: code, Message: message}
}

// CauseKind is the closed set of failure causes the classifier understands.
type CauseKind int

const (
	CauseOther CauseKind = iota
	CauseRouteNotFound
	CauseFileNotFound
	CauseHTTPStatus
)

func (k CauseKind) String() string {
	switch k {
	case CauseRouteNotFound:
		return "route_not_found"
	case CauseFileNotFound:
		return "file_not_found"
	case CauseHTTPStatus:
		return "http_status"
	default:
		return "other"
	}
}

// Cause is the tagged classification of a captured error. Code is only set
// for CauseHTTPStatus.
type Cause struct {
	Kind CauseKind
	Code int
}

// IsNotFound reports whether the cause denotes a genuine not-found.
func (c Cause) IsNotFound() bool {
	switch c.Kind {
	case CauseRouteNotFound, CauseFileNotFound:
		return true
	case CauseHTTPStatus:
		return c.Code == http.StatusNotFound
	}
	return false
}

// Inspector turns a captured error into a Cause. Host adapters may supply
// their own; an error return is treated as "not applicable".
type Inspector func(err error) (Cause, error)

// InspectError is the default Inspector. It unwraps err to its innermost
// cause and matches that against the known not-found conditions.
func InspectError(err error) (Cause, error) {
	if err == nil {
		return Cause{}, errors.New("no error captured")
	}

	inner := innermost(err)
	var httpErr *HTTPError
	switch {
	case errors.Is(inner, ErrRouteNotFound):
		return Cause{Kind: CauseRouteNotFound}, nil
	case errors.Is(inner, fs.ErrNotExist):
		return Cause{Kind: CauseFileNotFound}, nil
	case errors.As(inner, &httpErr):
		return Cause{Kind: CauseHTTPStatus, Code: httpErr.Code}, nil
	}
	return Cause{Kind: CauseOther}, nil
}

// innermost follows the Unwrap chain to its end. For joined errors the first
// branch is followed.
func innermost(err error) error {
	for {
		var next error
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next = u.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := u.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		}
		if next == nil {
			return err
		}
		err = next
	}
}

// safeInspect runs inspect, converting a panic into an error.
func safeInspect(inspect Inspector, err error) (cause Cause, ierr error) {
	defer func() {
		if r := recover(); r != nil {
			ierr = fmt.Errorf("inspector panicked: %v", r)
		}
	}()
	return inspect(err)
}
