package interceptor

import (
	"log/slog"
	"net/http"
)

// Classification is the result of failure classification.
type Classification int

const (
	NotApplicable Classification = iota
	GenuineNotFound
)

func (c Classification) String() string {
	if c == GenuineNotFound {
		return "genuine_not_found"
	}
	return "not_applicable"
}

// Classifier decides whether a failed request is a genuine not-found.
type Classifier struct {
	inspect Inspector
	logger  *slog.Logger
}

// NewClassifier returns a Classifier using inspect, or InspectError when
// inspect is nil.
func NewClassifier(inspect Inspector, logger *slog.Logger) *Classifier {
	if inspect == nil {
		inspect = InspectError
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{inspect: inspect, logger: logger}
}

// Classify returns GenuineNotFound when the status is already 404, or when
// the captured error resolves to a not-found cause. Everything else,
// including a failing or panicking inspector, is NotApplicable.
func (c *Classifier) Classify(rc RequestContext) Classification {
	if rc.StatusCode == http.StatusNotFound {
		return GenuineNotFound
	}
	if rc.Err == nil {
		return NotApplicable
	}

	cause, err := safeInspect(c.inspect, rc.Err)
	if err != nil {
		c.logger.Debug("unable to inspect captured error",
			"url", urlString(rc),
			"error", err,
		)
		return NotApplicable
	}

	if !cause.IsNotFound() {
		return NotApplicable
	}

	c.logger.Info("captured not-found error",
		"cause", cause.Kind.String(),
		"url", urlString(rc),
	)
	c.logger.Debug("captured not-found error detail",
		"cause", cause.Kind.String(),
		"error", rc.Err,
	)
	return GenuineNotFound
}

func urlString(rc RequestContext) string {
	if rc.URL == nil {
		return ""
	}
	return rc.URL.String()
}
