package outcome

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"socialsync-backend/internal/platform"
	"strings"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Code classifies why collecting a profile failed.
type Code string

const (
	CodeNoActor     Code = "no_actor"
	CodeJobRejected Code = "job_rejected"
	CodeTimeout     Code = "timeout"
	CodeRateLimit   Code = "rate_limit"
	CodeBlocked     Code = "blocked"
	CodeCaptcha     Code = "captcha"
	CodeParseError  Code = "parse_error"
	CodeNotFound    Code = "not_found"
	CodeError       Code = "error"
)

var retryable = map[Code]bool{
	CodeTimeout:    true,
	CodeRateLimit:  true,
	CodeBlocked:    true,
	CodeCaptcha:    true,
	CodeParseError: true,
	CodeNotFound:   true,
	CodeError:      true,
}

// Retryable reports whether a failure with this code gets one more attempt in the same run.
func (c Code) Retryable() bool {
	return retryable[c]
}

// Point is one day of observed counts.
type Point struct {
	Date      string
	Followers int64
	Posts     int64
}

// Outcome is the result of collecting a single requested profile.
type Outcome struct {
	Profile platform.Profile
	Status  Status
	Points  []Point
	Code    Code
	Message string
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func Success(p platform.Profile, points ...Point) Outcome {
	return Outcome{Profile: p, Status: StatusSuccess, Points: points}
}

func Failure(p platform.Profile, code Code, message string) Outcome {
	return Outcome{Profile: p, Status: StatusError, Code: code, Message: message}
}

// FromError classifies err into a failed outcome.
func FromError(p platform.Profile, err error) Outcome {
	return Failure(p, Classify(err), err.Error())
}

// RetryCandidate is a failed profile that is eligible for the retry pass.
type RetryCandidate struct {
	ProfileID    int64
	Platform     platform.Platform
	Username     string
	ErrorCode    Code
	ErrorMessage string
	Attempt      int
}

func NewRetryCandidate(o Outcome, attempt int) RetryCandidate {
	return RetryCandidate{
		ProfileID:    o.Profile.ID,
		Platform:     o.Profile.Platform,
		Username:     o.Profile.Handle,
		ErrorCode:    o.Code,
		ErrorMessage: o.Message,
		Attempt:      attempt,
	}
}

// Error is an error that already knows its classification.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Classify maps an arbitrary error to a failure code. Errors that carry a Code (anywhere in
// their chain) keep it, timeouts become CodeTimeout, anything else is inspected for the usual
// throttling and bot-wall markers before defaulting to CodeError.
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	var coded interface{ OutcomeCode() Code }
	if errors.As(err, &coded) {
		return coded.OutcomeCode()
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return ClassifyMessage(err.Error())
}

// a 429 only counts when it reads as a status, "user 14290" is not throttling
var status429 = regexp.MustCompile(`\b(?:http|status(?: code)?|code)\W{0,3}429\b`)

// ClassifyMessage classifies free text reported by a vendor or a page.
func ClassifyMessage(msg string) Code {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "captcha"):
		return CodeCaptcha
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "rate-limit"),
		strings.Contains(lower, "too many requests"),
		status429.MatchString(lower):
		return CodeRateLimit
	case strings.Contains(lower, "blocked"),
		strings.Contains(lower, "forbidden"),
		strings.Contains(lower, "login required"),
		strings.Contains(lower, "challenge"):
		return CodeBlocked
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timed-out"):
		return CodeTimeout
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "not_found"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "doesn't exist"),
		strings.Contains(lower, "no such user"):
		return CodeNotFound
	}
	return CodeError
}
