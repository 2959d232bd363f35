package outcome

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	table := []struct {
		err      error
		expected Code
	}{
		{err: context.DeadlineExceeded, expected: CodeTimeout},
		{err: fmt.Errorf("navigate: %w", context.DeadlineExceeded), expected: CodeTimeout},
		{err: Errorf(CodeCaptcha, "challenge page"), expected: CodeCaptcha},
		{err: fmt.Errorf("wrapped: %w", Errorf(CodeNoActor, "none")), expected: CodeNoActor},
		{err: errors.New("HTTP 429 Too Many Requests"), expected: CodeRateLimit},
		{err: errors.New("fetch dataset ds1: http 429"), expected: CodeRateLimit},
		{err: errors.New("vendor answered with status code 429"), expected: CodeRateLimit},
		{err: errors.New("user 14290 not found"), expected: CodeNotFound},
		{err: errors.New("run 4291 ended FAILED"), expected: CodeError},
		{err: errors.New("user does not exist"), expected: CodeNotFound},
		{err: errors.New("connection reset by peer"), expected: CodeError},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Classify(row.err), row.err.Error())
	}
	require.Equal(t, Code(""), Classify(nil))
}

func TestRetryable(t *testing.T) {
	for _, code := range []Code{CodeTimeout, CodeRateLimit, CodeBlocked, CodeCaptcha, CodeParseError, CodeNotFound, CodeError} {
		require.True(t, code.Retryable(), code)
	}
	require.False(t, CodeNoActor.Retryable())
	require.False(t, CodeJobRejected.Retryable())
}
