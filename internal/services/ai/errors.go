package ai

import "errors"

var (
	ErrAINotConfigured       = errors.New("AI parsing is not configured")
	ErrAIProviderUnavailable = errors.New("AI provider is currently unavailable")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrUnparsableSchedule    = errors.New("could not extract a schedule from the image")
)
