package models

import "errors"

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrKeywordNotFound    = errors.New("keyword not found")
	ErrWebsiteNotFound    = errors.New("website not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrKeywordBusy        = errors.New("keyword already has an active job")
	ErrMalformedJSON      = errors.New("malformed JSON response")
	ErrClusterUnavailable = errors.New("cluster suggestions unavailable")
)
