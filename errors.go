package tiktok

import "errors"

var (
	ErrRateLimited     = errors.New("tiktok: rate limited")
	ErrNotFound        = errors.New("tiktok: not found")
	ErrSigningFailed   = errors.New("tiktok: url signing failed")
	ErrBrowserNotReady = errors.New("tiktok: browser not initialized")
	ErrInvalidResponse = errors.New("tiktok: invalid response")
	ErrBlocked         = errors.New("tiktok: request blocked")
	ErrNoProfileData   = errors.New("tiktok: no profile data found, the page may be blocking requests")
	ErrNoResultStore   = errors.New("tiktok: no result store configured")
)
