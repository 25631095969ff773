package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Store errors
	ErrTrackNotFound   = fmt.Errorf("track not found")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrChannelNotFound = fmt.Errorf("channel not found")
	ErrChannelExists   = fmt.Errorf("channel already registered")

	// Pass errors
	ErrPassInFlight = fmt.Errorf("a pass is already running against this store")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
