package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrVenueDisabled   = errors.New("venue disabled")
	ErrUnknownVenue    = errors.New("unknown venue")
	ErrNoVenues        = errors.New("no venues available")
	ErrExecutorBusy    = errors.New("max concurrent trades reached")
	ErrEngineStopped   = errors.New("engine stopped")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrMalformedTicker = errors.New("malformed ticker payload")
)
