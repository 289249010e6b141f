package cda

import "errors"

var (
	ErrTransientFetch    = errors.New("status fetch failed")
	ErrTransientCommand  = errors.New("command failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnroutableEvent   = errors.New("event could not be routed")
	ErrConfiguration     = errors.New("configuration error")
	ErrUnsupportedDevice = errors.New("device has no supported capabilities")
	ErrUnknownDevice     = errors.New("unknown device")
)
