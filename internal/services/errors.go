package services

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrMaxMonitors     = errors.New("monitor limit reached")
	ErrDuplicate       = errors.New("monitor already exists")
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrForbidden       = errors.New("administrator only")
	ErrRateLimited     = errors.New("too many commands")
)
