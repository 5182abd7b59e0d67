package channel

import "errors"

var (
	ErrEmptyName        = errors.New("channel name cannot be empty")
	ErrEmptyPrimaryURL  = errors.New("channel primary URL cannot be empty")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrUnknownSourceURL = errors.New("URL is not one of the channel's sources")
)
