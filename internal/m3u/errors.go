package m3u

import "errors"

var (
	// ErrInvalidFormat is returned when playlist text does not start with #EXTM3U.
	ErrInvalidFormat = errors.New("playlist does not start with #EXTM3U")
)
