package metrics

import "errors"

var (
	// ErrInvalidRange is returned for an inverted or otherwise malformed
	// date range.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrUnsupportedGranularity is returned for a granularity outside the
	// daily/weekly/monthly set.
	ErrUnsupportedGranularity = errors.New("unsupported granularity")

	// ErrMisalignedSeries is returned by Combine when the two inputs do
	// not share identical bucket boundaries.
	ErrMisalignedSeries = errors.New("misaligned series")

	// ErrInvalidWindow is returned for a non-positive moving-average
	// window.
	ErrInvalidWindow = errors.New("invalid moving average window")

	// ErrUnknownSource is returned for a source name outside the tracked
	// set.
	ErrUnknownSource = errors.New("unknown metric source")
)
