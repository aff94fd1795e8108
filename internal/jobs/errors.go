package jobs

import "errors"

var (
	// ErrInvalidJob — job не прошла валидацию.
	ErrInvalidJob = errors.New("invalid job")

	// ErrNotFound — job не найдена.
	ErrNotFound = errors.New("job not found")
)
