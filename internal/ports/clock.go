package ports

import "time"

// Clock abstracts time for the limiter and validators so tests can inject a
// controllable instance. Now is expected to be monotonic for elapsed-time
// arithmetic; consumers must clamp regressions rather than trust them.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
