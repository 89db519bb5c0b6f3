package paginate

import "errors"

// ErrNoStrategy is returned by the detector when no strategy reaches the
// configured confidence threshold on the current page.
var ErrNoStrategy = errors.New("paginate: no pagination strategy detected")

// ErrNoMorePages is returned by Strategy.Advance when the page exposes no
// further content. The navigator treats it as completion, not failure.
var ErrNoMorePages = errors.New("paginate: no more pages")

// ErrNavigationFailure is returned when an advance was attempted but the
// expected post-navigation change did not materialise in time.
var ErrNavigationFailure = errors.New("paginate: navigation failed")

// ErrStaleElement is returned by the page port when a targeted element handle
// no longer resolves. It counts as a NavigationFailure cause.
var ErrStaleElement = errors.New("paginate: stale element")

// ErrConfig is returned for malformed selectors, patterns, or limits. It is
// surfaced at session start, never mid-loop.
var ErrConfig = errors.New("paginate: invalid configuration")

// ErrInvalidTransition is returned for a session status change the state
// machine does not allow.
var ErrInvalidTransition = errors.New("paginate: invalid status transition")
