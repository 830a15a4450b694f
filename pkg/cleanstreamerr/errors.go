// Package cleanstreamerr defines the small set of typed failures the
// filter pipeline surfaces instead of the exception-driven teardown of
// the system it was modeled on.
package cleanstreamerr

import "errors"

// ErrASRContextNil names the state in which the ASR engine has been torn
// down (by a prior failure or a model swap) and no call should be
// attempted until a new engine is installed. No code path in this module
// returns it: the classifier reports that state through EngineReady and
// an Unknown result.
var ErrASRContextNil = errors.New("cleanstream: asr context is nil")

// ErrModelNotFound is returned by ModelStore when a model path cannot be
// located locally and no remote URL was configured to fetch it.
var ErrModelNotFound = errors.New("cleanstream: model not found")

// ErrModelLoadFailed wraps a failure while downloading a model that
// ModelStore could not find locally.
var ErrModelLoadFailed = errors.New("cleanstream: model load failed")

// ErrRegexCompile wraps a failure compiling a user-supplied detection
// regex. Callers treat it as a non-match for the current window rather
// than aborting.
var ErrRegexCompile = errors.New("cleanstream: regex compile failed")
