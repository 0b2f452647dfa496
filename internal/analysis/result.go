package analysis

import "errors"

// ErrNoImage is the failure reported when a submission arrives without a photo.
var ErrNoImage = errors.New("no image uploaded")

// Kind tags which alternative a Result holds.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindFailure
)

// ErrorKind classifies a failure by where it was detected.
type ErrorKind int

const (
	// InputError is detected locally and never reaches the model.
	InputError ErrorKind = iota + 1
	// UpstreamError is any failure of the model call itself.
	UpstreamError
)

func (k ErrorKind) String() string {
	switch k {
	case InputError:
		return "input"
	case UpstreamError:
		return "upstream"
	default:
		return "none"
	}
}

// Result is exactly one of Success(text) or Failure(reason).
type Result struct {
	kind      Kind
	text      string
	reason    string
	errorKind ErrorKind
	err       error
}

func Success(text string) Result {
	return Result{kind: KindSuccess, text: text}
}

func Failure(errorKind ErrorKind, err error) Result {
	var reason string
	if err != nil {
		reason = err.Error()
	}
	if reason == "" {
		reason = "model request failed"
	}
	return Result{kind: KindFailure, reason: reason, errorKind: errorKind, err: err}
}

func (r Result) Kind() Kind { return r.kind }

func (r Result) OK() bool { return r.kind == KindSuccess }

// Text is the model's reply, unmodified. Empty for failures.
func (r Result) Text() string { return r.text }

// Reason is the user-facing failure description. Empty for successes.
func (r Result) Reason() string { return r.reason }

func (r Result) ErrorKind() ErrorKind { return r.errorKind }

// Err returns the underlying error of a failure, or nil.
func (r Result) Err() error { return r.err }
