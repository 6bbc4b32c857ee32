package feed

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a load failed.
type ErrorKind int

const (
	// KindConnectivity means the transport could not complete the request.
	KindConnectivity ErrorKind = iota + 1
	// KindInvalidData means the request completed but the response was unusable.
	KindInvalidData
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindInvalidData:
		return "invalid data"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// LoadError is the only error type returned by a Loader. Err keeps the underlying
// cause for diagnostics; callers should branch on Kind or errors.Is.
type LoadError struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is comparisons.
var (
	ErrConnectivity = &LoadError{Kind: KindConnectivity}
	ErrInvalidData  = &LoadError{Kind: KindInvalidData}
)

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches any LoadError of the same kind.
func (e *LoadError) Is(target error) bool {
	t, ok := target.(*LoadError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the ErrorKind from err, returning 0 when err is not a LoadError.
func KindOf(err error) ErrorKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

func connectivity(err error) error {
	return &LoadError{Kind: KindConnectivity, Err: err}
}

func invalidData(err error) error {
	return &LoadError{Kind: KindInvalidData, Err: err}
}
