package coordinator

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
)

// Kind classifies every outcome an operation can report besides success.
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindValidation
	KindRemote
	KindCancelled
	KindBusy
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
	ErrRemote          = errors.New("remote call failed")
	ErrCancelled       = errors.New("cancelled")
	ErrBusy            = errors.New("checkout in progress")
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindCancelled:
		return "cancelled"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindValidation:
		return ErrValidation
	case KindRemote:
		return ErrRemote
	case KindCancelled:
		return ErrCancelled
	case KindBusy:
		return ErrBusy
	default:
		return nil
	}
}

// Failure is the only error type coordinator operations return.
// errors.Is matches both the kind sentinel and the underlying cause.
type Failure struct {
	Kind Kind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := f.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

func validation(op, format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// classify maps collaborator errors. Missing or rejected credentials are
// Unauthenticated, everything else is a remote failure.
func classify(op string, err error) *Failure {
	if errors.Is(err, backend.ErrUnauthenticated) || errors.Is(err, credentials.ErrNoCredential) {
		return &Failure{Kind: KindUnauthenticated, Op: op, Err: err}
	}
	return &Failure{Kind: KindRemote, Op: op, Err: err}
}

// KindOf returns the Kind of a coordinator failure, or 0 for other errors.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
