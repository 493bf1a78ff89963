package auth

// Result is the outcome of an authentication attempt. It is either Success
// or *Failure, there is no other variant.
type Result interface {
	isResult()
}

// Success carries the authenticated identity.
type Success struct {
	Identity Identity
}

func (Success) isResult() {}

func (*Failure) isResult() {}

// Succeeded returns the identity when r is a Success.
func Succeeded(r Result) (Identity, bool) {
	s, ok := r.(Success)
	if !ok {
		return Identity{}, false
	}
	return s.Identity, true
}

// Failed returns the failure when r is a *Failure.
func Failed(r Result) (*Failure, bool) {
	f, ok := r.(*Failure)
	if !ok || f == nil {
		return nil, false
	}
	return f, true
}

// failed converts an error produced inside the package into a Result. Errors
// that are not failures are reported as malformed input.
func failed(err error) Result {
	if f, ok := AsFailure(err); ok {
		return f
	}
	return newFailure(KindMalformed, msgValidationPrefix+err.Error(), err)
}
