package auth

import (
	"context"
)

// LocalAuthenticator trusts the claims of a verified token as they are. It
// performs no I/O and is meant for services that issue their own tokens.
type LocalAuthenticator struct {
	codec   *TokenCodec
	logger  Logger
	metrics *Metrics
}

var _ Authenticator = (*LocalAuthenticator)(nil)

// NewLocalAuthenticator returns a LocalAuthenticator using codec. A nil
// codec does not panic, every request then fails with ErrNotConfigured as
// cause.
func NewLocalAuthenticator(codec *TokenCodec) *LocalAuthenticator {
	return &LocalAuthenticator{
		codec:  codec,
		logger: defLogger(),
	}
}

// WithLogger sets the logger.
func (a *LocalAuthenticator) WithLogger(logger Logger) *LocalAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithMetrics sets the metrics recorder.
func (a *LocalAuthenticator) WithMetrics(metrics *Metrics) *LocalAuthenticator {
	a.metrics = metrics
	return a
}

// Authenticate validates header and maps the token claims to an Identity.
// The context is unused, the call never blocks.
func (a *LocalAuthenticator) Authenticate(_ context.Context, header string) Result {
	result := a.authenticate(header)
	a.metrics.observeResult(StrategyLocal, result)
	return result
}

func (a *LocalAuthenticator) authenticate(header string) Result {
	raw, err := ExtractBearerToken(header)
	if err != nil {
		a.logger.Debug("LocalAuthenticator rejected header", "kind", kindOf(err))
		return failed(err)
	}

	claims, err := a.codec.Verify(raw)
	if err != nil {
		a.logger.Info("LocalAuthenticator token verification failed", "kind", kindOf(err), "error", err.Error())
		return failed(err)
	}

	return Success{Identity: MapClaims(claims)}
}

func kindOf(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return ""
}
