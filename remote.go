package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/goliatone/go-print"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-auth-bearer"

// RemoteAuthenticator verifies the token and then requires the subject to
// exist, and be active, in an external IdentitySource. Each call performs
// its own lookup, nothing is cached or coalesced between requests.
type RemoteAuthenticator struct {
	codec       *TokenCodec
	source      IdentitySource
	bypassToken string
	bypassEmail string
	logger      Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

var _ Authenticator = (*RemoteAuthenticator)(nil)

// NewRemoteAuthenticator returns a RemoteAuthenticator resolving identities
// through source. A nil codec or source fails requests with ErrNotConfigured
// as cause instead of panicking.
func NewRemoteAuthenticator(codec *TokenCodec, source IdentitySource) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		codec:  codec,
		source: source,
		logger: defLogger(),
		tracer: otel.Tracer(tracerName),
	}
}

// WithBypass enables the development bypass: a request presenting exactly
// token skips verification and resolves the account registered under email.
// An empty token disables the bypass.
func (a *RemoteAuthenticator) WithBypass(token, email string) *RemoteAuthenticator {
	a.bypassToken = token
	a.bypassEmail = email
	return a
}

// WithLogger sets the logger.
func (a *RemoteAuthenticator) WithLogger(logger Logger) *RemoteAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithMetrics sets the metrics recorder.
func (a *RemoteAuthenticator) WithMetrics(metrics *Metrics) *RemoteAuthenticator {
	a.metrics = metrics
	return a
}

// WithTracer overrides the tracer used for lookup spans.
func (a *RemoteAuthenticator) WithTracer(tracer trace.Tracer) *RemoteAuthenticator {
	if tracer != nil {
		a.tracer = tracer
	}
	return a
}

// Authenticate validates header and resolves the identity remotely. ctx
// bounds the lookup, a cancelled request surfaces as KindLookupError with
// the context error as cause.
func (a *RemoteAuthenticator) Authenticate(ctx context.Context, header string) Result {
	result := a.authenticate(ctx, header)
	a.metrics.observeResult(StrategyRemote, result)
	return result
}

func (a *RemoteAuthenticator) authenticate(ctx context.Context, header string) Result {
	raw, err := ExtractBearerToken(header)
	if err != nil {
		a.logger.Debug("RemoteAuthenticator rejected header", "kind", kindOf(err))
		return failed(err)
	}

	if a.isBypassToken(raw) {
		return a.resolveBypass(ctx)
	}

	claims, err := a.codec.Verify(raw)
	if err != nil {
		a.logger.Info("RemoteAuthenticator token verification failed", "kind", kindOf(err), "error", err.Error())
		return failed(err)
	}

	record, err := a.lookup(ctx, "find_by_id", func(ctx context.Context) (*IdentityRecord, error) {
		return a.source.FindByID(ctx, claims.UserID)
	}, attribute.Int64("auth.user_id", claims.UserID))

	switch {
	case IsIdentityNotFound(err):
		a.logger.Info("RemoteAuthenticator identity not found", "user_id", claims.UserID)
		return newFailure(KindUserNotFound, msgUserNotFound, err)
	case err != nil:
		a.logger.Error("RemoteAuthenticator identity lookup failed", "user_id", claims.UserID, "error", err)
		return newFailure(KindLookupError, msgValidationPrefix+err.Error(), err)
	case record == nil || !record.Active:
		a.logger.Info("RemoteAuthenticator identity inactive", "user_id", claims.UserID)
		return newFailure(KindUserNotFound, msgUserNotFound, nil)
	}

	return Success{Identity: mergeRecord(record, claims)}
}

func (a *RemoteAuthenticator) resolveBypass(ctx context.Context) Result {
	a.logger.Warn("RemoteAuthenticator accepted development bypass token", "email", a.bypassEmail)

	record, err := a.lookup(ctx, "find_by_email", func(ctx context.Context) (*IdentityRecord, error) {
		return a.source.FindByEmail(ctx, a.bypassEmail)
	}, attribute.Bool("auth.bypass", true))

	switch {
	case IsIdentityNotFound(err), err == nil && record == nil:
		a.logger.Error("RemoteAuthenticator default user not found", "email", a.bypassEmail)
		return newFailure(KindDefaultUserNotFound, msgDefaultUserNotFound, err)
	case err != nil:
		a.logger.Error("RemoteAuthenticator default user lookup failed", "email", a.bypassEmail, "error", err)
		return newFailure(KindLookupError, msgValidationPrefix+err.Error(), err)
	}

	return Success{Identity: mergeRecord(record, nil)}
}

func (a *RemoteAuthenticator) isBypassToken(raw string) bool {
	if a.bypassToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(raw), []byte(a.bypassToken)) == 1
}

func (a *RemoteAuthenticator) lookup(
	ctx context.Context,
	operation string,
	fn func(context.Context) (*IdentityRecord, error),
	attrs ...attribute.KeyValue,
) (*IdentityRecord, error) {
	ctx, span := a.tracer.Start(ctx, "auth.identity."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()
	defer a.metrics.observeLookup(operation, started)

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if print.IsInterfaceNil(a.source) {
		span.SetStatus(codes.Error, ErrNotConfigured.Message)
		return nil, ErrNotConfigured
	}

	record, err := fn(ctx)
	if err != nil && !IsIdentityNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return record, err
}
