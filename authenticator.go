package auth

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Strategy selects how an authenticated identity is resolved.
type Strategy string

const (
	// StrategyLocal trusts verified token claims.
	StrategyLocal Strategy = "local"
	// StrategyRemote re-fetches the subject from an IdentitySource.
	StrategyRemote Strategy = "remote"
)

// ParseStrategy returns the Strategy named by s. An empty value is local.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyLocal:
		return StrategyLocal, nil
	case StrategyRemote:
		return StrategyRemote, nil
	default:
		return "", goerrors.New(fmt.Sprintf("unknown authentication strategy %q", s), goerrors.CategoryValidation)
	}
}

// Option customizes the authenticator built by NewAuthenticator.
type Option func(*options)

type options struct {
	logger  Logger
	metrics *Metrics
}

// WithLogger sets the logger for the codec and the authenticator.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// NewAuthenticator builds the authenticator selected by cfg. source is only
// required by the remote strategy. Errors here are configuration errors and
// are meant to stop the process at startup.
func NewAuthenticator(cfg Config, source IdentitySource, opts ...Option) (Authenticator, error) {
	if print.IsInterfaceNil(cfg) {
		return nil, goerrors.New("auth config is required", goerrors.CategoryValidation)
	}

	o := &options{logger: defLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	strategy, err := ParseStrategy(cfg.GetStrategy())
	if err != nil {
		return nil, err
	}

	codec, err := NewTokenCodec([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), cfg.GetAudience())
	if err != nil {
		return nil, err
	}
	codec.WithLogger(o.logger)

	switch strategy {
	case StrategyRemote:
		if print.IsInterfaceNil(source) {
			return nil, goerrors.New("remote strategy requires an identity source", goerrors.CategoryValidation)
		}
		a := NewRemoteAuthenticator(codec, source).
			WithLogger(o.logger).
			WithMetrics(o.metrics)
		if token := cfg.GetBypassToken(); token != "" {
			o.logger.Warn("development bypass token enabled", "email", cfg.GetBypassEmail())
			a.WithBypass(token, cfg.GetBypassEmail())
		}
		return a, nil
	default:
		if cfg.GetBypassToken() != "" {
			o.logger.Warn("bypass token ignored by the local strategy")
		}
		return NewLocalAuthenticator(codec).
			WithLogger(o.logger).
			WithMetrics(o.metrics), nil
	}
}
