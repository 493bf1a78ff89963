// Package auth authenticates bearer tokens on inbound requests and
// resolves them into an Identity for downstream authorization.
//
// Tokens:
//   - TokenCodec verifies compact HS256 tokens: signature, issuer, audience,
//     expiry and not-before, with no clock-skew leeway. Failures are tagged
//     with a FailureKind (Malformed, InvalidSignature, Expired, InvalidSubject).
//   - MintToken and TokenCodec.Sign issue tokens carrying the custom claims
//     user_id, name, email, hash, is_admin and role.
//
// Strategies:
//   - LocalAuthenticator trusts the verified claims and performs no I/O.
//   - RemoteAuthenticator verifies the token and then looks the subject up in
//     an IdentitySource on every request; only an active record succeeds. A
//     development bypass token, when configured, skips verification and
//     resolves a fixed account by email.
//   - NewAuthenticator picks one of the two from Config at startup.
//
// Results:
//   - Authenticate returns a Result which is either Success or *Failure.
//     Consumers switch on the concrete type; Failure.RichError exposes the
//     failure as a categorized go-errors value for HTTP error handlers.
package auth
