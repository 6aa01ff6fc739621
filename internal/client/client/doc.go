// Package client contains the Remote Data Gateway of the dome client and the
// bootstrap of its local SQLite store.
//
// # Overview
//
//  1. Client is the transport-agnostic contract: one method per
//     resource/action pair of the kanban API (workspaces, boards, lists,
//     cards, membership, current user, login and registration).
//  2. HTTPClient implements it over REST. Every request carries the bearer
//     token read from Auth at send time, a fresh X-Request-ID and the
//     preferred Accept-Language. Authorization failures are reported to
//     Auth.Unauthorized, together with the token that was sent, before the
//     error is returned; nothing is retried.
//  3. InitDatabase and RunMigrations open the local SQLite database and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses are returned as *StatusError, which unwraps to one of
// ErrUnauthorized, ErrNotFound, ErrValidation or ErrUnavailable. Transport
// failures wrap ErrUnavailable. Match with errors.Is.
//
// # Concurrency
//
// HTTPClient is safe for concurrent use. The Auth provider may be swapped
// with SetAuth at any time; the next request observes it.
package client
