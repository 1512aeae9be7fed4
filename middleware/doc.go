// Package middleware adapts permission checks to net/http.
//
// # Guards
//
//   - [RequireAction] admits a request when the subject holds an action on a feature.
//   - [RequireLevel] admits a request when the subject's level meets a minimum.
//
// A guard extracts the subject with a [SubjectFunc] ([BearerSubject] or
// [HeaderSubject]), asks the [Authorizer], and injects the subject into the
// request context. A request without a subject gets 401. A denied check or a
// failed lookup gets 403.
//
// # What this package must NOT do
//
//   - Resolve permissions itself (delegates to the Authorizer).
//   - Access Redis or the user store.
package middleware
