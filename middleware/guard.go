package middleware

import (
	"context"
	"net"
	"net/http"

	goPerm "github.com/MrEthical07/goPerm"
)

// Authorizer is the subset of *goPerm.Engine the guards need.
type Authorizer interface {
	HasAction(ctx context.Context, userID, feature, action string) (bool, error)
	HasLevel(ctx context.Context, userID string, required goPerm.Level) (bool, error)
}

// Subject identifies the caller of a request.
type Subject struct {
	UserID  string
	ActorID string
}

type subjectContextKey struct{}

// SubjectFromContext returns the subject injected by a guard.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectContextKey{}).(Subject)
	return s, ok
}

// RequireAction admits requests whose subject may perform action on feature.
func RequireAction(auth Authorizer, subject SubjectFunc, feature, action string) func(http.Handler) http.Handler {
	return Guard(auth, subject, func(ctx context.Context, a Authorizer, userID string) (bool, error) {
		return a.HasAction(ctx, userID, feature, action)
	})
}

// RequireLevel admits requests whose subject is at least level.
func RequireLevel(auth Authorizer, subject SubjectFunc, level goPerm.Level) func(http.Handler) http.Handler {
	return Guard(auth, subject, func(ctx context.Context, a Authorizer, userID string) (bool, error) {
		return a.HasLevel(ctx, userID, level)
	})
}

// Guard runs check for the request subject and rejects the request unless it
// returns true.
func Guard(
	auth Authorizer,
	subject SubjectFunc,
	check func(ctx context.Context, a Authorizer, userID string) (bool, error),
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil || subject == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			s, ok := subject(r)
			if !ok || s.UserID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey{}, s)
			actor := s.ActorID
			if actor == "" {
				actor = s.UserID
			}
			ctx = goPerm.WithActorID(ctx, actor)
			if ip := clientIP(r); ip != "" {
				ctx = goPerm.WithClientIP(ctx, ip)
			}

			allowed, err := check(ctx, auth, s.UserID)
			if err != nil || !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
