package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/goPerm/jwt"
)

// SubjectFunc extracts the caller from a request.
type SubjectFunc func(r *http.Request) (Subject, bool)

// BearerSubject reads a subject token from the Authorization header and
// verifies it with m.
func BearerSubject(m *jwt.Manager) SubjectFunc {
	return func(r *http.Request) (Subject, bool) {
		if m == nil {
			return Subject{}, false
		}
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			return Subject{}, false
		}
		claims, err := m.Parse(token)
		if err != nil {
			return Subject{}, false
		}
		return Subject{UserID: claims.UID, ActorID: claims.ActorID}, true
	}
}

// HeaderSubject trusts a header set by an upstream authenticating proxy.
func HeaderSubject(header string) SubjectFunc {
	return func(r *http.Request) (Subject, bool) {
		id := strings.TrimSpace(r.Header.Get(header))
		if id == "" {
			return Subject{}, false
		}
		return Subject{UserID: id}, true
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
