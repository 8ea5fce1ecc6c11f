package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/taskAuth"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by Authenticate.
func PrincipalFromContext(ctx context.Context) (*taskAuth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*taskAuth.Principal)
	return p, ok && p != nil
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *taskAuth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Authenticate rejects requests without a valid access token with 401.
func Authenticate(engine *taskAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, taskAuth.ErrMalformed)
				return
			}

			p, err := engine.Authenticate(token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// ClientIP records the remote host on the request context so the Engine can
// throttle logins per address. Mount chi's RealIP before it when running behind
// a proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(taskAuth.WithClientIP(r.Context(), host)))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
