package middleware

import (
	"context"
	"net/http"

	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

// requestScope lets inner middleware report values back to Logger.
type requestScope struct {
	pattern string
	userID  string
}

type scopeKey struct{}

func withScope(ctx context.Context, s *requestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func scopeFrom(ctx context.Context) *requestScope {
	s, _ := ctx.Value(scopeKey{}).(*requestScope)
	return s
}

// Route records the matched mux pattern and the authenticated user for the
// access log. Place it innermost, right around the mux handler.
func Route(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s := scopeFrom(r.Context())
		if s == nil {
			return
		}
		s.pattern = r.Pattern
		if userID, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
			s.userID = userID.String()
		}
	})
}
