package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"bloodalert/internal"
	"bloodalert/pkg/types"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	contextKeyCaller contextKey = "caller"
	contextKeyUserID contextKey = "user_id"
)

var errNoAccessToken = errors.New("no access token presented")

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// accessToken reads the bearer token from the Authorization header, falling
// back to the encrypted session cookie set at login.
func (s *Service) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed authorization header")
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return "", errNoAccessToken
	}

	var token string
	if err := s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &token); err != nil {
		return "", err
	}
	return token, nil
}

// RequireAuth verifies the access token, loads the user it names and puts
// the resolved caller on the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := s.accessToken(r)
		if err != nil {
			s.logger.WithError(err).Debug("request without usable access token")
			s.writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := s.verifier.Verify(ctx, token)
		if err != nil {
			s.logger.WithError(err).Warn("failed to verify access token")
			s.writeMessage(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		user, err := s.users.User(ctx, userID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				s.writeMessage(w, http.StatusUnauthorized, "no account for this identity")
				return
			}
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to load user")
			s.internalServerError(w)
			return
		}

		caller, err := types.CallerFromUser(user)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to resolve caller")
			s.writeMessage(w, http.StatusForbidden, "account role is not recognised")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    caller.CallerRole(),
		}).Debug("authenticated user")

		ctx = context.WithValue(ctx, contextKeyUserID, userID)
		ctx = context.WithValue(ctx, contextKeyCaller, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
