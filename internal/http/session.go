package http

import (
	"errors"
	"net/http"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// requireAPISession rejects requests without a valid session with 401.
// HTMX requests additionally get HX-Redirect so the browser lands on /login.
func (s *Server) requireAPISession(next http.HandlerFunc) http.Handler {
	return s.apiSession(next, true)
}

// requirePollSession is requireAPISession for background polling. It never
// slides the idle window, so an open tab alone does not keep a session alive.
func (s *Server) requirePollSession(next http.HandlerFunc) http.Handler {
	return s.apiSession(next, false)
}

func (s *Server) apiSession(next http.HandlerFunc, slide bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := s.authenticate(w, r, slide)
		if !ok {
			if isHTMX(r) {
				w.Header().Set("HX-Redirect", "/login")
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	})
}

// requirePageSession redirects anonymous visitors to the login page.
func (s *Server) requirePageSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := s.authenticate(w, r, true)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// authenticate parses the session cookie and, when slide is set, renews its
// idle window. An invalid cookie is cleared.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, slide bool) (*http.Request, bool) {
	c, err := r.Cookie(auth.CookieName)
	if err != nil || c.Value == "" {
		return r, false
	}

	ctx := r.Context()
	sess, err := s.deps.Sessions.Parse(ctx, c.Value)
	if err != nil {
		level := s.logger.DebugContext
		if !errors.Is(err, auth.ErrSessionIdle) && !errors.Is(err, auth.ErrSessionExpired) &&
			!errors.Is(err, auth.ErrSessionRevoked) && !errors.Is(err, auth.ErrInvalidToken) {
			level = s.logger.ErrorContext
		}
		level(ctx, "Session rejected", applog.FieldError, err, applog.FieldPath, r.URL.Path)
		s.clearSessionCookie(w)
		return r, false
	}

	if slide && s.deps.Sessions.ShouldRefresh(sess) {
		token, refreshed, err := s.deps.Sessions.Refresh(sess)
		if err != nil {
			s.logger.ErrorContext(ctx, "Session refresh failed", applog.FieldError, err)
		} else {
			sess = refreshed
			s.setSessionCookie(w, token, sess.ExpiresAt)
		}
	}

	ctx = auth.WithSession(ctx, sess)
	ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, sess.UserID))
	return r.WithContext(ctx), true
}

// startSession issues a token for the user and sets the cookie.
func (s *Server) startSession(w http.ResponseWriter, u core.User) error {
	token, sess, err := s.deps.Sessions.Issue(u.ID, u.Username)
	if err != nil {
		return err
	}
	s.setSessionCookie(w, token, sess.ExpiresAt)
	return nil
}

// endSession revokes the current session, if any, and clears the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		if sess, err := s.deps.Sessions.Parse(r.Context(), c.Value); err == nil {
			if err := s.deps.Sessions.Revoke(r.Context(), sess); err != nil {
				s.logger.ErrorContext(r.Context(), "Session revocation failed", applog.FieldError, err)
			}
		}
	}
	s.clearSessionCookie(w)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentSession returns the session placed by the auth middleware.
func currentSession(r *http.Request) auth.Session {
	sess, _ := auth.SessionFrom(r.Context())
	return sess
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
