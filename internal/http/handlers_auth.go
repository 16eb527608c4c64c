package http

import (
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var f forms.SignupForm
	if err := s.decodeBody(r, &f); err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	u, err := s.register(w, r, f)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user_id": u.ID,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, f forms.SignupForm) (core.User, error) {
	u, err := s.deps.Accounts.Register(r.Context(), f.Username, f.Email, f.Password)
	if err != nil {
		return core.User{}, err
	}
	if err := s.startSession(w, u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var f forms.LoginForm
	if err := s.decodeBody(r, &f); err != nil {
		s.writeServiceError(w, r, applog.OpLogin, err)
		return
	}

	u, err := s.login(w, r, f)
	if err != nil {
		s.writeServiceError(w, r, applog.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    toUserJSON(u),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, f forms.LoginForm) (core.User, error) {
	events := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	clientIP := s.detector.ExtractClientIP(r)

	u, err := s.deps.Accounts.Login(r.Context(), f.Email, f.Password)
	if err != nil {
		events.LogAuth(r.Context(), applog.OpLogin, f.Email, false, clientIP)
		return core.User{}, err
	}
	if err := s.startSession(w, u); err != nil {
		return core.User{}, err
	}
	events.LogAuth(r.Context(), applog.OpLogin, f.Email, true, clientIP)
	return u, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Accounts.Profile(r.Context(), currentSession(r).UserID)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.updateProfile(w, r)
	if err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    toUserJSON(u),
	})
}

// updateProfile stores the profile and re-issues the session when the
// username changed, since the token carries it.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) (core.User, error) {
	var f forms.ProfileForm
	if err := s.decodeBody(r, &f); err != nil {
		return core.User{}, err
	}
	cents, err := f.SalaryCents()
	if err != nil {
		return core.User{}, core.ErrNegativeSalary
	}

	sess := currentSession(r)
	u, err := s.deps.Accounts.UpdateProfile(r.Context(), sess.UserID, f.Username, f.Email, core.Money{Cents: cents})
	if err != nil {
		return core.User{}, err
	}
	if u.Username != sess.Username {
		sess.Username = u.Username
		token, refreshed, err := s.deps.Sessions.Refresh(sess)
		if err != nil {
			return core.User{}, err
		}
		s.setSessionCookie(w, token, refreshed.ExpiresAt)
	}
	return u, nil
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := s.changePassword(r); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *Server) changePassword(r *http.Request) error {
	var f forms.PasswordForm
	if err := s.decodeBody(r, &f); err != nil {
		return err
	}
	return s.deps.Accounts.ChangePassword(r.Context(), currentSession(r).UserID, f.CurrentPassword, f.NewPassword)
}
