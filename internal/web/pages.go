package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/a3tai/pdf-bookmaker/internal/auth"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "signup", "login", "forgot_password", "reset_password", "dashboard"}

type pageSet struct {
	pages map[string]*template.Template
}

func loadPages() (*pageSet, error) {
	set := &pageSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("base.html").Funcs(template.FuncMap{
			"date": func(f store.File) string { return f.CreatedAt.Local().Format("2006-01-02 15:04") },
		}).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		set.pages[name] = t
	}
	return set, nil
}

type pageData struct {
	Title string
	Flash *flash
	User  *store.User
	Files []store.File
	Token string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, data pageData) {
	data.Title = title
	data.User = currentUser(r)
	if data.Flash == nil {
		data.Flash = takeFlash(w, r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.pages[name].Execute(w, data); err != nil {
		s.logger.Error("failed to render page",
			zap.String("page", name),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err))
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	if msg != "" {
		setFlash(w, kind, msg)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "index", "PDF Book Maker", pageData{})
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", "Sign up", pageData{})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	email := strings.TrimSpace(r.PostFormValue("email"))

	if username == "" || password == "" || email == "" {
		s.render(w, r, "signup", "Sign up", pageData{Flash: &flash{flashError, "All fields are required."}})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		s.render(w, r, "signup", "Sign up", pageData{Flash: &flash{flashError, "Signup failed. Please try again."}})
		return
	}

	if _, err := s.users.CreateUser(r.Context(), username, email, hash); err != nil {
		msg := "Signup failed. Please try again."
		if errors.Is(err, store.ErrConflict) {
			msg = "Username or email already exists."
		} else {
			s.logger.Error("failed to create user", zap.String("username", username), zap.Error(err))
		}
		s.render(w, r, "signup", "Sign up", pageData{Flash: &flash{flashError, msg}})
		return
	}

	s.logger.Info("user signed up", zap.String("username", username))
	s.redirect(w, r, "/login", flashSuccess, "Signup successful! Please log in.")
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login", "Log in", pageData{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	user, token, err := s.checkLogin(r, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		s.render(w, r, "login", "Log in", pageData{Flash: &flash{flashError, "Invalid username or password."}})
		return
	}

	setSession(w, r, token)
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	s.redirect(w, r, "/dashboard", flashSuccess, "Logged in successfully!")
}

// checkLogin verifies credentials and issues a session token
func (s *Server) checkLogin(r *http.Request, username, password string) (*store.User, string, error) {
	user, err := s.users.UserByUsername(r.Context(), strings.TrimSpace(username))
	if err != nil {
		return nil, "", auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", err
	}
	token, err := s.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	s.redirect(w, r, "/login", flashSuccess, "Logged out successfully.")
}

func (s *Server) forgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "forgot_password", "Forgot password", pageData{})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	user, err := s.users.UserByEmail(r.Context(), email)
	if err != nil {
		s.render(w, r, "forgot_password", "Forgot password", pageData{Flash: &flash{flashError, "Email not found."}})
		return
	}

	token, err := auth.NewResetToken()
	if err == nil {
		err = s.users.CreateReset(r.Context(), user.ID, token, s.now().Add(auth.ResetTTL))
	}
	if err != nil {
		s.logger.Error("failed to create reset token", zap.Int64("user_id", user.ID), zap.Error(err))
		s.render(w, r, "forgot_password", "Forgot password", pageData{Flash: &flash{flashError, "Could not start a password reset. Please try again."}})
		return
	}

	// no mail transport: the link is handed to operators through the log
	s.logger.Info("password reset requested",
		zap.Int64("user_id", user.ID),
		zap.String("reset_path", "/reset-password/"+token))
	s.render(w, r, "forgot_password", "Forgot password", pageData{Flash: &flash{flashSuccess, "A password reset link has been sent to your email."}})
}

// validReset returns the token's reset or redirects to the request page
func (s *Server) validReset(w http.ResponseWriter, r *http.Request) (*store.Reset, bool) {
	token := mux.Vars(r)["token"]
	reset, err := s.users.ResetByToken(r.Context(), token)
	if err != nil || reset.Expired(s.now()) {
		s.redirect(w, r, "/forgot-password", flashError, "Invalid or expired token.")
		return nil, false
	}
	return reset, true
}

func (s *Server) resetPasswordPage(w http.ResponseWriter, r *http.Request) {
	reset, ok := s.validReset(w, r)
	if !ok {
		return
	}
	s.render(w, r, "reset_password", "Reset password", pageData{Token: reset.Token})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	reset, ok := s.validReset(w, r)
	if !ok {
		return
	}

	password := r.PostFormValue("password")
	if password == "" {
		s.render(w, r, "reset_password", "Reset password", pageData{Token: reset.Token, Flash: &flash{flashError, "Password is required."}})
		return
	}

	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(r.Context(), reset.UserID, hash)
	}
	if err != nil {
		s.logger.Error("failed to reset password", zap.Int64("user_id", reset.UserID), zap.Error(err))
		s.render(w, r, "reset_password", "Reset password", pageData{Token: reset.Token, Flash: &flash{flashError, "Could not reset password. Please try again."}})
		return
	}
	if err := s.users.DeleteReset(r.Context(), reset.Token); err != nil {
		s.logger.Warn("failed to delete used reset token", zap.Error(err))
	}

	s.redirect(w, r, "/login", flashSuccess, "Password reset successfully. Please log in.")
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	files, err := s.library.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.logger.Error("failed to list files", zap.Error(err))
		http.Error(w, "failed to list files", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "dashboard", "Dashboard", pageData{Files: files})
}
