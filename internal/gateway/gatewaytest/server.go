// Package gatewaytest provides an in-process account API used by tests.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"accountsec/internal/configuration"
	"accountsec/internal/models"

	"github.com/pquerna/otp/totp"
)

// Server emulates the account API. Exported fields may be changed between requests while holding no
// lock; tests drive it sequentially.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	Token      string
	LoginToken string
	Password   string
	User       models.User
	Sessions   []models.Session

	Enabled        bool
	HasBackupCodes bool
	Secret         string
	SetupCodes     []string
	ActiveCodes    []string
	// AcceptedCode is accepted by verify in addition to the live TOTP code of Secret.
	AcceptedCode string

	// DisableOnPasswordChange makes a password change turn 2FA off, announced in the message.
	DisableOnPasswordChange bool
	// StructuredFlag also reports the side effect in the twoFactorDisabled field.
	StructuredFlag bool

	failures map[string]int
	calls    map[string]int
}

func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Token:      "token-current",
		LoginToken: "token-after-2fa",
		Password:   "Secret123",
		User: models.User{
			ID:       "u1",
			Username: "usuario_ejemplo",
			Email:    "usuario@ejemplo.com",
			Profile:  models.UserProfile{AvatarID: "avatar1"},
		},
		Secret:     "JBSWY3DPEHPK3PXP",
		SetupCodes: []string{"A1B2C3D4", "E5F6A7B8"},
		failures:   map[string]int{},
		calls:      map[string]int{},
	}

	mux := http.NewServeMux()
	s.route(mux, "GET", configuration.EndpointProfile, true, s.getProfile)
	s.route(mux, "PUT", configuration.EndpointProfile, true, s.updateProfile)
	s.route(mux, "PUT", configuration.EndpointChangePassword, true, s.changePassword)
	s.route(mux, "DELETE", configuration.EndpointDeleteAccount, true, s.deleteAccount)
	s.route(mux, "POST", configuration.EndpointLogout, true, s.logout)
	s.route(mux, "GET", configuration.EndpointSessions, true, s.listSessions)
	s.route(mux, "DELETE", configuration.EndpointSessions, true, s.closeAllSessions)
	s.route(mux, "DELETE", configuration.EndpointSession, true, s.closeSession)
	s.route(mux, "GET", configuration.EndpointTwoFactorStatus, true, s.status)
	s.route(mux, "POST", configuration.EndpointTwoFactorSetup, true, s.setup)
	s.route(mux, "POST", configuration.EndpointTwoFactorVerify, true, s.verify)
	s.route(mux, "POST", configuration.EndpointTwoFactorOff, true, s.disable)
	s.route(mux, "POST", configuration.EndpointTwoFactorLogin, false, s.verifyLogin)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Fail makes every following call of method+path answer status with an error payload.
func (s *Server) Fail(method string, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Recover removes a failure installed by Fail.
func (s *Server) Recover(method string, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// Calls returns how many requests reached method+path.
func (s *Server) Calls(method string, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) route(mux *http.ServeMux, method string, path string, auth bool, handler http.HandlerFunc) {
	key := method + " " + path
	mux.HandleFunc(method+" /"+path, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[key]++
		status, failing := s.failures[key]
		token := s.Token
		s.mu.Unlock()

		if failing {
			writeError(w, status, "Error del servidor")
			return
		}
		if auth && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "No autorizado")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		handler(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

func decode(r *http.Request, body any) bool {
	return json.NewDecoder(r.Body).Decode(body) == nil
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.UserResponse{User: s.User})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body models.ProfileUpdateBody
	if !decode(r, &body) {
		writeError(w, http.StatusBadRequest, "Solicitud inválida")
		return
	}
	s.User.Username = body.Username
	s.User.Email = body.Email
	s.User.Profile.AvatarID = body.AvatarID
	writeJSON(w, http.StatusOK, models.UserResponse{User: s.User})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var body models.PasswordChangeBody
	if !decode(r, &body) || body.CurrentPassword != s.Password {
		writeError(w, http.StatusBadRequest, "La contraseña actual es incorrecta")
		return
	}
	s.Password = body.NewPassword

	resp := models.PasswordChangeResponse{Message: "Contraseña actualizada exitosamente"}
	if s.DisableOnPasswordChange && s.Enabled {
		s.Enabled = false
		s.HasBackupCodes = false
		s.ActiveCodes = nil
		resp.Message += ". Por seguridad, el " + configuration.TwoFactorDisabledMarker
		if s.StructuredFlag {
			disabled := true
			resp.TwoFactorDisabled = &disabled
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var body models.AccountDeleteBody
	if !decode(r, &body) || body.Password != s.Password {
		writeError(w, http.StatusUnauthorized, "Contraseña incorrecta")
		return
	}
	s.Token = ""
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Cuenta eliminada"})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.Sessions = slices.DeleteFunc(s.Sessions, func(session models.Session) bool {
		return session.Token == s.Token
	})
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Sesión cerrada"})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.Sessions
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index := slices.IndexFunc(s.Sessions, func(session models.Session) bool { return session.ID == id })
	if index < 0 {
		writeError(w, http.StatusNotFound, "Sesión no encontrada")
		return
	}
	s.Sessions = slices.Delete(s.Sessions, index, index+1)
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Sesión cerrada"})
}

func (s *Server) closeAllSessions(w http.ResponseWriter, _ *http.Request) {
	s.Sessions = slices.DeleteFunc(s.Sessions, func(session models.Session) bool {
		return session.Token != s.Token
	})
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Sesiones cerradas"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.TwoFactorStatus{Enabled: s.Enabled, HasBackupCodes: s.HasBackupCodes})
}

func (s *Server) setup(w http.ResponseWriter, _ *http.Request) {
	if s.Enabled {
		writeError(w, http.StatusBadRequest, "2FA ya está habilitado")
		return
	}
	writeJSON(w, http.StatusOK, models.TwoFactorSetup{
		Secret:      s.Secret,
		QRCode:      "data:image/png;base64,iVBORw0KGgo=",
		BackupCodes: s.SetupCodes,
	})
}

func (s *Server) codeAccepted(code string) bool {
	return (s.AcceptedCode != "" && code == s.AcceptedCode) || totp.Validate(code, s.Secret)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var body models.TwoFactorVerifyBody
	if !decode(r, &body) || !s.codeAccepted(body.Code) {
		writeError(w, http.StatusBadRequest, "Código inválido")
		return
	}
	s.Enabled = true
	s.HasBackupCodes = true
	s.ActiveCodes = slices.Clone(s.SetupCodes)
	writeJSON(w, http.StatusOK, models.TwoFactorVerifyResponse{
		Message:     "2FA habilitado exitosamente",
		BackupCodes: s.ActiveCodes,
	})
}

func (s *Server) disable(w http.ResponseWriter, r *http.Request) {
	var body models.TwoFactorDisableBody
	if !decode(r, &body) || body.Password != s.Password {
		writeError(w, http.StatusUnauthorized, "Contraseña incorrecta")
		return
	}
	s.Enabled = false
	s.HasBackupCodes = false
	s.ActiveCodes = nil
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "2FA deshabilitado"})
}

func (s *Server) verifyLogin(w http.ResponseWriter, r *http.Request) {
	var body models.TwoFactorLoginBody
	if !decode(r, &body) || !strings.EqualFold(body.Email, s.User.Email) {
		writeError(w, http.StatusBadRequest, "Código inválido")
		return
	}

	if index := slices.Index(s.ActiveCodes, body.Code); index >= 0 {
		s.ActiveCodes = slices.Delete(s.ActiveCodes, index, index+1)
	} else if !s.codeAccepted(body.Code) {
		writeError(w, http.StatusUnauthorized, "Código inválido")
		return
	}

	s.Token = s.LoginToken
	writeJSON(w, http.StatusOK, models.TwoFactorLoginResponse{Verified: true, Token: s.LoginToken})
}
