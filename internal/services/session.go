package services

import (
	"context"
	"slices"
	"sync"

	"accountsec/internal/configuration"
	"accountsec/internal/credentials"
	apierrors "accountsec/internal/errors"
	"accountsec/internal/gateway"
	h "accountsec/internal/helpers"
	"accountsec/internal/models"

	"go.uber.org/zap"
)

// SessionService lists and terminates the user's sessions.
//
// A list response replaces the cached set only if no other list or close was issued after it. Close
// results are applied as removals on the latest set, so they never resurrect or drop unrelated entries.
type SessionService struct {
	Gateway gateway.IGateway
	Store   credentials.IStore

	mu       sync.Mutex
	sessions []models.Session
	sequence h.Sequencer
}

func NewSessionService(gw gateway.IGateway, store credentials.IStore) *SessionService {
	return &SessionService{Gateway: gw, Store: store}
}

func (s *SessionService) localToken(ctx context.Context) string {
	token, err := s.Store.Get(ctx)
	if err != nil {
		zap.L().Warn("Failed to read credential store", zap.Error(err))
		return ""
	}
	return token
}

// List fetches the sessions and caches them.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	seq := s.sequence.Next()

	sessions, err := s.Gateway.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sequence.IsLatest(seq) {
		return sessions, apierrors.ErrStaleResponse
	}
	s.sessions = slices.Clone(sessions)
	return sessions, nil
}

// Sessions returns the cached set.
func (s *SessionService) Sessions() []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sessions)
}

// issue invalidates in-flight list requests. Called before every mutating request.
func (s *SessionService) issue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence.Next()
}

// update applies fn to the latest list and returns a copy of the result.
func (s *SessionService) update(fn func([]models.Session) []models.Session) []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = fn(s.sessions)
	return slices.Clone(s.sessions)
}

// CurrentSessionID returns the id of the cached session holding the local token, or "" if none does.
func (s *SessionService) CurrentSessionID(ctx context.Context) string {
	token := s.localToken(ctx)
	for _, session := range s.Sessions() {
		if session.IsCurrent(token) {
			return session.ID
		}
	}
	return ""
}

// IsCurrent reports whether sessionID is the current session. Unknown ids are not current.
func (s *SessionService) IsCurrent(ctx context.Context, sessionID string) bool {
	return sessionID != "" && s.CurrentSessionID(ctx) == sessionID
}

// Close terminates one session. Closing the current session always ends in a local logout: the gateway
// outcome is logged and the credential is cleared either way.
func (s *SessionService) Close(ctx context.Context, sessionID string) (models.SessionCloseResult, error) {
	current := s.IsCurrent(ctx, sessionID)
	s.issue()

	_, err := s.Gateway.CloseSession(ctx, sessionID)

	if current {
		if err != nil {
			zap.L().Info("Closing the current session failed, logging out locally",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
		s.forceLogout(ctx)
		return loggedOut(configuration.MsgSessionClosed, err), nil
	}

	if err != nil {
		return models.SessionCloseResult{Remaining: s.Sessions()}, err
	}

	remaining := s.update(func(sessions []models.Session) []models.Session {
		return slices.DeleteFunc(sessions, func(session models.Session) bool { return session.ID == sessionID })
	})
	return models.SessionCloseResult{Message: configuration.MsgSessionClosed, ServerClosed: true, Remaining: remaining}, nil
}

// CloseAll terminates every other session. With keepCurrent false the current one is terminated too and
// the call ends in a local logout whatever the gateway answers.
func (s *SessionService) CloseAll(ctx context.Context, keepCurrent bool) (models.SessionCloseResult, error) {
	s.issue()

	_, err := s.Gateway.CloseAllSessions(ctx)

	if !keepCurrent {
		if err != nil {
			zap.L().Info("Closing all sessions failed, logging out locally", zap.Error(err))
		}
		s.forceLogout(ctx)
		return loggedOut(configuration.MsgSessionsClosed, err), nil
	}

	if err != nil {
		return models.SessionCloseResult{Remaining: s.Sessions()}, err
	}

	token := s.localToken(ctx)
	remaining := s.update(func(sessions []models.Session) []models.Session {
		return slices.DeleteFunc(sessions, func(session models.Session) bool { return !session.IsCurrent(token) })
	})
	return models.SessionCloseResult{Message: configuration.MsgSessionsClosed, ServerClosed: true, Remaining: remaining}, nil
}

// Logout ends the current session on the server and always clears the local credential.
func (s *SessionService) Logout(ctx context.Context) (models.SessionCloseResult, error) {
	s.issue()

	resp, err := s.Gateway.Logout(ctx)
	if err != nil {
		zap.L().Info("Logout request failed, logging out locally", zap.Error(err))
	}
	s.forceLogout(ctx)

	message := resp.Message
	if message == "" {
		message = configuration.MsgLoggedOut
	}
	return loggedOut(message, err), nil
}

func loggedOut(message string, serverErr error) models.SessionCloseResult {
	return models.SessionCloseResult{
		Message:      message,
		LoggedOut:    true,
		ServerClosed: serverErr == nil,
		ServerErr:    serverErr,
	}
}

// forceLogout clears the credential even when ctx was cancelled while the request was in flight.
func (s *SessionService) forceLogout(ctx context.Context) {
	if err := s.Store.Clear(context.WithoutCancel(ctx)); err != nil {
		zap.L().Error("Failed to clear credential store", zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
}
