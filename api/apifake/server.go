// Package apifake serves the storefront auth endpoints from an in-memory account
// repository. It backs the api and session tests and the console's FAKE_API mode.
package apifake

import (
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jrsteele09/storefront-admin/api"
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/users"
	"github.com/rs/zerolog/log"
)

const (
	MessageLoginSuccess      = "Login successful"
	MessageInvalidCreds      = "Invalid credentials"
	MessageAdminRequired     = "Access denied. Admin privileges required."
	MessageInvalidToken      = "Invalid token"
	MessageMissingFields     = "Email and password are required"
	MessageProfileRetrieved  = "Profile retrieved"
	MessageAccountNotPresent = "User not found"
)

type Server struct {
	mux      *http.ServeMux
	accounts users.Repo
	issuer   *token.Issuer

	hitsLock sync.Mutex
	hits     map[string]int
}

func New(accounts users.Repo, issuer *token.Issuer) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		accounts: accounts,
		issuer:   issuer,
		hits:     make(map[string]int),
	}
	s.mux.HandleFunc("POST "+api.RouteLogin, s.counted(api.RouteLogin, s.LoginHandler(false)))
	s.mux.HandleFunc("POST "+api.RouteAdminLogin, s.counted(api.RouteAdminLogin, s.LoginHandler(true)))
	s.mux.HandleFunc("GET "+api.RouteProfile, s.counted(api.RouteProfile, s.ProfileHandler()))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Seed stores an account with a bcrypt hash of password
func (s *Server) Seed(profile users.Profile, password string) (*users.Account, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &users.Account{Profile: profile, PasswordHash: hash}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Hits returns how many requests route has served
func (s *Server) Hits(route string) int {
	s.hitsLock.Lock()
	defer s.hitsLock.Unlock()
	return s.hits[route]
}

func (s *Server) counted(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hitsLock.Lock()
		s.hits[route]++
		s.hitsLock.Unlock()
		next(w, r)
	}
}

// LoginHandler handles both login routes; adminOnly rejects accounts without the admin role
func (s *Server) LoginHandler(adminOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeEnvelope(w, http.StatusBadRequest, api.LoginResponse{Message: "Invalid request body"})
			return
		}
		if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
			writeEnvelope(w, http.StatusBadRequest, api.LoginResponse{Message: MessageMissingFields})
			return
		}

		account, err := s.accounts.GetByEmail(creds.Email)
		if err != nil || !account.CheckPassword(creds.Password) {
			writeEnvelope(w, http.StatusUnauthorized, api.LoginResponse{Message: MessageInvalidCreds})
			return
		}

		if adminOnly && !account.IsAdmin() {
			writeEnvelope(w, http.StatusForbidden, api.LoginResponse{Message: MessageAdminRequired})
			return
		}

		accessToken, refreshToken, err := s.issuer.Issue(account.Profile)
		if err != nil {
			log.Err(err).Msg("apifake: failed to issue tokens")
			writeEnvelope(w, http.StatusInternalServerError, api.LoginResponse{Message: "Server error"})
			return
		}

		profile := account.Profile
		writeEnvelope(w, http.StatusOK, api.LoginResponse{
			Success: true,
			Message: MessageLoginSuccess,
			Data: &api.LoginData{
				Token:        accessToken,
				RefreshToken: refreshToken,
				User:         &profile,
			},
		})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeEnvelope(w, http.StatusUnauthorized, api.ProfileResponse{Message: MessageInvalidToken})
			return
		}

		claims, err := s.issuer.Verify(rawToken)
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, api.ProfileResponse{Message: MessageInvalidToken})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, api.ProfileResponse{Message: MessageInvalidToken})
			return
		}

		account, err := s.accounts.GetByID(userID)
		if err != nil {
			writeEnvelope(w, http.StatusNotFound, api.ProfileResponse{Message: MessageAccountNotPresent})
			return
		}

		profile := account.Profile
		writeEnvelope(w, http.StatusOK, api.ProfileResponse{
			Success: true,
			Message: MessageProfileRetrieved,
			Data:    &api.ProfileData{User: &profile},
		})
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

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("apifake: failed to write response")
	}
}
