package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

type registerRequest struct {
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	AccountSecret string `json:"account_secret"`
	MasterSecret  string `json:"master_secret"`
}

type loginRequest struct {
	Email         string `json:"email"`
	AccountSecret string `json:"account_secret"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

type accountResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	LastAccessAt time.Time `json:"last_access_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Email:        a.EmailNormalized,
		DisplayName:  a.DisplayName,
		LastAccessAt: a.LastAccessAt,
		CreatedAt:    a.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.AccountSecret == "" || req.MasterSecret == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email, account_secret and master_secret are required"})
		return
	}

	session, err := s.accounts.Register(r.Context(), req.Email, req.DisplayName, req.AccountSecret, req.MasterSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:   session.Token,
		Account: toAccountResponse(session.Account),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.accounts.Login(r.Context(), req.Email, req.AccountSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:   session.Token,
		Account: toAccountResponse(session.Account),
	})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	// Same response whether or not the email exists.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token            string `json:"token"`
		NewAccountSecret string `json:"new_account_secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewAccountSecret == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token and new_account_secret are required"})
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), req.Token, req.NewAccountSecret); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVerifyMaster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterSecret string `json:"master_secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account := AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{
		"verified": s.accounts.VerifyMaster(account, req.MasterSecret),
	})
}

func (s *Server) handleChangeSecret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentSecret string `json:"current_secret"`
		NewSecret     string `json:"new_secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewSecret == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "new_secret is required"})
		return
	}

	account := AccountFromContext(r.Context())
	if err := s.accounts.ChangeAccountSecret(r.Context(), account, req.CurrentSecret, req.NewSecret); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChangeMaster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentMaster string `json:"current_master"`
		NewMaster     string `json:"new_master"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewMaster == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "new_master is required"})
		return
	}

	account := AccountFromContext(r.Context())
	if err := s.accounts.ChangeMasterSecret(r.Context(), account, req.CurrentMaster, req.NewMaster); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
