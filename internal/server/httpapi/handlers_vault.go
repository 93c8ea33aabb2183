package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type credentialResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	LoginName    string    `json:"login_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Category     string    `json:"category"`
	Favorite     bool      `json:"favorite"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		ID:           c.ID,
		Title:        c.Title,
		URL:          c.URL,
		LoginName:    c.LoginName,
		ContactEmail: c.ContactEmail,
		Notes:        c.Notes,
		Category:     string(c.Category),
		Favorite:     c.Favorite,
		CreatedAt:    c.CreatedAt,
		ModifiedAt:   c.ModifiedAt,
	}
}

type createCredentialRequest struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	LoginName    string `json:"login_name"`
	ContactEmail string `json:"contact_email"`
	Notes        string `json:"notes"`
	Category     string `json:"category"`
	Favorite     bool   `json:"favorite"`
	Secret       string `json:"secret"`
}

type updateCredentialRequest struct {
	Title        *string `json:"title"`
	URL          *string `json:"url"`
	LoginName    *string `json:"login_name"`
	ContactEmail *string `json:"contact_email"`
	Notes        *string `json:"notes"`
	Category     *string `json:"category"`
	Favorite     *bool   `json:"favorite"`
	Secret       *string `json:"secret"`
}

func (s *Server) handleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title is required"})
		return
	}
	category := models.Category(req.Category)
	if req.Category != "" && !category.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category"})
		return
	}

	account := AccountFromContext(r.Context())
	credential, err := s.vault.Create(r.Context(), account.ID, services.CreateCredentialParams{
		Title:        req.Title,
		URL:          req.URL,
		LoginName:    req.LoginName,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
		Category:     category,
		Favorite:     req.Favorite,
		Secret:       req.Secret,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCredentialResponse(credential))
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	credential, _, err := s.vault.Get(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponse(credential))
}

// handleRevealCredential returns the decrypted secret. It is gated on a
// fresh master-secret confirmation in the request body.
func (s *Server) handleRevealCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterSecret string `json:"master_secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	account := AccountFromContext(r.Context())
	if !s.accounts.VerifyMaster(account, req.MasterSecret) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "verification failed"})
		return
	}

	credential, secret, err := s.vault.Get(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	type revealResponse struct {
		credentialResponse
		Secret string `json:"secret"`
	}
	writeJSON(w, http.StatusOK, revealResponse{
		credentialResponse: toCredentialResponse(credential),
		Secret:             secret,
	})
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilterFromQuery(w, r)
	if !ok {
		return
	}

	account := AccountFromContext(r.Context())
	list, err := s.vault.List(r.Context(), account.ID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]credentialResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCredentialResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": out})
}

func listFilterFromQuery(w http.ResponseWriter, r *http.Request) (models.ListFilter, bool) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Search:        q.Get("q"),
		FavoritesOnly: q.Get("favorites") == "true",
	}

	if c := q.Get("category"); c != "" {
		category := models.Category(c)
		if !category.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category"})
			return filter, false
		}
		filter.Category = category
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
				return filter, false
			}
			*dst = n
		}
	}
	return filter, true
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	var req updateCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	params := services.UpdateCredentialParams{
		Title:        req.Title,
		URL:          req.URL,
		LoginName:    req.LoginName,
		ContactEmail: req.ContactEmail,
		Notes:        req.Notes,
		Favorite:     req.Favorite,
		Secret:       req.Secret,
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		if !category.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category"})
			return
		}
		params.Category = &category
	}
	if req.Title != nil && *req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title cannot be empty"})
		return
	}

	account := AccountFromContext(r.Context())
	credential, err := s.vault.Update(r.Context(), account.ID, chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialResponse(credential))
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	if err := s.vault.Delete(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())
	favorite, err := s.vault.ToggleFavorite(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}
