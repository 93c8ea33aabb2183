package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/passvault/internal/passgen"
)

type generateRequest struct {
	Length           *int  `json:"length"`
	Upper            *bool `json:"upper"`
	Lower            *bool `json:"lower"`
	Digits           *bool `json:"digits"`
	Symbols          *bool `json:"symbols"`
	ExcludeAmbiguous bool  `json:"exclude_ambiguous"`
}

// handleGenerate produces a random password. Unset fields fall back to
// the defaults, so an empty body yields a sensible password.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	opts := passgen.DefaultOptions()

	if r.ContentLength != 0 {
		var req generateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Length != nil {
			opts.Length = *req.Length
		}
		if req.Upper != nil {
			opts.Upper = *req.Upper
		}
		if req.Lower != nil {
			opts.Lower = *req.Lower
		}
		if req.Digits != nil {
			opts.Digits = *req.Digits
		}
		if req.Symbols != nil {
			opts.Symbols = *req.Symbols
		}
		opts.ExcludeAmbiguous = req.ExcludeAmbiguous
	}

	password, err := passgen.Generate(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"password": password,
		"strength": passgen.Score(password),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, passgen.Score(req.Password))
}
