package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/netutil"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

var errBadBody = errors.New("malformed request body")

type handlers struct {
	Deps
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrBadRequest, errBadBody, err)
	}
	return nil
}

func (h *handlers) loginPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "Invalid request body")
		return
	}
	tok, err := h.Credentials.Login(r.Context(), req, netutil.ClientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, dto.TokenResponse{Token: tok.Token})
}

func (h *handlers) createOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "Invalid request body")
		return
	}
	if err := h.Credentials.CreateOTP(r.Context(), req.Username); err != nil {
		writeError(w, r, err, "")
		return
	}
	res := dto.OK(true)
	created := http.StatusCreated
	res.StatusCode = &created
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) redeemOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "Invalid request body")
		return
	}
	tok, err := h.Credentials.RedeemOTP(r.Context(), req.OTP)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, dto.TokenResponse{Token: tok.Token})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	writeOK(w, userFromContext(r.Context()))
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Credentials.Revoke(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, true)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Moderation.GetUser(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, u)
}

func (h *handlers) openReview(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reviews.Open(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, res)
}

func (h *handlers) abandonReview(w http.ResponseWriter, r *http.Request) {
	if err := h.Reviews.Abandon(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "username")); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, true)
}

func (h *handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	err := h.Status.SetStatus(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "username"), chi.URLParam(r, "status"))
	switch {
	case err == nil:
		writeOK(w, true)
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, r, err, "Approved or Denied")
	case errors.Is(err, domain.ErrExternalService):
		writeError(w, r, err, "Unable to Process Approve Request Currently")
	default:
		writeError(w, r, err, "")
	}
}

func (h *handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePropertyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "Invalid request body")
		return
	}
	u, err := h.Moderation.UpdateProperty(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "username"), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		msg := ""
		if errors.Is(err, domain.ErrBadRequest) {
			msg = "You can only change your Avatar or Description"
		}
		writeError(w, r, err, msg)
		return
	}
	writeOK(w, u)
}
