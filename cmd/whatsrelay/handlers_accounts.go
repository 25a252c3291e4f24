package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"whatsrelay/internal/constants"
	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/httputil"
	"whatsrelay/internal/models"
	"whatsrelay/internal/service"
	"whatsrelay/internal/validation"
)

type registerAccountRequest struct {
	AccountID string `json:"accountId"`
}

// accountIDVar reads and validates the {accountId} path variable
func accountIDVar(r *http.Request) (string, error) {
	id := mux.Vars(r)["accountId"]
	if err := validation.ValidateAccountID(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) handleListAccounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := s.accounts.AccountsStatus(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if states == nil {
			states = []models.AccountState{}
		}
		httputil.WriteData(w, http.StatusOK, states)
	}
}

func (s *Server) handleRegisterAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerAccountRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if err := validation.ValidateAccountID(req.AccountID); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		account, err := s.accounts.AddAccount(r.Context(), req.AccountID)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
			Success: true,
			Data:    account,
			Message: fmt.Sprintf("Account %s initiated, scan the QR code to pair it", account.ID),
		})
	}
}

func (s *Server) handleStartAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if err := s.accounts.StartAccount(r.Context(), id); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf("Account %s initialization started", id))
	}
}

func (s *Server) handleStopAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if err := s.accounts.StopAccount(r.Context(), id); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf("Account %s stopped", id))
	}
}

func (s *Server) handleDeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if _, err := s.accounts.DeleteAccount(r.Context(), id); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf("Account %s deleted", id))
	}
}

// handleAccountQR serves the latest pairing code as a PNG image
func (s *Server) handleAccountQR() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		pairing, ok := s.accounts.PairingCode(id)
		if !ok {
			httputil.WriteError(w, r, apperrors.NewNotFoundError("pairing code", id))
			return
		}
		png, err := pairing.PNG(constants.DefaultQRCodeSizePx)
		if err != nil {
			httputil.WriteError(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to render pairing code"))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

func (s *Server) handleAccountGroups() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		groups, err := s.groups.List(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("list groups", err))
			return
		}
		if groups == nil {
			groups = []*models.Group{}
		}
		httputil.WriteData(w, http.StatusOK, groups)
	}
}

var _ AccountManager = (*service.Supervisor)(nil)
