package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/httputil"
	"whatsrelay/internal/models"
	"whatsrelay/internal/service"
	"whatsrelay/internal/validation"
)

type createRuleRequest struct {
	AccountID     string            `json:"accountId"`
	SourceID      string            `json:"sourceId"`
	DestinationID string            `json:"destinationId"`
	FilterType    models.FilterKind `json:"filterType"`
	FilterValue   string            `json:"filterValue"`
	IsActive      *bool             `json:"isActive"`
}

func ruleIDVar(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["ruleId"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("ruleId", raw, "must be a positive integer")
	}
	return id, nil
}

func (s *Server) handleCreateRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRuleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if strings.TrimSpace(req.AccountID) == "" || strings.TrimSpace(req.SourceID) == "" || strings.TrimSpace(req.DestinationID) == "" {
			httputil.WriteError(w, r, apperrors.NewValidationError("body", "", "accountId, sourceId and destinationId are required"))
			return
		}

		rule := &models.ForwardingRule{
			AccountID:     req.AccountID,
			SourceID:      req.SourceID,
			DestinationID: req.DestinationID,
			FilterType:    req.FilterType,
			FilterValue:   req.FilterValue,
			IsActive:      req.IsActive == nil || *req.IsActive,
		}
		if rule.FilterType == "" {
			rule.FilterType = models.FilterNone
		}
		if err := validation.ValidateRule(rule); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		account, err := s.store.GetAccount(r.Context(), rule.AccountID)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("get account", err))
			return
		}
		if account == nil {
			httputil.WriteError(w, r, apperrors.NewNotFoundError("account", rule.AccountID))
			return
		}

		if err := s.store.AddRule(r.Context(), rule); err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("add rule", err))
			return
		}

		s.logger.WithFields(logrus.Fields{
			service.LogFieldAccountID:     rule.AccountID,
			service.LogFieldRuleID:        rule.ID,
			service.LogFieldSourceID:      rule.SourceID,
			service.LogFieldDestinationID: rule.DestinationID,
			service.LogFieldFilterType:    string(rule.FilterType),
		}).Info("Forwarding rule created")
		httputil.WriteData(w, http.StatusCreated, rule)
	}
}

func (s *Server) handleListRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := accountIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		rules, err := s.store.ListRulesByAccount(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("list rules", err))
			return
		}
		if rules == nil {
			rules = []*models.ForwardingRule{}
		}
		httputil.WriteData(w, http.StatusOK, rules)
	}
}

func (s *Server) handleUpdateRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ruleIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		var update models.RuleUpdate
		if err := decodeJSON(w, r, &update); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		current, err := s.store.GetRule(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("get rule", err))
			return
		}
		if current == nil {
			httputil.WriteError(w, r, apperrors.NewNotFoundError("rule", strconv.FormatInt(id, 10)))
			return
		}
		if err := validation.ValidateRuleUpdate(update, current); err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		updated, err := s.store.UpdateRule(r.Context(), id, update)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("update rule", err))
			return
		}
		if updated == nil {
			httputil.WriteError(w, r, apperrors.NewNotFoundError("rule", strconv.FormatInt(id, 10)))
			return
		}

		s.logger.WithFields(logrus.Fields{
			service.LogFieldAccountID: updated.AccountID,
			service.LogFieldRuleID:    id,
		}).Info("Forwarding rule updated")
		httputil.WriteData(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteRule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ruleIDVar(r)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}

		deleted, err := s.store.DeleteRule(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, apperrors.NewDatabaseError("delete rule", err))
			return
		}
		if !deleted {
			httputil.WriteError(w, r, apperrors.NewNotFoundError("rule", strconv.FormatInt(id, 10)))
			return
		}

		s.logger.WithField(service.LogFieldRuleID, id).Info("Forwarding rule deleted")
		httputil.WriteMessage(w, http.StatusOK, fmt.Sprintf("Rule %d deleted", id))
	}
}
