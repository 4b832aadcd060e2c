// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mandates

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/x/mask"
	"github.com/moov-io/sepagate/x/route"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

type Router struct {
	logger  log.Logger
	repo    Repository
	numbers AccountNumbers
}

func NewRouter(logger log.Logger, repo Repository, numbers AccountNumbers) *Router {
	return &Router{
		logger:  logger,
		repo:    repo,
		numbers: numbers,
	}
}

func (c *Router) RegisterRoutes(r *mux.Router) {
	r.Methods("POST").Path("/mandates").HandlerFunc(c.createMandate())
	r.Methods("GET").Path("/mandates/{mandateID}").HandlerFunc(c.getMandate())
	r.Methods("PUT").Path("/mandates/{mandateID}").HandlerFunc(c.updateMandate())
	r.Methods("GET").Path("/parties/{partyID}/mandates").HandlerFunc(c.getPartyMandates())

	r.Methods("PUT").Path("/mandates/{mandateID}/request").HandlerFunc(c.transition(model.MandateRequested))
	r.Methods("PUT").Path("/mandates/{mandateID}/validate").HandlerFunc(c.transition(model.MandateValidated))
	r.Methods("PUT").Path("/mandates/{mandateID}/cancel").HandlerFunc(c.transition(model.MandateCanceled))
}

func getMandateID(r *http.Request) id.Mandate {
	return id.Mandate(route.ReadPathID("mandateID", r))
}

// mandateRequest fields left out of the JSON body keep their stored values.
type mandateRequest struct {
	Identification *string           `json:"identification"`
	Party          id.Party          `json:"party"`
	Company        id.Company        `json:"company"`
	AccountNumber  id.AccountNumber  `json:"accountNumber"`
	Type           model.MandateType `json:"type"`
	Scheme         model.Scheme      `json:"scheme"`
	SignatureDate  *time.Time        `json:"signatureDate"`
}

func (c *Router) apply(req mandateRequest, m *model.Mandate) error {
	if req.Identification != nil {
		m.Identification = *req.Identification
	}
	if req.Company != "" {
		m.Company = req.Company
	}
	if req.Type != "" {
		m.Type = req.Type
	}
	if req.Scheme != "" {
		m.Scheme = req.Scheme
	}
	if req.SignatureDate != nil {
		m.SignatureDate = req.SignatureDate
	}
	if req.AccountNumber != "" {
		n, err := c.numbers.GetAccountNumber(req.AccountNumber)
		if err != nil {
			return err
		}
		if n == nil {
			return fmt.Errorf("account number=%s not found", req.AccountNumber)
		}
		m.AccountNumber = n
	}
	return nil
}

func (c *Router) problem(responder *route.Responder, err error) {
	responder.Log("mandates", err.Error())
	if errors.Is(err, model.ErrDuplicateIdentification) {
		responder.ProblemStatus(err, http.StatusConflict)
		return
	}
	responder.Problem(err)
}

func (c *Router) createMandate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		var req mandateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responder.Problem(err)
			return
		}

		m := &model.Mandate{
			Party: req.Party,
			State: model.MandateDraft,
		}
		if err := c.apply(req, m); err != nil {
			c.problem(responder, err)
			return
		}
		if err := c.repo.CreateMandate(m); err != nil {
			c.problem(responder, err)
			return
		}

		if m.AccountNumber != nil {
			responder.Log("mandates", "created mandate", "mandateID", m.ID, "party", m.Party, "account", mask.AccountNumber(m.AccountNumber.Number))
		} else {
			responder.Log("mandates", "created mandate", "mandateID", m.ID, "party", m.Party)
		}
		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(m)
		})
	}
}

func (c *Router) getMandate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		m, err := c.repo.GetMandate(getMandateID(r))
		if err != nil {
			c.problem(responder, err)
			return
		}
		if m == nil {
			responder.NotFound()
			return
		}

		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(m)
		})
	}
}

func (c *Router) updateMandate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		var req mandateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responder.Problem(err)
			return
		}

		m, err := c.repo.GetMandate(getMandateID(r))
		if err != nil {
			c.problem(responder, err)
			return
		}
		if m == nil {
			responder.NotFound()
			return
		}
		if m.State == model.MandateCanceled {
			c.problem(responder, fmt.Errorf("mandate=%s is canceled", m.ID))
			return
		}
		before := *m
		if err := c.apply(req, m); err != nil {
			c.problem(responder, err)
			return
		}
		if err := CheckUpdate(&before, m); err != nil {
			c.problem(responder, err)
			return
		}
		if err := c.repo.UpdateMandate(m); err != nil {
			c.problem(responder, err)
			return
		}

		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(m)
		})
	}
}

func (c *Router) getPartyMandates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		partyID := id.Party(route.ReadPathID("partyID", r))
		mandates, err := c.repo.ListPartyMandates(partyID)
		if err != nil {
			c.problem(responder, err)
			return
		}
		if mandates == nil {
			mandates = []*model.Mandate{}
		}

		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(mandates)
		})
	}
}

func (c *Router) transition(to model.MandateState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		m, err := c.repo.GetMandate(getMandateID(r))
		if err != nil {
			c.problem(responder, err)
			return
		}
		if m == nil {
			responder.NotFound()
			return
		}
		if to == model.MandateValidated {
			if err := c.repo.AssignIdentification(m); err != nil {
				c.problem(responder, err)
				return
			}
		}
		if err := Transition(m, to); err != nil {
			c.problem(responder, err)
			return
		}
		if err := c.repo.UpdateMandate(m); err != nil {
			c.problem(responder, err)
			return
		}

		responder.Log("mandates", fmt.Sprintf("mandate is now %s", to), "mandateID", m.ID)
		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(m)
		})
	}
}
