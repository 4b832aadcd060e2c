// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/x/route"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

type Router struct {
	logger    log.Logger
	repo      Repository
	processor *Processor
}

func NewRouter(logger log.Logger, repo Repository, processor *Processor) *Router {
	return &Router{
		logger:    logger,
		repo:      repo,
		processor: processor,
	}
}

func (c *Router) RegisterRoutes(r *mux.Router) {
	r.Methods("POST").Path("/payments/process").HandlerFunc(c.processPayments())
	r.Methods("GET").Path("/groups/{groupID}").HandlerFunc(c.getGroup())
	r.Methods("GET").Path("/messages/{messageID}").HandlerFunc(c.getMessage())
}

// statusOf maps processing errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrDuplicateIdentification):
		return http.StatusConflict
	case errors.Is(err, model.ErrSchema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrEligibility), errors.Is(err, model.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (c *Router) processPayments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responder.Problem(err)
			return
		}

		group, err := c.processor.Process(responder.Context(), req)
		if err != nil {
			responder.Log("payments", err.Error())
			responder.ProblemStatus(err, statusOf(err))
			return
		}

		responder.Log("payments", "processed payments", "groupID", group.ID, "dryRun", req.DryRun)
		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(group)
		})
	}
}

func (c *Router) getGroup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		group, err := c.repo.GetGroup(id.Group(route.ReadPathID("groupID", r)))
		if err != nil {
			responder.Problem(err)
			return
		}
		if group == nil {
			responder.NotFound()
			return
		}

		responder.Respond(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(group)
		})
	}
}

func (c *Router) getMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responder := route.NewResponder(c.logger, w, r)
		if responder.Seen() {
			return
		}

		msg, err := c.repo.GetMessage(id.Message(route.ReadPathID("messageID", r)))
		if err != nil {
			responder.Problem(err)
			return
		}
		if msg == nil {
			responder.NotFound()
			return
		}
		responder.RespondXML([]byte(msg.Document))
	}
}
