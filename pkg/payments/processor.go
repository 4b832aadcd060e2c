// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/accounts"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/mandates"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/pipeline"
	"github.com/moov-io/sepagate/pkg/sepa"
	"github.com/moov-io/sepagate/pkg/validation"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/opentracing/opentracing-go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	messagesGenerated = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "sepa_messages_generated",
		Help: "Counter of SEPA messages stored",
	}, []string{"flavor"})

	paymentsProcessed = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "sepa_payments_processed",
		Help: "Counter of payments claimed into generated messages",
	}, []string{"kind"})

	validationFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "sepa_validation_failures",
		Help: "Counter of rendered messages rejected by validation",
	}, []string{"flavor"})
)

type Request struct {
	PaymentIDs []id.Payment `json:"payments"`

	// FinalMandates are collected for the last time in this run: their
	// debits are FNAL and the mandates are canceled once stored.
	FinalMandates []id.Mandate `json:"finalMandates,omitempty"`

	// DryRun builds and validates the messages without storing anything.
	DryRun bool `json:"dryRun,omitempty"`
}

// MandateUpdates are the mandate changes written with the generated messages.
type MandateUpdates interface {
	ConsumeFirstUse(tx *sql.Tx, mandateID id.Mandate) (bool, error)
	CancelFinal(tx *sql.Tx, mandateID id.Mandate) error
}

type Processor struct {
	logger log.Logger
	db     *sql.DB

	repo      Repository
	mandates  MandateUpdates
	builder   *sepa.Builder
	validator validation.Validator
	publisher pipeline.Publisher

	now func() time.Time
}

func NewProcessor(logger log.Logger, db *sql.DB, repo Repository, mandates MandateUpdates, builder *sepa.Builder, validator validation.Validator) *Processor {
	if validator == nil {
		validator = validation.NewStructural()
	}
	return &Processor{
		logger:    logger,
		db:        db,
		repo:      repo,
		mandates:  mandates,
		builder:   builder,
		validator: validator,
		now:       time.Now,
	}
}

// WithPublisher announces every stored message on pub after commit.
func (p *Processor) WithPublisher(pub pipeline.Publisher) *Processor {
	p.publisher = pub
	return p
}

// generated is one validated message and the payments it holds.
type generated struct {
	partition *Partition
	message   *sepa.Message
}

// Process turns the approved payments in req into stored, validated SEPA
// messages. Either every message of the run is stored with its payments
// claimed, or nothing changes.
func (p *Processor) Process(ctx context.Context, req Request) (*model.Group, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "process-payments")
	defer span.Finish()
	span.SetTag("payments", len(req.PaymentIDs))
	span.SetTag("dryRun", req.DryRun)

	if len(req.PaymentIDs) == 0 {
		return nil, errors.New("no payments to process")
	}
	payments, err := p.repo.LoadPayments(req.PaymentIDs)
	if err != nil {
		return nil, err
	}
	partitions := Group(payments)
	if err := checkConfiguration(partitions); err != nil {
		return nil, err
	}
	if err := checkEligibility(payments); err != nil {
		return nil, err
	}

	final, err := finalMandates(payments, req.FinalMandates)
	if err != nil {
		return nil, err
	}

	var out []generated
	for _, part := range partitions {
		msg, err := p.build(ctx, part, final)
		if err != nil {
			return nil, err
		}
		out = append(out, generated{partition: part, message: msg})
	}

	group := &model.Group{
		ID:      id.Group(base.ID()),
		Created: base.NewTime(p.now()),
	}
	if len(payments) > 0 && payments[0].Company != nil {
		group.Company = payments[0].Company.ID
	}
	for _, g := range out {
		for _, pmt := range g.partition.Payments {
			group.Payments = append(group.Payments, pmt.ID)
		}
		group.Messages = append(group.Messages, &model.Message{
			ID:                   id.Message(base.ID()),
			Group:                group.ID,
			Flavor:               g.message.Flavor,
			Kind:                 g.message.Kind,
			Journal:              g.partition.Key.Journal,
			Currency:             g.partition.Key.Currency,
			ExecutionDate:        g.partition.Key.ExecutionDate,
			Identification:       g.message.Identification,
			NumberOfTransactions: g.message.NumberOfTransactions,
			ControlSum:           g.message.ControlSum,
			Document:             string(g.message.Document),
			Created:              group.Created,
		})
	}

	if req.DryRun {
		p.logger.Log("processor", "dry run", "payments", len(group.Payments), "messages", len(group.Messages))
		return group, nil
	}
	if len(group.Messages) == 0 {
		return nil, fmt.Errorf("%w: none of the payments belong to a SEPA journal", model.ErrEligibility)
	}

	if err := p.store(group, out, final); err != nil {
		return nil, err
	}
	p.logger.Log("processor", "stored group", "groupID", group.ID, "payments", len(group.Payments), "messages", len(group.Messages))

	for i, msg := range group.Messages {
		messagesGenerated.With("flavor", msg.Flavor.String()).Add(1)
		paymentsProcessed.With("kind", string(msg.Kind)).Add(float64(len(out[i].partition.Payments)))

		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, msg); err != nil {
				p.logger.Log("processor", fmt.Sprintf("problem publishing message=%s: %v", msg.ID, err), "groupID", group.ID)
			}
		}
	}
	return group, nil
}

// finalMandates indexes the mandates collected for the last time, refusing
// any that no receivable payment of the run is collected from.
func finalMandates(payments []*model.Payment, requested []id.Mandate) (map[id.Mandate]bool, error) {
	collected := make(map[id.Mandate]bool)
	for _, pmt := range payments {
		if pmt.Kind == model.Receivable && pmt.Mandate != nil {
			collected[pmt.Mandate.ID] = true
		}
	}
	final := make(map[id.Mandate]bool)
	var unknown []string
	for _, m := range requested {
		if !collected[m] {
			unknown = append(unknown, m.String())
			continue
		}
		final[m] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("final mandates=%s are not collected by any payment: %w", strings.Join(unknown, ","), model.ErrEligibility)
	}
	return final, nil
}

// checkConfiguration rejects runs whose journals can't produce a message
// before any payment is inspected.
func checkConfiguration(partitions []*Partition) error {
	for _, part := range partitions {
		if part.Key.Flavor == "" {
			return fmt.Errorf("journal=%s has no %s flavor: %w", part.Key.Journal, part.Key.Kind, model.ErrConfiguration)
		}
		f, err := sepa.Lookup(part.Key.Flavor)
		if err != nil {
			return fmt.Errorf("journal=%s: %w", part.Key.Journal, err)
		}
		if f.Kind() != part.Key.Kind {
			return fmt.Errorf("journal=%s flavor=%s kind=%s: %w", part.Key.Journal, part.Key.Flavor, part.Key.Kind, sepa.ErrFlavorKind)
		}
		own := part.Journal.BankAccountNumber
		if own == nil || own.Type != model.IBAN {
			return fmt.Errorf("journal=%s: %w", part.Key.Journal, sepa.ErrCompanyAccount)
		}
		if part.Key.Kind == model.Receivable && (part.Journal.Company == nil || part.Journal.Company.CreditorIdentifier == "") {
			return fmt.Errorf("journal=%s: %w", part.Key.Journal, sepa.ErrCreditorID)
		}
	}
	return nil
}

// checkEligibility reports every payment that can't be processed.
func checkEligibility(payments []*model.Payment) error {
	var el base.ErrorList
	for _, pmt := range payments {
		if pmt.State != model.PaymentApproved {
			el.Add(fmt.Errorf("payment=%s is %s, not %s: %w", pmt.ID, pmt.State, model.PaymentApproved, model.ErrEligibility))
			continue
		}
		if pmt.Group != "" {
			el.Add(fmt.Errorf("payment=%s already belongs to group=%s: %w", pmt.ID, pmt.Group, model.ErrEligibility))
			continue
		}
		if !pmt.Journal.IsSEPA() {
			continue
		}
		if pmt.Kind == model.Receivable {
			if err := pmt.Mandate.Usable(); err != nil {
				el.Add(fmt.Errorf("payment=%s: %v: %w", pmt.ID, err, sepa.ErrMandate))
				continue
			}
		}
		if _, err := accounts.Resolve(pmt); err != nil {
			el.Add(err)
		}
	}
	if el.Empty() {
		return nil
	}
	if len(el) == 1 {
		return el[0]
	}
	return fmt.Errorf("%w: %v", model.ErrEligibility, el)
}

func (p *Processor) build(ctx context.Context, part *Partition, final map[id.Mandate]bool) (*sepa.Message, error) {
	req := sepa.Request{
		Flavor:        part.Key.Flavor,
		Kind:          part.Key.Kind,
		Journal:       part.Journal,
		Currency:      part.Key.Currency,
		ExecutionDate: part.Key.ExecutionDate,
	}
	for _, pmt := range part.Payments {
		n, err := accounts.Resolve(pmt)
		if err != nil {
			return nil, err
		}
		entry := sepa.Entry{Payment: pmt, Account: n}
		if pmt.Kind == model.Receivable {
			entry.SequenceType = mandates.SequenceType(pmt.Mandate, final[pmt.Mandate.ID])
		}
		pmt.SequenceType = entry.SequenceType
		req.Entries = append(req.Entries, entry)
	}

	msg, err := p.builder.Build(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", part.Key, err)
	}
	if res := p.validator.Validate(msg.Document, msg.Flavor); !res.Valid {
		validationFailures.With("flavor", msg.Flavor.String()).Add(1)
		return nil, fmt.Errorf("%s message=%s: %w", part.Key, msg.Identification, res.Err())
	}
	return msg, nil
}

func (p *Processor) store(group *model.Group, out []generated, final map[id.Mandate]bool) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	if err := p.storeTx(tx, group, out, final); err != nil {
		return fmt.Errorf("processing group=%s: error=%w rollback=%v", group.ID, err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("processing group=%s: commit: %v", group.ID, err)
	}
	return nil
}

func (p *Processor) storeTx(tx *sql.Tx, group *model.Group, out []generated, final map[id.Mandate]bool) error {
	if err := p.repo.CreateGroup(tx, group); err != nil {
		return err
	}

	processed := p.now()
	consumed := make(map[id.Mandate]bool)
	canceled := make(map[id.Mandate]bool)
	for i, g := range out {
		if err := p.repo.ClaimPayments(tx, group.ID, g.partition.Payments, processed); err != nil {
			return err
		}
		for _, pmt := range g.partition.Payments {
			if pmt.Kind != model.Receivable || pmt.Mandate == nil {
				continue
			}
			m := pmt.Mandate
			if !consumed[m.ID] {
				ok, err := p.mandates.ConsumeFirstUse(tx, m.ID)
				if err != nil {
					return err
				}
				if !ok && pmt.SequenceType == model.SequenceFirst {
					return fmt.Errorf("mandate=%s first collection was already generated: %w", m.ID, model.ErrEligibility)
				}
				consumed[m.ID] = true
			}
			if final[m.ID] && m.Type == model.RecurrentMandate && !canceled[m.ID] {
				if err := p.mandates.CancelFinal(tx, m.ID); err != nil {
					return err
				}
				canceled[m.ID] = true
			}
		}
		if err := p.repo.CreateMessage(tx, group.Messages[i]); err != nil {
			return err
		}
	}
	for _, g := range out {
		for _, pmt := range g.partition.Payments {
			if pmt.Mandate == nil {
				continue
			}
			if consumed[pmt.Mandate.ID] {
				pmt.Mandate.SequenceConsumed = true
			}
			if canceled[pmt.Mandate.ID] {
				pmt.Mandate.State = model.MandateCanceled
			}
		}
	}
	return nil
}
