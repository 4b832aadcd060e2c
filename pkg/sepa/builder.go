// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/util"

	"github.com/opentracing/opentracing-go"
)

// Request is one partition of payments turned into a single message.
type Request struct {
	Flavor        model.Flavor
	Kind          model.Kind
	Journal       *model.Journal
	Currency      string
	ExecutionDate time.Time

	Entries []Entry
}

// Entry is a payment with what was resolved for it before building.
type Entry struct {
	Payment *model.Payment

	// Account is the counterparty's account number.
	Account *model.AccountNumber

	// SequenceType is required for direct debits.
	SequenceType model.SequenceType
}

// Message is a rendered document with the figures of its group header.
type Message struct {
	Flavor               model.Flavor
	Kind                 model.Kind
	Identification       string
	NumberOfTransactions int
	ControlSum           model.Amount

	// EndToEndIDs holds the identification each payment got in the document.
	EndToEndIDs []string

	Document []byte
}

type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder stamping documents with the time from clock,
// or the current time when clock is nil.
func NewBuilder(clock func() time.Time) *Builder {
	if clock == nil {
		clock = time.Now
	}
	return &Builder{now: clock}
}

// Build renders req in its flavor. It doesn't store anything.
func (b *Builder) Build(ctx context.Context, req Request) (*Message, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "sepa-build")
	defer span.Finish()
	span.SetTag("flavor", req.Flavor.String())
	span.SetTag("transactions", len(req.Entries))

	flavor, err := Lookup(req.Flavor)
	if err != nil {
		return nil, err
	}
	if flavor.Kind() != req.Kind {
		return nil, fmt.Errorf("flavor=%s kind=%s: %w", req.Flavor, req.Kind, ErrFlavorKind)
	}
	if len(req.Entries) == 0 {
		return nil, errors.New("no payments to build a message from")
	}

	doc, err := b.document(req)
	if err != nil {
		return nil, err
	}
	bs, err := flavor.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %v", req.Flavor, err)
	}

	msg := &Message{
		Flavor:               req.Flavor,
		Kind:                 req.Kind,
		Identification:       doc.MessageID,
		NumberOfTransactions: doc.NumberOfTransactions,
		ControlSum:           doc.ControlSum,
		Document:             bs,
	}
	for _, info := range doc.PaymentInfos {
		for _, tx := range info.Transactions {
			msg.EndToEndIDs = append(msg.EndToEndIDs, tx.EndToEndID)
		}
	}
	return msg, nil
}

func (b *Builder) document(req Request) (*Document, error) {
	journal := req.Journal
	if journal == nil {
		return nil, fmt.Errorf("%w: missing journal", model.ErrConfiguration)
	}
	company := journal.Company
	if company == nil {
		return nil, fmt.Errorf("journal=%s: %w: missing company", journal.ID, model.ErrConfiguration)
	}
	own := journal.BankAccountNumber
	if own == nil || own.Type != model.IBAN || own.Compact() == "" {
		return nil, fmt.Errorf("journal=%s: %w", journal.ID, ErrCompanyAccount)
	}
	if req.Kind == model.Receivable && company.CreditorIdentifier == "" {
		return nil, fmt.Errorf("company=%s: %w", company.ID, ErrCreditorID)
	}

	companyName := Text(company.Name, MaxNameLength)
	if companyName == "" {
		return nil, fmt.Errorf("company=%s: %w: name %q has no SEPA characters", company.ID, model.ErrConfiguration, company.Name)
	}

	doc := &Document{
		MessageID:       messageID(req),
		CreationTime:    b.now().UTC(),
		InitiatingParty: companyName,
	}

	var (
		e2e    endToEndIDs
		blocks = make(map[string]*PaymentInfo)
		all    []model.Amount
	)
	for _, entry := range req.Entries {
		p := entry.Payment
		if err := checkAmount(p, req.Currency); err != nil {
			return nil, err
		}
		if entry.Account == nil {
			return nil, fmt.Errorf("payment=%s: %w: missing account number", p.ID, model.ErrEligibility)
		}

		tx := &Transaction{
			Payment:    p.ID,
			EndToEndID: e2e.next(p.ID.String()),
			Amount:     p.Amount,
			Account: Account{
				IBAN: entry.Account.Compact(),
				BIC:  entry.Account.BIC(),
			},
			Remittance: Text(util.Or(p.Description, p.ID.String()), MaxRemittanceLength),
		}
		if p.Party == nil {
			return nil, fmt.Errorf("payment=%s: %w: missing party", p.ID, model.ErrEligibility)
		}
		if tx.Name = Text(p.Party.Name, MaxNameLength); tx.Name == "" {
			return nil, fmt.Errorf("payment=%s party=%s: %w: name %q has no SEPA characters", p.ID, p.Party.ID, model.ErrEligibility, p.Party.Name)
		}

		var seq model.SequenceType
		var scheme model.Scheme
		if req.Kind == model.Receivable {
			if err := p.Mandate.Usable(); err != nil {
				return nil, fmt.Errorf("payment=%s: %w: %v", p.ID, ErrMandate, err)
			}
			if err := entry.SequenceType.Validate(); err != nil {
				return nil, fmt.Errorf("payment=%s: %v", p.ID, err)
			}
			seq, scheme = entry.SequenceType, p.Mandate.Scheme
			tx.MandateID = ID(p.Mandate.Identification)
			tx.MandateSignatureDate = p.Mandate.SignatureDate.UTC()
		}

		date := p.ExecutionDate()
		key := fmt.Sprintf("%s|%s|%s", date.Format(util.ISODateFormat), seq, scheme)
		info, ok := blocks[key]
		if !ok {
			info = &PaymentInfo{
				ID:              paymentInfoID(doc.MessageID, len(doc.PaymentInfos)),
				ExecutionDate:   date,
				SequenceType:    seq,
				LocalInstrument: scheme,
				CompanyName:     companyName,
				CompanyAccount: Account{
					IBAN: own.Compact(),
					BIC:  own.BIC(),
				},
			}
			if req.Kind == model.Receivable {
				info.CreditorSchemeID = ID(company.CreditorIdentifier)
			}
			blocks[key] = info
			doc.PaymentInfos = append(doc.PaymentInfos, info)
		}
		info.Transactions = append(info.Transactions, tx)
		all = append(all, p.Amount)
	}

	for _, info := range doc.PaymentInfos {
		amounts := make([]model.Amount, 0, len(info.Transactions))
		for _, tx := range info.Transactions {
			amounts = append(amounts, tx.Amount)
		}
		sum, err := model.SumAmounts(req.Currency, amounts...)
		if err != nil {
			return nil, err
		}
		info.NumberOfTransactions = len(info.Transactions)
		info.ControlSum = sum
	}

	sum, err := model.SumAmounts(req.Currency, all...)
	if err != nil {
		return nil, err
	}
	doc.NumberOfTransactions = len(all)
	doc.ControlSum = sum
	return doc, nil
}

func checkAmount(p *model.Payment, currency string) error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("payment=%s: %w: amount %s is not positive", p.ID, model.ErrEligibility, p.Amount.String())
	}
	if p.Amount.Currency() != currency {
		return fmt.Errorf("payment=%s amount=%s: %w", p.ID, p.Amount.String(), ErrCurrencyMismatch)
	}
	if !p.Amount.Exact() {
		return fmt.Errorf("payment=%s amount=%s: %w", p.ID, p.Amount.String(), ErrAmountPrecision)
	}
	return nil
}
