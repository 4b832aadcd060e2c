// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/moov-io/sepagate/internal/sepatest"
	"github.com/moov-io/sepagate/pkg/accounts"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/sepa"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func entries(t *testing.T, seq model.SequenceType, payments ...*model.Payment) []sepa.Entry {
	t.Helper()

	var out []sepa.Entry
	for _, p := range payments {
		n, err := accounts.Resolve(p)
		require.NoError(t, err)
		e := sepa.Entry{Payment: p, Account: n}
		if p.Kind == model.Receivable {
			e.SequenceType = seq
		}
		out = append(out, e)
	}
	return out
}

func request(t *testing.T, flavor model.Flavor, kind model.Kind, amounts ...string) sepa.Request {
	t.Helper()

	company := sepatest.Company()
	journal := sepatest.Journal(company, sepa.CreditTransfer03, sepa.DirectDebit02)
	party := sepatest.Party("Party")
	mandate := sepatest.Mandate(party, "MANDATE")

	var payments []*model.Payment
	for _, amt := range amounts {
		payments = append(payments, sepatest.Payment(kind, journal, party, mandate, amt))
	}
	return sepa.Request{
		Flavor:        flavor,
		Kind:          kind,
		Journal:       journal,
		Currency:      "EUR",
		ExecutionDate: sepatest.ExecutionDate,
		Entries:       entries(t, model.SequenceFirst, payments...),
	}
}

func TestBuilder__flavors(t *testing.T) {
	cases := []struct {
		flavor model.Flavor
		kind   model.Kind
		root   string
		bic    string
	}{
		{sepa.CreditTransfer03, model.Payable, "<CstmrCdtTrfInitn>", "<BIC>BICODEBBXXX</BIC>"},
		{sepa.CreditTransfer05, model.Payable, "<CstmrCdtTrfInitn>", "<BICFI>BICODEBBXXX</BICFI>"},
		{sepa.DirectDebit02, model.Receivable, "<CstmrDrctDbtInitn>", "<BIC>BICODEBBXXX</BIC>"},
		{sepa.DirectDebit04, model.Receivable, "<CstmrDrctDbtInitn>", "<BICFI>BICODEBBXXX</BICFI>"},
	}
	for _, tc := range cases {
		t.Run(string(tc.flavor), func(t *testing.T) {
			builder := sepa.NewBuilder(fixedClock(time.Date(2020, time.June, 1, 10, 30, 0, 0, time.UTC)))

			msg, err := builder.Build(context.Background(), request(t, tc.flavor, tc.kind, "1000.0"))
			require.NoError(t, err)

			doc := string(msg.Document)
			require.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
			require.Contains(t, doc, `xmlns="urn:iso:std:iso:20022:tech:xsd:`+string(tc.flavor)+`"`)
			require.Contains(t, doc, tc.root)
			require.Contains(t, doc, tc.bic)
			require.Contains(t, doc, "<CreDtTm>2020-06-01T10:30:00</CreDtTm>")
			require.Contains(t, doc, "<NbOfTxs>1</NbOfTxs>")
			require.Contains(t, doc, "<CtrlSum>1000.00</CtrlSum>")
			require.Contains(t, doc, `<InstdAmt Ccy="EUR">1000.00</InstdAmt>`)
			require.Contains(t, doc, "<Ustrd>PAYMENT</Ustrd>")
			require.Contains(t, doc, "<IBAN>"+sepatest.PartyIBAN+"</IBAN>")
			require.Contains(t, doc, "<IBAN>"+sepatest.CompanyIBAN+"</IBAN>")

			if tc.kind == model.Receivable {
				require.Contains(t, doc, "<MndtId>MANDATE</MndtId>")
				require.Contains(t, doc, "<DtOfSgntr>2020-03-01</DtOfSgntr>")
				require.Contains(t, doc, "<SeqTp>FRST</SeqTp>")
				require.Contains(t, doc, "<Cd>CORE</Cd>")
				require.Contains(t, doc, "<Id>"+sepatest.CreditorIdentifier+"</Id>")
				require.Contains(t, doc, "<ReqdColltnDt>2020-06-15</ReqdColltnDt>")
			} else {
				require.Contains(t, doc, "<ReqdExctnDt>2020-06-15</ReqdExctnDt>")
				require.NotContains(t, doc, "SeqTp")
			}

			require.Equal(t, 1, msg.NumberOfTransactions)
			require.Equal(t, "1000.00", msg.ControlSum.Format())
			require.Len(t, msg.Identification, sepa.MaxIDLength)
		})
	}
}

func TestBuilder__deterministic(t *testing.T) {
	req := request(t, sepa.DirectDebit04, model.Receivable, "10.00", "20.50", "0.01")

	first, err := sepa.NewBuilder(fixedClock(time.Date(2020, time.June, 1, 10, 0, 0, 0, time.UTC))).Build(context.Background(), req)
	require.NoError(t, err)
	second, err := sepa.NewBuilder(fixedClock(time.Date(2020, time.June, 2, 11, 0, 0, 0, time.UTC))).Build(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, first.Identification, second.Identification)
	require.Equal(t, first.EndToEndIDs, second.EndToEndIDs)

	// only the creation timestamp differs
	creation := regexp.MustCompile(`<CreDtTm>[^<]*</CreDtTm>`)
	a := creation.ReplaceAll(first.Document, nil)
	b := creation.ReplaceAll(second.Document, nil)
	require.True(t, bytes.Equal(a, b))
	require.False(t, bytes.Equal(first.Document, second.Document))

	require.Equal(t, "30.51", first.ControlSum.Format())
	require.Equal(t, 3, first.NumberOfTransactions)
}

func TestBuilder__sequenceTypeBlocks(t *testing.T) {
	company := sepatest.Company()
	journal := sepatest.Journal(company, sepa.CreditTransfer03, sepa.DirectDebit02)

	fresh := sepatest.Party("Fresh")
	used := sepatest.Party("Used")
	freshMandate := sepatest.Mandate(fresh, "FRESH")
	usedMandate := sepatest.Mandate(used, "USED")
	usedMandate.SequenceConsumed = true

	p1 := sepatest.Payment(model.Receivable, journal, fresh, freshMandate, "1.00")
	p2 := sepatest.Payment(model.Receivable, journal, used, usedMandate, "2.00")
	p3 := sepatest.Payment(model.Receivable, journal, fresh, freshMandate, "3.00")

	req := sepa.Request{
		Flavor:        sepa.DirectDebit02,
		Kind:          model.Receivable,
		Journal:       journal,
		Currency:      "EUR",
		ExecutionDate: sepatest.ExecutionDate,
		Entries: []sepa.Entry{
			{Payment: p1, Account: freshMandate.AccountNumber, SequenceType: model.SequenceFirst},
			{Payment: p2, Account: usedMandate.AccountNumber, SequenceType: model.SequenceRecurring},
			{Payment: p3, Account: freshMandate.AccountNumber, SequenceType: model.SequenceFirst},
		},
	}
	msg, err := sepa.NewBuilder(nil).Build(context.Background(), req)
	require.NoError(t, err)

	doc := string(msg.Document)
	require.Equal(t, 2, strings.Count(doc, "<PmtInf>"))
	require.Less(t, strings.Index(doc, "<SeqTp>FRST</SeqTp>"), strings.Index(doc, "<SeqTp>RCUR</SeqTp>"))
	require.Contains(t, doc, "<CtrlSum>4.00</CtrlSum>")
	require.Contains(t, doc, "<CtrlSum>2.00</CtrlSum>")
	require.Contains(t, doc, "<CtrlSum>6.00</CtrlSum>")
	require.Contains(t, doc, "<PmtInfId>"+msg.Identification[:33]+"-1</PmtInfId>")
	require.Contains(t, doc, "<PmtInfId>"+msg.Identification[:33]+"-2</PmtInfId>")
}

func TestBuilder__missingBIC(t *testing.T) {
	req := request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Entries[0].Account.Account.Bank.BIC = ""

	msg, err := sepa.NewBuilder(nil).Build(context.Background(), req)
	require.NoError(t, err)
	require.Regexp(t, `<Othr>\s*<Id>NOTPROVIDED</Id>\s*</Othr>`, string(msg.Document))
}

func TestBuilder__errors(t *testing.T) {
	ctx := context.Background()
	builder := sepa.NewBuilder(nil)

	// flavor and kind don't match
	req := request(t, sepa.DirectDebit02, model.Payable, "5.00")
	_, err := builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrConfiguration))

	req = request(t, "pain.001.001.99", model.Payable, "5.00")
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrUnknownFlavor))

	// amounts finer than cents
	req = request(t, sepa.CreditTransfer03, model.Payable, "5.001")
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrAmountPrecision))
	require.True(t, errors.Is(err, model.ErrEligibility))
	require.Contains(t, err.Error(), string(req.Entries[0].Payment.ID))

	// another currency than the message's
	req = request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Currency = "USD"
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrCurrencyMismatch))

	// journal without a bank account
	req = request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Journal.BankAccountNumber = nil
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrCompanyAccount))

	// direct debits need the creditor identifier
	req = request(t, sepa.DirectDebit02, model.Receivable, "5.00")
	req.Journal.Company.CreditorIdentifier = ""
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrCreditorID))

	// and a validated mandate
	req = request(t, sepa.DirectDebit02, model.Receivable, "5.00")
	req.Entries[0].Payment.Mandate.State = model.MandateRequested
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, sepa.ErrMandate))

	req = request(t, sepa.DirectDebit02, model.Receivable, "5.00")
	req.Entries[0].Payment.Mandate = nil
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrEligibility))

	// names have to keep something once sanitized
	req = request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Entries[0].Payment.Party.Name = "张伟"
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrEligibility), "%v", err)
	require.Contains(t, err.Error(), string(req.Entries[0].Payment.Party.ID))

	req = request(t, sepa.DirectDebit02, model.Receivable, "5.00")
	req.Entries[0].Payment.Party.Name = " ** "
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrEligibility), "%v", err)

	req = request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Entries[0].Payment.Party = nil
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrEligibility), "%v", err)

	req = request(t, sepa.CreditTransfer03, model.Payable, "5.00")
	req.Journal.Company.Name = "@@@"
	_, err = builder.Build(ctx, req)
	require.True(t, errors.Is(err, model.ErrConfiguration), "%v", err)
}

func TestFlavors(t *testing.T) {
	flavors := sepa.Flavors()
	require.Len(t, flavors, 4)

	var names []string
	for _, f := range flavors {
		names = append(names, string(f.Name()))
		require.Equal(t, string(f.Name())+".xsd", f.SchemaFile())
	}
	require.Equal(t, []string{"pain.001.001.03", "pain.001.001.05", "pain.008.001.02", "pain.008.001.04"}, names)

	f, err := sepa.Lookup(sepa.DirectDebit04)
	require.NoError(t, err)
	require.Equal(t, model.Receivable, f.Kind())
	require.Equal(t, "urn:iso:std:iso:20022:tech:xsd:pain.008.001.04", f.Namespace())
}
