// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/sepa"
	"github.com/moov-io/sepagate/pkg/util"

	"github.com/shopspring/decimal"
)

var (
	ibanPattern     = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)
	bicPattern      = regexp.MustCompile(`^[A-Z]{6}[A-Z2-9][A-NP-Z0-9]([A-Z0-9]{3})?$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	idPattern       = regexp.MustCompile(`^[A-Za-z0-9/\-?:().,'+]+$`)
	textPattern     = regexp.MustCompile(`^[A-Za-z0-9/\-?:().,'+ ]*$`)
	amountPattern   = regexp.MustCompile(`^[0-9]{1,15}(\.[0-9]{1,2})?$`)

	sequenceTypes    = []string{"FRST", "RCUR", "FNAL", "OOFF"}

	// isoDateTimeFraction is an ISODateTime with fractional seconds and no offset.
	isoDateTimeFraction = "2006-01-02T15:04:05.999999999"
	localInstruments = []string{"CORE", "B2B"}
)

// flavorRules describes what differs between the schema versions.
type flavorRules struct {
	kind   model.Kind
	root   string
	bicTag string
}

var rules = map[model.Flavor]flavorRules{
	sepa.CreditTransfer03: {kind: model.Payable, root: "CstmrCdtTrfInitn", bicTag: "BIC"},
	sepa.CreditTransfer05: {kind: model.Payable, root: "CstmrCdtTrfInitn", bicTag: "BICFI"},
	sepa.DirectDebit02:    {kind: model.Receivable, root: "CstmrDrctDbtInitn", bicTag: "BIC"},
	sepa.DirectDebit04:    {kind: model.Receivable, root: "CstmrDrctDbtInitn", bicTag: "BICFI"},
}

// Structural checks what SEPA banks reject most often without needing the
// published schema files: required elements, transaction counts and control
// sums, identifier formats and the restricted character set.
type Structural struct{}

func NewStructural() *Structural {
	return &Structural{}
}

func (s *Structural) Validate(document []byte, flavor model.Flavor) Result {
	f, err := sepa.Lookup(flavor)
	if err != nil {
		return invalid(err.Error())
	}
	rule, ok := rules[flavor]
	if !ok {
		return invalid(fmt.Sprintf("no structural rules for flavor %s", flavor))
	}

	root, err := parse(document)
	if err != nil {
		return invalid(fmt.Sprintf("malformed XML: %v", err))
	}

	c := &checker{}
	if root.Name.Local != "Document" {
		c.fail("root element is %s, not Document", root.Name.Local)
	}
	if root.Name.Space != f.Namespace() {
		c.fail("namespace %q doesn't match %s", root.Name.Space, f.Namespace())
	}
	body := root.first(rule.root)
	if body == nil {
		c.fail("missing %s", rule.root)
		return c.result()
	}

	c.check(body, rule)
	return c.result()
}

type checker struct {
	errors base.ErrorList
}

func (c *checker) fail(format string, args ...interface{}) {
	c.errors.Add(fmt.Errorf(format, args...))
}

func (c *checker) result() Result {
	if c.errors.Empty() {
		return Result{Valid: true}
	}
	out := Result{Valid: false}
	for _, err := range c.errors {
		out.Diagnostics = append(out.Diagnostics, err.Error())
	}
	return out
}

// require returns the text at path and records a diagnostic when it's missing or empty.
func (c *checker) require(n *node, where, path string) string {
	v, ok := n.text(path)
	if !ok || v == "" {
		c.fail("%s: missing %s", where, path)
	}
	return v
}

func (c *checker) id(where, name, v string) {
	switch {
	case v == "":
		return
	case len(v) > sepa.MaxIDLength:
		c.fail("%s: %s %q longer than %d characters", where, name, v, sepa.MaxIDLength)
	case !idPattern.MatchString(v):
		c.fail("%s: %s %q has characters outside the SEPA set", where, name, v)
	case strings.HasPrefix(v, "/") || strings.HasSuffix(v, "/") || strings.Contains(v, "//"):
		c.fail("%s: %s %q has misplaced slashes", where, name, v)
	}
}

func (c *checker) text(where, name, v string, max int) {
	if len(v) > max {
		c.fail("%s: %s longer than %d characters", where, name, max)
	}
	if !textPattern.MatchString(v) {
		c.fail("%s: %s %q has characters outside the SEPA set", where, name, v)
	}
}

func (c *checker) oneOf(where, name, v string, options []string) {
	for i := range options {
		if options[i] == v {
			return
		}
	}
	c.fail("%s: %s %q is not one of %s", where, name, v, strings.Join(options, ", "))
}

func (c *checker) date(where, name, v string) {
	if v == "" {
		return
	}
	if _, err := time.Parse(util.ISODateFormat, v); err != nil {
		c.fail("%s: %s %q is not an ISO date", where, name, v)
	}
}

func (c *checker) account(n *node, where string) {
	iban := c.require(n, where, "Id/IBAN")
	if iban != "" && !ibanPattern.MatchString(iban) {
		c.fail("%s: IBAN %q is malformed", where, iban)
	}
}

func (c *checker) agent(n *node, where string, rule flavorRules) {
	if n == nil {
		c.fail("%s: missing", where)
		return
	}
	if bic, ok := n.text("FinInstnId/" + rule.bicTag); ok {
		if !bicPattern.MatchString(bic) {
			c.fail("%s: %s %q is malformed", where, rule.bicTag, bic)
		}
		return
	}
	if other, ok := n.text("FinInstnId/Othr/Id"); ok && other == sepa.NotProvided {
		return
	}
	c.fail("%s: missing FinInstnId/%s", where, rule.bicTag)
}

func (c *checker) amount(where, v string) (decimal.Decimal, bool) {
	if !amountPattern.MatchString(v) {
		c.fail("%s: amount %q is malformed", where, v)
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		c.fail("%s: amount %q must be positive", where, v)
		return decimal.Zero, false
	}
	return d, true
}

func (c *checker) totals(where string, n *node, count int, sum decimal.Decimal) {
	if v := c.require(n, where, "NbOfTxs"); v != "" {
		if nb, err := strconv.Atoi(v); err != nil || nb != count {
			c.fail("%s: NbOfTxs %s but %d transactions", where, v, count)
		}
	}
	if v := c.require(n, where, "CtrlSum"); v != "" {
		if d, ok := c.amount(where+" CtrlSum", v); ok && !d.Equal(sum) {
			c.fail("%s: CtrlSum %s but transactions sum to %s", where, v, sum.String())
		}
	}
}

func (c *checker) check(body *node, rule flavorRules) {
	debit := rule.kind == model.Receivable

	header := body.first("GrpHdr")
	if header == nil {
		c.fail("missing GrpHdr")
		return
	}
	c.id("GrpHdr", "MsgId", c.require(header, "GrpHdr", "MsgId"))
	if v := c.require(header, "GrpHdr", "CreDtTm"); v != "" {
		if util.FirstParsedTime(v, util.ISODateTimeFormat, time.RFC3339Nano, isoDateTimeFraction).IsZero() {
			c.fail("GrpHdr: CreDtTm %q is not an ISO date time", v)
		}
	}
	c.text("GrpHdr", "InitgPty/Nm", c.require(header, "GrpHdr", "InitgPty/Nm"), sepa.MaxNameLength)

	infos := body.all("PmtInf")
	if len(infos) == 0 {
		c.fail("no PmtInf blocks")
	}

	txTag, method, dateTag := "CdtTrfTxInf", "TRF", "ReqdExctnDt"
	companyTag, counterpartyTag := "Dbtr", "Cdtr"
	if debit {
		txTag, method, dateTag = "DrctDbtTxInf", "DD", "ReqdColltnDt"
		companyTag, counterpartyTag = "Cdtr", "Dbtr"
	}

	endToEnd := make(map[string]bool)
	paymentInfoIDs := make(map[string]bool)
	total := decimal.Zero
	count := 0

	for i, info := range infos {
		where := fmt.Sprintf("PmtInf[%d]", i)

		pmtID := c.require(info, where, "PmtInfId")
		c.id(where, "PmtInfId", pmtID)
		if paymentInfoIDs[pmtID] {
			c.fail("%s: PmtInfId %q is not unique", where, pmtID)
		}
		paymentInfoIDs[pmtID] = true

		if v := c.require(info, where, "PmtMtd"); v != "" && v != method {
			c.fail("%s: PmtMtd %q should be %s", where, v, method)
		}
		if v := c.require(info, where, "PmtTpInf/SvcLvl/Cd"); v != "" && v != "SEPA" {
			c.fail("%s: service level %q should be SEPA", where, v)
		}
		c.date(where, dateTag, c.require(info, where, dateTag))
		c.text(where, companyTag+"/Nm", c.require(info, where, companyTag+"/Nm"), sepa.MaxNameLength)
		if acct := info.first(companyTag + "Acct"); acct != nil {
			c.account(acct, where+" "+companyTag+"Acct")
		} else {
			c.fail("%s: missing %sAcct", where, companyTag)
		}
		c.agent(info.first(companyTag+"Agt"), where+" "+companyTag+"Agt", rule)
		if v, ok := info.text("ChrgBr"); ok && v != "SLEV" {
			c.fail("%s: ChrgBr %q should be SLEV", where, v)
		}

		if debit {
			c.oneOf(where, "LclInstrm", c.require(info, where, "PmtTpInf/LclInstrm/Cd"), localInstruments)
			c.oneOf(where, "SeqTp", c.require(info, where, "PmtTpInf/SeqTp"), sequenceTypes)
			c.id(where, "creditor identifier", c.require(info, where, "CdtrSchmeId/Id/PrvtId/Othr/Id"))
			if v := c.require(info, where, "CdtrSchmeId/Id/PrvtId/Othr/SchmeNm/Prtry"); v != "" && v != "SEPA" {
				c.fail("%s: creditor scheme %q should be SEPA", where, v)
			}
		}

		txns := info.all(txTag)
		if len(txns) == 0 {
			c.fail("%s: no %s", where, txTag)
		}
		sum := decimal.Zero
		for j, tx := range txns {
			where := fmt.Sprintf("%s %s[%d]", where, txTag, j)

			e2e := c.require(tx, where, "PmtId/EndToEndId")
			c.id(where, "EndToEndId", e2e)
			if endToEnd[e2e] {
				c.fail("%s: EndToEndId %q is not unique", where, e2e)
			}
			endToEnd[e2e] = true

			amountPath := "Amt/InstdAmt"
			if debit {
				amountPath = "InstdAmt"
			}
			if amt := tx.first(amountPath); amt == nil {
				c.fail("%s: missing %s", where, amountPath)
			} else {
				if ccy := amt.attr("Ccy"); !currencyPattern.MatchString(ccy) {
					c.fail("%s: currency %q is malformed", where, ccy)
				}
				if d, ok := c.amount(where, strings.TrimSpace(amt.Text)); ok {
					sum = sum.Add(d)
				}
			}

			c.text(where, counterpartyTag+"/Nm", c.require(tx, where, counterpartyTag+"/Nm"), sepa.MaxNameLength)
			if acct := tx.first(counterpartyTag + "Acct"); acct != nil {
				c.account(acct, where+" "+counterpartyTag+"Acct")
			} else {
				c.fail("%s: missing %sAcct", where, counterpartyTag)
			}
			c.agent(tx.first(counterpartyTag+"Agt"), where+" "+counterpartyTag+"Agt", rule)

			if v, ok := tx.text("RmtInf/Ustrd"); ok {
				c.text(where, "RmtInf/Ustrd", v, sepa.MaxRemittanceLength)
			}
			if debit {
				c.id(where, "MndtId", c.require(tx, where, "DrctDbtTx/MndtRltdInf/MndtId"))
				c.date(where, "DtOfSgntr", c.require(tx, where, "DrctDbtTx/MndtRltdInf/DtOfSgntr"))
			}
		}
		c.totals(where, info, len(txns), sum)

		total = total.Add(sum)
		count += len(txns)
	}
	c.totals("GrpHdr", header, count, total)
}
