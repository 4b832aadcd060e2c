// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/util"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Elements shared by credit transfers and direct debits. Newer schema versions
// renamed BIC to BICFI, so both are present and only one is ever filled.

type xmlDocument struct {
	XMLName xml.Name `xml:"Document"`
	Xmlns   string   `xml:"xmlns,attr"`
	Xsi     string   `xml:"xmlns:xsi,attr"`

	CreditTransfer *xmlCreditTransfer `xml:"CstmrCdtTrfInitn,omitempty"`
	DirectDebit    *xmlDirectDebit    `xml:"CstmrDrctDbtInitn,omitempty"`
}

type xmlGroupHeader struct {
	MsgId    string  `xml:"MsgId"`
	CreDtTm  string  `xml:"CreDtTm"`
	NbOfTxs  int     `xml:"NbOfTxs"`
	CtrlSum  string  `xml:"CtrlSum"`
	InitgPty xmlName `xml:"InitgPty"`
}

type xmlName struct {
	Nm string `xml:"Nm"`
}

type xmlServiceLevel struct {
	Cd string `xml:"Cd"`
}

type xmlAccount struct {
	IBAN string `xml:"Id>IBAN"`
}

type xmlAgent struct {
	FinInstnId xmlFinInstnId `xml:"FinInstnId"`
}

type xmlFinInstnId struct {
	BIC   string    `xml:"BIC,omitempty"`
	BICFI string    `xml:"BICFI,omitempty"`
	Othr  *xmlOther `xml:"Othr,omitempty"`
}

type xmlOther struct {
	Id string `xml:"Id"`
}

type xmlAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type xmlRemittance struct {
	Ustrd string `xml:"Ustrd"`
}

func groupHeader(doc *Document) xmlGroupHeader {
	return xmlGroupHeader{
		MsgId:    doc.MessageID,
		CreDtTm:  doc.CreationTime.Format(util.ISODateTimeFormat),
		NbOfTxs:  doc.NumberOfTransactions,
		CtrlSum:  doc.ControlSum.Format(),
		InitgPty: xmlName{Nm: doc.InitiatingParty},
	}
}

func agent(bic string, bicfi bool) xmlAgent {
	switch {
	case bic == "":
		return xmlAgent{FinInstnId: xmlFinInstnId{Othr: &xmlOther{Id: NotProvided}}}
	case bicfi:
		return xmlAgent{FinInstnId: xmlFinInstnId{BICFI: bic}}
	default:
		return xmlAgent{FinInstnId: xmlFinInstnId{BIC: bic}}
	}
}

func amount(a model.Amount) xmlAmount {
	return xmlAmount{Ccy: a.Currency(), Value: a.Format()}
}

func isoDate(t time.Time) string {
	return t.Format(util.ISODateFormat)
}

func marshal(ns string, doc xmlDocument) ([]byte, error) {
	doc.Xmlns = ns
	doc.Xsi = xsiNamespace

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
