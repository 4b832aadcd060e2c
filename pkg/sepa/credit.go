// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"github.com/moov-io/sepagate/pkg/model"
)

// creditTransfer renders pain.001 customer credit transfer initiations.
type creditTransfer struct {
	name  model.Flavor
	bicfi bool
}

func (f *creditTransfer) Name() model.Flavor { return f.name }
func (f *creditTransfer) Kind() model.Kind   { return model.Payable }
func (f *creditTransfer) Namespace() string  { return namespace(f.name) }
func (f *creditTransfer) SchemaFile() string { return schemaFile(f.name) }

type xmlCreditTransfer struct {
	GrpHdr xmlGroupHeader             `xml:"GrpHdr"`
	PmtInf []xmlCreditTransferPayment `xml:"PmtInf"`
}

type xmlCreditTransferPayment struct {
	PmtInfId    string                 `xml:"PmtInfId"`
	PmtMtd      string                 `xml:"PmtMtd"`
	BtchBookg   bool                   `xml:"BtchBookg"`
	NbOfTxs     int                    `xml:"NbOfTxs"`
	CtrlSum     string                 `xml:"CtrlSum"`
	PmtTpInf    xmlCreditTransferType  `xml:"PmtTpInf"`
	ReqdExctnDt string                 `xml:"ReqdExctnDt"`
	Dbtr        xmlName                `xml:"Dbtr"`
	DbtrAcct    xmlAccount             `xml:"DbtrAcct"`
	DbtrAgt     xmlAgent               `xml:"DbtrAgt"`
	ChrgBr      string                 `xml:"ChrgBr"`
	CdtTrfTxInf []xmlCreditTransferTxn `xml:"CdtTrfTxInf"`
}

type xmlCreditTransferType struct {
	SvcLvl xmlServiceLevel `xml:"SvcLvl"`
}

type xmlCreditTransferTxn struct {
	EndToEndId string        `xml:"PmtId>EndToEndId"`
	InstdAmt   xmlAmount     `xml:"Amt>InstdAmt"`
	CdtrAgt    xmlAgent      `xml:"CdtrAgt"`
	Cdtr       xmlName       `xml:"Cdtr"`
	CdtrAcct   xmlAccount    `xml:"CdtrAcct"`
	RmtInf     xmlRemittance `xml:"RmtInf"`
}

func (f *creditTransfer) Render(doc *Document) ([]byte, error) {
	body := &xmlCreditTransfer{
		GrpHdr: groupHeader(doc),
	}
	for _, info := range doc.PaymentInfos {
		pmt := xmlCreditTransferPayment{
			PmtInfId:  info.ID,
			PmtMtd:    "TRF",
			BtchBookg: true,
			NbOfTxs:   info.NumberOfTransactions,
			CtrlSum:   info.ControlSum.Format(),
			PmtTpInf: xmlCreditTransferType{
				SvcLvl: xmlServiceLevel{Cd: "SEPA"},
			},
			ReqdExctnDt: isoDate(info.ExecutionDate),
			Dbtr:        xmlName{Nm: info.CompanyName},
			DbtrAcct:    xmlAccount{IBAN: info.CompanyAccount.IBAN},
			DbtrAgt:     agent(info.CompanyAccount.BIC, f.bicfi),
			ChrgBr:      "SLEV",
		}
		for _, tx := range info.Transactions {
			pmt.CdtTrfTxInf = append(pmt.CdtTrfTxInf, xmlCreditTransferTxn{
				EndToEndId: tx.EndToEndID,
				InstdAmt:   amount(tx.Amount),
				CdtrAgt:    agent(tx.Account.BIC, f.bicfi),
				Cdtr:       xmlName{Nm: tx.Name},
				CdtrAcct:   xmlAccount{IBAN: tx.Account.IBAN},
				RmtInf:     xmlRemittance{Ustrd: tx.Remittance},
			})
		}
		body.PmtInf = append(body.PmtInf, pmt)
	}
	return marshal(f.Namespace(), xmlDocument{CreditTransfer: body})
}
