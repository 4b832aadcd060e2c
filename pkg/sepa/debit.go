// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package sepa

import (
	"github.com/moov-io/sepagate/pkg/model"
)

// directDebit renders pain.008 customer direct debit initiations.
type directDebit struct {
	name  model.Flavor
	bicfi bool
}

func (f *directDebit) Name() model.Flavor { return f.name }
func (f *directDebit) Kind() model.Kind   { return model.Receivable }
func (f *directDebit) Namespace() string  { return namespace(f.name) }
func (f *directDebit) SchemaFile() string { return schemaFile(f.name) }

type xmlDirectDebit struct {
	GrpHdr xmlGroupHeader          `xml:"GrpHdr"`
	PmtInf []xmlDirectDebitPayment `xml:"PmtInf"`
}

type xmlDirectDebitPayment struct {
	PmtInfId     string              `xml:"PmtInfId"`
	PmtMtd       string              `xml:"PmtMtd"`
	BtchBookg    bool                `xml:"BtchBookg"`
	NbOfTxs      int                 `xml:"NbOfTxs"`
	CtrlSum      string              `xml:"CtrlSum"`
	PmtTpInf     xmlDirectDebitType  `xml:"PmtTpInf"`
	ReqdColltnDt string              `xml:"ReqdColltnDt"`
	Cdtr         xmlName             `xml:"Cdtr"`
	CdtrAcct     xmlAccount          `xml:"CdtrAcct"`
	CdtrAgt      xmlAgent            `xml:"CdtrAgt"`
	ChrgBr       string              `xml:"ChrgBr"`
	CdtrSchmeId  xmlCreditorSchemeID `xml:"CdtrSchmeId"`
	DrctDbtTxInf []xmlDirectDebitTxn `xml:"DrctDbtTxInf"`
}

type xmlDirectDebitType struct {
	SvcLvl    xmlServiceLevel `xml:"SvcLvl"`
	LclInstrm string          `xml:"LclInstrm>Cd"`
	SeqTp     string          `xml:"SeqTp"`
}

type xmlCreditorSchemeID struct {
	Id     string `xml:"Id>PrvtId>Othr>Id"`
	SchmeNm string `xml:"Id>PrvtId>Othr>SchmeNm>Prtry"`
}

type xmlDirectDebitTxn struct {
	EndToEndId string        `xml:"PmtId>EndToEndId"`
	InstdAmt   xmlAmount     `xml:"InstdAmt"`
	MndtId     string        `xml:"DrctDbtTx>MndtRltdInf>MndtId"`
	DtOfSgntr  string        `xml:"DrctDbtTx>MndtRltdInf>DtOfSgntr"`
	DbtrAgt    xmlAgent      `xml:"DbtrAgt"`
	Dbtr       xmlName       `xml:"Dbtr"`
	DbtrAcct   xmlAccount    `xml:"DbtrAcct"`
	RmtInf     xmlRemittance `xml:"RmtInf"`
}

func (f *directDebit) Render(doc *Document) ([]byte, error) {
	body := &xmlDirectDebit{
		GrpHdr: groupHeader(doc),
	}
	for _, info := range doc.PaymentInfos {
		pmt := xmlDirectDebitPayment{
			PmtInfId:  info.ID,
			PmtMtd:    "DD",
			BtchBookg: true,
			NbOfTxs:   info.NumberOfTransactions,
			CtrlSum:   info.ControlSum.Format(),
			PmtTpInf: xmlDirectDebitType{
				SvcLvl:    xmlServiceLevel{Cd: "SEPA"},
				LclInstrm: string(info.LocalInstrument),
				SeqTp:     string(info.SequenceType),
			},
			ReqdColltnDt: isoDate(info.ExecutionDate),
			Cdtr:         xmlName{Nm: info.CompanyName},
			CdtrAcct:     xmlAccount{IBAN: info.CompanyAccount.IBAN},
			CdtrAgt:      agent(info.CompanyAccount.BIC, f.bicfi),
			ChrgBr:       "SLEV",
			CdtrSchmeId: xmlCreditorSchemeID{
				Id:      info.CreditorSchemeID,
				SchmeNm: "SEPA",
			},
		}
		for _, tx := range info.Transactions {
			pmt.DrctDbtTxInf = append(pmt.DrctDbtTxInf, xmlDirectDebitTxn{
				EndToEndId: tx.EndToEndID,
				InstdAmt:   amount(tx.Amount),
				MndtId:     tx.MandateID,
				DtOfSgntr:  isoDate(tx.MandateSignatureDate),
				DbtrAgt:    agent(tx.Account.BIC, f.bicfi),
				Dbtr:       xmlName{Nm: tx.Name},
				DbtrAcct:   xmlAccount{IBAN: tx.Account.IBAN},
				RmtInf:     xmlRemittance{Ustrd: tx.Remittance},
			})
		}
		body.PmtInf = append(body.PmtInf, pmt)
	}
	return marshal(f.Namespace(), xmlDocument{DirectDebit: body})
}
