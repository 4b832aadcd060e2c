// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package payments

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/accounts"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"

	"github.com/go-kit/kit/log"
)

type Repository interface {
	CreateJournal(journal *model.Journal) error
	GetJournal(journalID id.Journal) (*model.Journal, error)

	CreatePayment(payment *model.Payment) error

	// LoadPayments returns the payments hydrated into one object graph, ordered
	// by creation time and then ID. Missing IDs are an eligibility error.
	LoadPayments(paymentIDs []id.Payment) ([]*model.Payment, error)

	// ClaimPayments moves approved, unclaimed payments into group. Every payment
	// must be claimed or the call fails.
	ClaimPayments(tx *sql.Tx, groupID id.Group, payments []*model.Payment, processed time.Time) error

	CreateGroup(tx *sql.Tx, group *model.Group) error
	GetGroup(groupID id.Group) (*model.Group, error)

	CreateMessage(tx *sql.Tx, msg *model.Message) error
	GetMessage(messageID id.Message) (*model.Message, error)
}

// MasterData reads the companies, parties and account numbers payments refer to.
type MasterData interface {
	GetCompany(companyID id.Company) (*model.Company, error)
	GetParty(partyID id.Party) (*model.Party, error)
	GetAccountNumber(numberID id.AccountNumber) (*model.AccountNumber, error)
}

type Mandates interface {
	GetMandate(mandateID id.Mandate) (*model.Mandate, error)
}

func NewRepo(logger log.Logger, db *sql.DB, master MasterData, mandates Mandates) *SQLRepo {
	return &SQLRepo{
		db:       db,
		logger:   logger,
		master:   master,
		mandates: mandates,
	}
}

type SQLRepo struct {
	db     *sql.DB
	logger log.Logger

	master   MasterData
	mandates Mandates
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) CreateJournal(journal *model.Journal) error {
	if err := journal.Validate(); err != nil {
		return err
	}
	if journal.ID == "" {
		journal.ID = id.Journal(base.ID())
	}
	query := `insert into payment_journals (journal_id, name, company_id, currency, process_method, account_number_id, payable_flavor, receivable_flavor) values (?, ?, ?, ?, ?, ?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(journal.ID, journal.Name, companyID(journal.Company), journal.Currency, journal.ProcessMethod, numberID(journal.BankAccountNumber), nullable(string(journal.PayableFlavor)), nullable(string(journal.ReceivableFlavor)))
	if err != nil {
		return fmt.Errorf("problem creating journal=%s: %v", journal.ID, err)
	}
	return nil
}

func (r *SQLRepo) GetJournal(journalID id.Journal) (*model.Journal, error) {
	query := `select journal_id, name, company_id, currency, process_method, account_number_id, payable_flavor, receivable_flavor from payment_journals where journal_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var journal model.Journal
	var name, company, number, payable, receivable sql.NullString
	err = stmt.QueryRow(journalID).Scan(&journal.ID, &name, &company, &journal.Currency, &journal.ProcessMethod, &number, &payable, &receivable)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading journal=%s: %v", journalID, err)
	}
	journal.Name = name.String
	journal.PayableFlavor = model.Flavor(payable.String)
	journal.ReceivableFlavor = model.Flavor(receivable.String)

	if company.String != "" {
		journal.Company, err = r.master.GetCompany(id.Company(company.String))
		if err != nil {
			return nil, fmt.Errorf("journal=%s: %v", journalID, err)
		}
	}
	if number.String != "" {
		journal.BankAccountNumber, err = r.master.GetAccountNumber(id.AccountNumber(number.String))
		if err != nil {
			return nil, fmt.Errorf("journal=%s: %v", journalID, err)
		}
	}
	return &journal, nil
}

func (r *SQLRepo) CreatePayment(p *model.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = id.Payment(base.ID())
	}
	if p.Created.IsZero() {
		p.Created = base.NewTime(time.Now())
	}
	if p.Company == nil && p.Journal != nil {
		p.Company = p.Journal.Company
	}

	var mandateID interface{}
	if p.Mandate != nil {
		mandateID = string(p.Mandate.ID)
	}

	query := `insert into payments (payment_id, company_id, party_id, journal_id, kind, amount_currency, amount_value, state, description, execution_date, mandate_id, account_number_id, created_at) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(p.ID, companyID(p.Company), p.Party.ID, p.Journal.ID, p.Kind, p.Amount.Currency(), p.Amount.Decimal().String(), p.State, p.Description, p.ExecutionDate(), mandateID, numberID(p.AccountNumber), p.Created.Time)
	if err != nil {
		return fmt.Errorf("problem creating payment=%s: %v", p.ID, err)
	}
	return nil
}

var paymentColumns = `payment_id, company_id, party_id, journal_id, kind, amount_currency, amount_value, state, description, execution_date, mandate_id, account_number_id, sequence_type, group_id, processed_at, created_at`

type paymentRefs struct {
	company id.Company
	party   id.Party
	journal id.Journal
	mandate id.Mandate
	number  id.AccountNumber
}

func (r *SQLRepo) LoadPayments(paymentIDs []id.Payment) ([]*model.Payment, error) {
	if len(paymentIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(paymentIDs))
	for i := range paymentIDs {
		args[i] = paymentIDs[i]
	}
	query := fmt.Sprintf(`select %s from payments where payment_id in (?%s) order by created_at asc, payment_id asc;`, paymentColumns, strings.Repeat(", ?", len(paymentIDs)-1))
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	var refs []paymentRefs
	for rows.Next() {
		p, ref, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("problem reading payments: %v", err)
		}
		out = append(out, p)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	found := make(map[id.Payment]bool, len(out))
	for i := range out {
		found[out[i].ID] = true
	}
	for i := range paymentIDs {
		if !found[paymentIDs[i]] {
			return nil, fmt.Errorf("payment=%s not found: %w", paymentIDs[i], model.ErrEligibility)
		}
	}

	h := newHydrator(r)
	for i := range out {
		if err := h.payment(out[i], refs[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanPayment(row interface{ Scan(...interface{}) error }) (*model.Payment, paymentRefs, error) {
	var p model.Payment
	var ref paymentRefs
	var company, mandate, number, description, sequenceType, group sql.NullString
	var symbol, value string
	var processed sql.NullTime
	var created time.Time

	err := row.Scan(&p.ID, &company, &ref.party, &ref.journal, &p.Kind, &symbol, &value, &p.State, &description, &p.Date, &mandate, &number, &sequenceType, &group, &processed, &created)
	if err != nil {
		return nil, ref, err
	}
	amt, err := model.NewAmount(symbol, value)
	if err != nil {
		return nil, ref, fmt.Errorf("payment=%s amount: %v", p.ID, err)
	}
	p.Amount = *amt
	p.Description = description.String
	p.SequenceType = model.SequenceType(sequenceType.String)
	p.Group = id.Group(group.String)
	if processed.Valid {
		t := processed.Time
		p.Processed = &t
	}
	p.Created = base.NewTime(created)

	ref.company = id.Company(company.String)
	ref.mandate = id.Mandate(mandate.String)
	ref.number = id.AccountNumber(number.String)
	return &p, ref, nil
}

// hydrator loads every referenced record once so payments sharing a party,
// journal or mandate share the same pointer.
type hydrator struct {
	repo *SQLRepo

	companies map[id.Company]*model.Company
	parties   map[id.Party]*model.Party
	journals  map[id.Journal]*model.Journal
	mandates  map[id.Mandate]*model.Mandate
}

func newHydrator(r *SQLRepo) *hydrator {
	return &hydrator{
		repo:      r,
		companies: make(map[id.Company]*model.Company),
		parties:   make(map[id.Party]*model.Party),
		journals:  make(map[id.Journal]*model.Journal),
		mandates:  make(map[id.Mandate]*model.Mandate),
	}
}

func (h *hydrator) payment(p *model.Payment, ref paymentRefs) error {
	var err error
	if p.Party, err = h.party(ref.party); err != nil {
		return fmt.Errorf("payment=%s: %v", p.ID, err)
	}
	if p.Journal, err = h.journal(ref.journal); err != nil {
		return fmt.Errorf("payment=%s: %v", p.ID, err)
	}
	if ref.company != "" {
		if p.Company, err = h.company(ref.company); err != nil {
			return fmt.Errorf("payment=%s: %v", p.ID, err)
		}
	} else {
		p.Company = p.Journal.Company
	}
	if ref.mandate != "" {
		if p.Mandate, err = h.mandate(ref.mandate, p.Party); err != nil {
			return fmt.Errorf("payment=%s: %v", p.ID, err)
		}
	}
	if ref.number != "" {
		if p.AccountNumber = accounts.FindPartyNumber(p.Party, ref.number); p.AccountNumber == nil {
			if p.AccountNumber, err = h.repo.master.GetAccountNumber(ref.number); err != nil {
				return fmt.Errorf("payment=%s: %v", p.ID, err)
			}
		}
	}
	return nil
}

func (h *hydrator) company(companyID id.Company) (*model.Company, error) {
	if c, ok := h.companies[companyID]; ok {
		return c, nil
	}
	c, err := h.repo.master.GetCompany(companyID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("company=%s not found", companyID)
	}
	h.companies[companyID] = c
	return c, nil
}

func (h *hydrator) party(partyID id.Party) (*model.Party, error) {
	if p, ok := h.parties[partyID]; ok {
		return p, nil
	}
	p, err := h.repo.master.GetParty(partyID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("party=%s not found", partyID)
	}
	h.parties[partyID] = p
	return p, nil
}

func (h *hydrator) journal(journalID id.Journal) (*model.Journal, error) {
	if j, ok := h.journals[journalID]; ok {
		return j, nil
	}
	j, err := h.repo.GetJournal(journalID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("journal=%s not found", journalID)
	}
	if j.Company != nil {
		if c, ok := h.companies[j.Company.ID]; ok {
			j.Company = c
		} else {
			h.companies[j.Company.ID] = j.Company
		}
	}
	h.journals[journalID] = j
	return j, nil
}

// mandate loads the mandate and rebinds its account number to the instance
// owned by party, keeping one object per stored number.
func (h *hydrator) mandate(mandateID id.Mandate, party *model.Party) (*model.Mandate, error) {
	if m, ok := h.mandates[mandateID]; ok {
		return m, nil
	}
	m, err := h.repo.mandates.GetMandate(mandateID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("mandate=%s not found", mandateID)
	}
	if m.AccountNumber != nil {
		if n := accounts.FindPartyNumber(party, m.AccountNumber.ID); n != nil {
			m.AccountNumber = n
		}
	}
	h.mandates[mandateID] = m
	return m, nil
}

func (r *SQLRepo) ClaimPayments(tx *sql.Tx, groupID id.Group, payments []*model.Payment, processed time.Time) error {
	query := `update payments set group_id = ?, state = ?, sequence_type = ?, processed_at = ? where payment_id = ? and group_id is null and state = ?;`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range payments {
		res, err := stmt.Exec(groupID, model.PaymentProcessing, nullable(string(p.SequenceType)), processed, p.ID, model.PaymentApproved)
		if err != nil {
			return fmt.Errorf("problem claiming payment=%s: %v", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("payment=%s is already claimed or no longer %s: %w", p.ID, model.PaymentApproved, model.ErrEligibility)
		}
		p.Group = groupID
		p.State = model.PaymentProcessing
		p.Processed = &processed
	}
	return nil
}

func (r *SQLRepo) CreateGroup(tx *sql.Tx, group *model.Group) error {
	if group == nil {
		return errors.New("nil Group")
	}
	if group.ID == "" {
		group.ID = id.Group(base.ID())
	}
	if group.Created.IsZero() {
		group.Created = base.NewTime(time.Now())
	}
	query := `insert into payment_groups (group_id, company_id, created_at) values (?, ?, ?);`
	if _, err := tx.Exec(query, group.ID, nullable(string(group.Company)), group.Created.Time); err != nil {
		return fmt.Errorf("problem creating group=%s: %v", group.ID, err)
	}
	return nil
}

func (r *SQLRepo) GetGroup(groupID id.Group) (*model.Group, error) {
	query := `select group_id, company_id, created_at from payment_groups where group_id = ? limit 1;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var group model.Group
	var company sql.NullString
	var created time.Time
	if err := stmt.QueryRow(groupID).Scan(&group.ID, &company, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading group=%s: %v", groupID, err)
	}
	group.Company = id.Company(company.String)
	group.Created = base.NewTime(created)

	if group.Payments, err = r.groupPayments(groupID); err != nil {
		return nil, err
	}
	if group.Messages, err = r.groupMessages(groupID); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *SQLRepo) groupPayments(groupID id.Group) ([]id.Payment, error) {
	query := `select payment_id from payments where group_id = ? order by created_at asc, payment_id asc;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.Payment
	for rows.Next() {
		var paymentID id.Payment
		if err := rows.Scan(&paymentID); err != nil {
			return nil, fmt.Errorf("problem reading payments of group=%s: %v", groupID, err)
		}
		out = append(out, paymentID)
	}
	return out, rows.Err()
}

var messageColumns = `message_id, group_id, flavor, kind, journal_id, currency, execution_date, message_identification, number_of_transactions, control_sum, document, created_at`

func (r *SQLRepo) groupMessages(groupID id.Group) ([]*model.Message, error) {
	query := fmt.Sprintf(`select %s from messages where group_id = ? order by created_at asc, message_id asc;`, messageColumns)
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("problem reading messages of group=%s: %v", groupID, err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (r *SQLRepo) CreateMessage(tx *sql.Tx, msg *model.Message) error {
	if msg == nil {
		return errors.New("nil Message")
	}
	if msg.ID == "" {
		msg.ID = id.Message(base.ID())
	}
	if msg.Created.IsZero() {
		msg.Created = base.NewTime(time.Now())
	}
	query := fmt.Sprintf(`insert into messages (%s) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`, messageColumns)
	_, err := tx.Exec(query, msg.ID, msg.Group, msg.Flavor, msg.Kind, msg.Journal, msg.Currency, msg.ExecutionDate, msg.Identification, msg.NumberOfTransactions, msg.ControlSum.Format(), msg.Document, msg.Created.Time)
	if err != nil {
		return fmt.Errorf("problem creating message=%s identification=%s: %v", msg.ID, msg.Identification, err)
	}
	return nil
}

func (r *SQLRepo) GetMessage(messageID id.Message) (*model.Message, error) {
	query := fmt.Sprintf(`select %s from messages where message_id = ? limit 1;`, messageColumns)
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	msg, err := scanMessage(stmt.QueryRow(messageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading message=%s: %v", messageID, err)
	}
	return msg, nil
}

func scanMessage(row interface{ Scan(...interface{}) error }) (*model.Message, error) {
	var msg model.Message
	var controlSum string
	var created time.Time
	err := row.Scan(&msg.ID, &msg.Group, &msg.Flavor, &msg.Kind, &msg.Journal, &msg.Currency, &msg.ExecutionDate, &msg.Identification, &msg.NumberOfTransactions, &controlSum, &msg.Document, &created)
	if err != nil {
		return nil, err
	}
	amt, err := model.NewAmount(msg.Currency, controlSum)
	if err != nil {
		return nil, fmt.Errorf("message=%s control sum: %v", msg.ID, err)
	}
	msg.ControlSum = *amt
	msg.Created = base.NewTime(created)
	return &msg, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func companyID(c *model.Company) interface{} {
	if c == nil || c.ID == "" {
		return nil
	}
	return string(c.ID)
}

func numberID(n *model.AccountNumber) interface{} {
	if n == nil || n.ID == "" {
		return nil
	}
	return string(n.ID)
}
