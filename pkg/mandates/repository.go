// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package mandates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moov-io/base"
	"github.com/moov-io/sepagate/pkg/database"
	"github.com/moov-io/sepagate/pkg/id"
	"github.com/moov-io/sepagate/pkg/model"
	"github.com/moov-io/sepagate/pkg/sequences"

	"github.com/go-kit/kit/log"
)

type Repository interface {
	CreateMandate(m *model.Mandate) error
	UpdateMandate(m *model.Mandate) error
	GetMandate(mandateID id.Mandate) (*model.Mandate, error)
	ListPartyMandates(partyID id.Party) ([]*model.Mandate, error)

	// AssignIdentification gives m an identification from the mandate sequence
	// when it has none and a sequence is configured.
	AssignIdentification(m *model.Mandate) error

	// ConsumeFirstUse marks the mandate's first collection as used. It returns
	// false when another run already did, and an eligibility error when the
	// mandate is no longer validated.
	ConsumeFirstUse(tx *sql.Tx, mandateID id.Mandate) (bool, error)

	// CancelFinal cancels a validated mandate after its final collection.
	CancelFinal(tx *sql.Tx, mandateID id.Mandate) error
}

// AccountNumbers loads a stored number with its parent account.
type AccountNumbers interface {
	GetAccountNumber(numberID id.AccountNumber) (*model.AccountNumber, error)
}

func NewRepo(logger log.Logger, db *sql.DB, numbers AccountNumbers) *SQLRepo {
	return &SQLRepo{db: db, logger: logger, numbers: numbers}
}

type SQLRepo struct {
	db      *sql.DB
	logger  log.Logger
	numbers AccountNumbers

	sequence    sequences.Generator
	sequenceKey string
}

// WithSequence draws identifications for mandates saved without one from key.
func (r *SQLRepo) WithSequence(gen sequences.Generator, key string) *SQLRepo {
	r.sequence = gen
	r.sequenceKey = key
	return r
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

// AssignIdentification normalizes blank identifications to absent and draws
// a new one when a mandate sequence is configured.
func (r *SQLRepo) AssignIdentification(m *model.Mandate) error {
	m.Identification = strings.TrimSpace(m.Identification)
	if m.Identification != "" || r.sequence == nil || r.sequenceKey == "" {
		return nil
	}
	ident, err := r.sequence.Next(context.Background(), r.sequenceKey)
	if err != nil {
		return fmt.Errorf("mandate=%s: identification from sequence %q: %v", m.ID, r.sequenceKey, err)
	}
	m.Identification = ident
	return nil
}

func (r *SQLRepo) CreateMandate(m *model.Mandate) error {
	if m == nil {
		return errors.New("nil Mandate")
	}
	if m.ID == "" {
		m.ID = id.Mandate(base.ID())
	}
	if m.State == "" {
		m.State = model.MandateDraft
	}
	if m.Scheme == "" {
		m.Scheme = model.CoreScheme
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := r.AssignIdentification(m); err != nil {
		return err
	}
	now := base.NewTime(time.Now())
	if m.Created.IsZero() {
		m.Created = now
	}
	m.Updated = now

	query := `insert into mandates (mandate_id, identification, party_id, company_id, account_number_id, type, scheme, state, signature_date, sequence_consumed, created_at, last_updated_at) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(m.ID, nullable(m.Identification), m.Party, m.Company, numberID(m.AccountNumber), m.Type, m.Scheme, m.State, m.SignatureDate, m.SequenceConsumed, m.Created.Time, m.Updated.Time)
	if err != nil {
		if database.UniqueViolation(err) {
			return fmt.Errorf("mandate=%s identification=%q: %w", m.ID, m.Identification, model.ErrDuplicateIdentification)
		}
		return fmt.Errorf("problem creating mandate=%s: %v", m.ID, err)
	}
	return nil
}

func (r *SQLRepo) UpdateMandate(m *model.Mandate) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := r.AssignIdentification(m); err != nil {
		return err
	}
	m.Updated = base.NewTime(time.Now())

	query := `update mandates set identification = ?, company_id = ?, account_number_id = ?, type = ?, scheme = ?, state = ?, signature_date = ?, last_updated_at = ? where mandate_id = ?;`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(nullable(m.Identification), m.Company, numberID(m.AccountNumber), m.Type, m.Scheme, m.State, m.SignatureDate, m.Updated.Time, m.ID)
	if err != nil {
		if database.UniqueViolation(err) {
			return fmt.Errorf("mandate=%s identification=%q: %w", m.ID, m.Identification, model.ErrDuplicateIdentification)
		}
		return fmt.Errorf("problem updating mandate=%s: %v", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("mandate=%s not found", m.ID)
	}
	return nil
}

var mandateColumns = `mandate_id, identification, party_id, company_id, account_number_id, type, scheme, state, signature_date, sequence_consumed, created_at, last_updated_at`

func (r *SQLRepo) GetMandate(mandateID id.Mandate) (*model.Mandate, error) {
	query := fmt.Sprintf(`select %s from mandates where mandate_id = ? limit 1;`, mandateColumns)
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	m, numberID, err := scanMandate(stmt.QueryRow(mandateID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("problem reading mandate=%s: %v", mandateID, err)
	}
	if err := r.hydrate(m, numberID); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *SQLRepo) ListPartyMandates(partyID id.Party) ([]*model.Mandate, error) {
	query := fmt.Sprintf(`select %s from mandates where party_id = ? order by created_at asc, mandate_id asc;`, mandateColumns)
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.Query(partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Mandate
	var numberIDs []id.AccountNumber
	for rows.Next() {
		m, numberID, err := scanMandate(rows)
		if err != nil {
			return nil, fmt.Errorf("problem reading mandates of party=%s: %v", partyID, err)
		}
		out = append(out, m)
		numberIDs = append(numberIDs, numberID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := r.hydrate(out[i], numberIDs[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLRepo) hydrate(m *model.Mandate, numberID id.AccountNumber) error {
	if numberID == "" || r.numbers == nil {
		return nil
	}
	n, err := r.numbers.GetAccountNumber(numberID)
	if err != nil {
		return fmt.Errorf("mandate=%s: account number=%s: %v", m.ID, numberID, err)
	}
	m.AccountNumber = n
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMandate(row scanner) (*model.Mandate, id.AccountNumber, error) {
	var m model.Mandate
	var ident, company, numberID sql.NullString
	var created, updated time.Time
	err := row.Scan(&m.ID, &ident, &m.Party, &company, &numberID, &m.Type, &m.Scheme, &m.State, &m.SignatureDate, &m.SequenceConsumed, &created, &updated)
	if err != nil {
		return nil, "", err
	}
	m.Identification = ident.String
	m.Company = id.Company(company.String)
	m.Created = base.NewTime(created)
	m.Updated = base.NewTime(updated)
	return &m, id.AccountNumber(numberID.String), nil
}

// ConsumeFirstUse runs two checked updates in tx. Both lock the mandate row,
// so a cancellation committed by another writer is seen before the
// collection is stored.
func (r *SQLRepo) ConsumeFirstUse(tx *sql.Tx, mandateID id.Mandate) (bool, error) {
	now := time.Now()

	query := `update mandates set sequence_consumed = ?, last_updated_at = ? where mandate_id = ? and state = ? and sequence_consumed = ?;`
	res, err := tx.Exec(query, true, now, mandateID, model.MandateValidated, false)
	if err != nil {
		return false, fmt.Errorf("problem consuming mandate=%s: %v", mandateID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 1 {
		return true, nil
	}

	// already consumed, or no longer collectable
	query = `update mandates set last_updated_at = ? where mandate_id = ? and state = ?;`
	res, err = tx.Exec(query, now, mandateID, model.MandateValidated)
	if err != nil {
		return false, fmt.Errorf("problem checking mandate=%s: %v", mandateID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return false, fmt.Errorf("mandate=%s is no longer %s: %w", mandateID, model.MandateValidated, model.ErrEligibility)
	}
	return false, nil
}

func (r *SQLRepo) CancelFinal(tx *sql.Tx, mandateID id.Mandate) error {
	query := `update mandates set state = ?, last_updated_at = ? where mandate_id = ? and state = ?;`
	res, err := tx.Exec(query, model.MandateCanceled, time.Now(), mandateID, model.MandateValidated)
	if err != nil {
		return fmt.Errorf("problem canceling mandate=%s: %v", mandateID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("mandate=%s is no longer %s: %w", mandateID, model.MandateValidated, model.ErrEligibility)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func numberID(n *model.AccountNumber) interface{} {
	if n == nil || n.ID == "" {
		return nil
	}
	return string(n.ID)
}
