package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
	pkgpostgres "github.com/bibbank/loanservicing/pkg/postgres"
)

// LoanRepo implements port.LoanRepository. A loan is written as a whole:
// the loan row under optimistic locking, then its schedule, charges and
// transactions with their relations, mappings and charge payments.
type LoanRepo struct {
	pool *pgxpool.Pool
}

// NewLoanRepo creates a new PostgreSQL-backed loan repository.
func NewLoanRepo(pool *pgxpool.Pool) *LoanRepo {
	return &LoanRepo{pool: pool}
}

var _ port.LoanRepository = (*LoanRepo)(nil)

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

// Save persists the loan. The stored version must be one below the loan's
// version, otherwise port.ErrConcurrentModification is returned.
func (r *LoanRepo) Save(ctx context.Context, loan *model.Loan) error {
	return pkgpostgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if err := saveLoanRow(ctx, tx, loan); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		queueSchedule(batch, loan)
		queueCharges(batch, loan)
		if err := queueTransactions(batch, loan); err != nil {
			return err
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("save loan %s children: %w", loan.ID(), err)
			}
		}
		return results.Close()
	})
}

func saveLoanRow(ctx context.Context, q pkgpostgres.Querier, loan *model.Loan) error {
	terms, err := json.Marshal(newTermsRecord(loan.Terms()))
	if err != nil {
		return fmt.Errorf("marshal terms: %w", err)
	}

	const query = `
		INSERT INTO loans (
			id, tenant_id, borrower_id, currency, terms, disbursement_date,
			status, credit_balance, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			terms          = EXCLUDED.terms,
			status         = EXCLUDED.status,
			credit_balance = EXCLUDED.credit_balance,
			version        = EXCLUDED.version,
			updated_at     = EXCLUDED.updated_at
		WHERE loans.version = EXCLUDED.version - 1
	`
	tag, err := q.Exec(ctx, query,
		loan.ID(), loan.TenantID(), loan.BorrowerID(), loan.Currency().Code(), terms,
		loan.DisbursementDate(), loan.Status().String(), loan.CreditBalance().Amount(),
		loan.Version(), loan.CreatedAt(), loan.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("upsert loan row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save loan %s at version %d: %w", loan.ID(), loan.Version(), port.ErrConcurrentModification)
	}
	return nil
}

// queueSchedule replaces the stored schedule; replays renumber and drop
// installments so rows are not updated in place.
func queueSchedule(b *pgx.Batch, loan *model.Loan) {
	b.Queue(`DELETE FROM loan_installments WHERE loan_id = $1`, loan.ID())
	for _, inst := range loan.Schedule().Installments() {
		s := inst.Snapshot()
		b.Queue(`
			INSERT INTO loan_installments (
				loan_id, number, from_date, due_date,
				principal, principal_completed, principal_written_off,
				interest, interest_paid, interest_waived, interest_written_off,
				fee_charged, fee_paid, fee_waived, fee_written_off,
				penalty_charged, penalty_paid, penalty_waived, penalty_written_off,
				credited_principal, credited_interest, credited_fee, credited_penalty,
				down_payment, additional, re_aged, obligations_met, obligations_met_on
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
			loan.ID(), s.Number, s.FromDate, s.DueDate,
			s.Principal.Amount(), s.PrincipalCompleted.Amount(), s.PrincipalWrittenOff.Amount(),
			s.Interest.Amount(), s.InterestPaid.Amount(), s.InterestWaived.Amount(), s.InterestWrittenOff.Amount(),
			s.FeeCharged.Amount(), s.FeePaid.Amount(), s.FeeWaived.Amount(), s.FeeWrittenOff.Amount(),
			s.PenaltyCharged.Amount(), s.PenaltyPaid.Amount(), s.PenaltyWaived.Amount(), s.PenaltyWrittenOff.Amount(),
			s.CreditedPrincipal.Amount(), s.CreditedInterest.Amount(), s.CreditedFee.Amount(), s.CreditedPenalty.Amount(),
			s.DownPayment, s.Additional, s.ReAged, s.ObligationsMet, nullTime(s.ObligationsMetOn),
		)
	}
}

func queueCharges(b *pgx.Batch, loan *model.Loan) {
	for _, c := range loan.Charges() {
		s := c.Snapshot()
		b.Queue(`
			INSERT INTO loan_charges (
				id, loan_id, penalty, due_date, submitted_on, created_at,
				amount, paid, waived, due_at_disbursement, active
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (loan_id, id) DO UPDATE SET
				paid                = EXCLUDED.paid,
				waived              = EXCLUDED.waived,
				due_at_disbursement = EXCLUDED.due_at_disbursement,
				active              = EXCLUDED.active`,
			s.ID, loan.ID(), s.Penalty, nullTime(s.DueDate), s.SubmittedOn, s.CreatedAt,
			s.Amount.Amount(), s.Paid.Amount(), s.Waived.Amount(), s.DueAtDisbursement, s.Active,
		)
	}
}

// queueTransactions upserts every transaction and rewrites the derived rows
// hanging off them.
func queueTransactions(b *pgx.Batch, loan *model.Loan) error {
	b.Queue(`DELETE FROM loan_charge_payments WHERE loan_id = $1`, loan.ID())
	b.Queue(`DELETE FROM loan_transaction_mappings WHERE loan_id = $1`, loan.ID())
	b.Queue(`DELETE FROM loan_transaction_relations WHERE loan_id = $1`, loan.ID())

	for _, t := range loan.Transactions() {
		if t.ID() == "" {
			return fmt.Errorf("transaction %s on %s has no identity", t.Type(), t.Date().Format(time.DateOnly))
		}
		s := t.Snapshot()
		var reAge []byte
		if rec := newReAgeRecord(s.ReAge); rec != nil {
			raw, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal re-age parameter: %w", err)
			}
			reAge = raw
		}
		b.Queue(`
			INSERT INTO loan_transactions (
				id, loan_id, type, date, submitted_on, created_at, amount,
				principal, interest, fee, penalty, overpayment,
				reversed, superseded_by, charge_id, reage
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (id) DO UPDATE SET
				amount        = EXCLUDED.amount,
				principal     = EXCLUDED.principal,
				interest      = EXCLUDED.interest,
				fee           = EXCLUDED.fee,
				penalty       = EXCLUDED.penalty,
				overpayment   = EXCLUDED.overpayment,
				reversed      = EXCLUDED.reversed,
				superseded_by = EXCLUDED.superseded_by`,
			s.ID, loan.ID(), s.Type.String(), s.Date, s.SubmittedOn, s.CreatedAt, s.Amount.Amount(),
			s.Portions.Principal.Amount(), s.Portions.Interest.Amount(),
			s.Portions.Fee.Amount(), s.Portions.Penalty.Amount(), s.Overpayment.Amount(),
			s.Reversed, nullString(s.SupersededBy), nullString(s.ChargeID), reAge,
		)
	}

	// Child rows reference transactions, so they are queued once every
	// transaction row is in place.
	for _, t := range loan.Transactions() {
		for _, rel := range t.Relations() {
			toID := rel.TargetID()
			if toID == "" {
				continue
			}
			b.Queue(`
				INSERT INTO loan_transaction_relations (loan_id, from_id, to_id, relation_type)
				VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
				loan.ID(), t.ID(), toID, rel.Type.String(),
			)
		}
		for _, m := range t.Mappings() {
			p := m.Portions()
			b.Queue(`
				INSERT INTO loan_transaction_mappings (
					loan_id, transaction_id, installment_number, principal, interest, fee, penalty
				) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				loan.ID(), t.ID(), m.Installment().Number(),
				p.Principal.Amount(), p.Interest.Amount(), p.Fee.Amount(), p.Penalty.Amount(),
			)
		}
		for _, cp := range t.ChargesPaid() {
			b.Queue(`
				INSERT INTO loan_charge_payments (loan_id, transaction_id, charge_id, installment_number, amount)
				VALUES ($1,$2,$3,$4,$5)`,
				loan.ID(), t.ID(), cp.Charge.ID(), cp.InstallmentNumber, cp.Amount.Amount(),
			)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// FindByID
// ---------------------------------------------------------------------------

// FindByID loads a loan with its schedule, charges and full transaction
// history. It returns port.ErrLoanNotFound when no loan matches.
func (r *LoanRepo) FindByID(ctx context.Context, tenantID, id string) (*model.Loan, error) {
	const query = `
		SELECT id, tenant_id, borrower_id, currency, terms, disbursement_date,
		       status, credit_balance, version, created_at, updated_at
		FROM loans
		WHERE tenant_id = $1 AND id = $2
	`
	row, err := scanLoanRow(r.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loan %s: %w", id, port.ErrLoanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find loan: %w", err)
	}

	schedule, err := loadSchedule(ctx, r.pool, id, row.currency)
	if err != nil {
		return nil, err
	}
	charges, err := loadCharges(ctx, r.pool, id, row.currency)
	if err != nil {
		return nil, err
	}
	transactions, err := loadTransactions(ctx, r.pool, id, row.currency, schedule, charges)
	if err != nil {
		return nil, err
	}

	return model.ReconstructLoan(
		row.id, row.tenantID, row.borrowerID, row.currency, row.terms, row.disbursementDate,
		schedule, transactions, charges, row.status,
		money.New(row.creditBalance, row.currency),
		row.version, row.createdAt, row.updatedAt,
	), nil
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

// scannable is satisfied by both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

type loanRow struct {
	id, tenantID, borrowerID string
	currency                 money.Currency
	terms                    model.LoanTerms
	disbursementDate         time.Time
	status                   valueobject.LoanStatus
	creditBalance            decimal.Decimal
	version                  int
	createdAt, updatedAt     time.Time
}

func scanLoanRow(s scannable) (loanRow, error) {
	var (
		row                    loanRow
		currencyCode, statusTx string
		rawTerms               []byte
	)
	if err := s.Scan(
		&row.id, &row.tenantID, &row.borrowerID, &currencyCode, &rawTerms, &row.disbursementDate,
		&statusTx, &row.creditBalance, &row.version, &row.createdAt, &row.updatedAt,
	); err != nil {
		return loanRow{}, err
	}

	var err error
	if row.currency, err = money.NewCurrency(currencyCode); err != nil {
		return loanRow{}, fmt.Errorf("loan %s currency: %w", row.id, err)
	}
	if row.status, err = valueobject.NewLoanStatus(statusTx); err != nil {
		return loanRow{}, fmt.Errorf("loan %s status: %w", row.id, err)
	}
	var rec termsRecord
	if err := json.Unmarshal(rawTerms, &rec); err != nil {
		return loanRow{}, fmt.Errorf("loan %s terms: %w", row.id, err)
	}
	if row.terms, err = rec.toModel(); err != nil {
		return loanRow{}, fmt.Errorf("loan %s terms: %w", row.id, err)
	}
	return row, nil
}

func loadSchedule(ctx context.Context, q pkgpostgres.Querier, loanID string, cur money.Currency) (*model.Schedule, error) {
	rows, err := q.Query(ctx, `
		SELECT number, from_date, due_date,
		       principal, principal_completed, principal_written_off,
		       interest, interest_paid, interest_waived, interest_written_off,
		       fee_charged, fee_paid, fee_waived, fee_written_off,
		       penalty_charged, penalty_paid, penalty_waived, penalty_written_off,
		       credited_principal, credited_interest, credited_fee, credited_penalty,
		       down_payment, additional, re_aged, obligations_met, obligations_met_on
		FROM loan_installments
		WHERE loan_id = $1
		ORDER BY number`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	var installments []*model.Installment
	for rows.Next() {
		var (
			s        model.InstallmentSnapshot
			amounts  [19]decimal.Decimal
			metOnPtr *time.Time
		)
		dest := []any{&s.Number, &s.FromDate, &s.DueDate}
		for i := range amounts {
			dest = append(dest, &amounts[i])
		}
		dest = append(dest, &s.DownPayment, &s.Additional, &s.ReAged, &s.ObligationsMet, &metOnPtr)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}

		m := func(i int) money.Money { return money.New(amounts[i], cur) }
		s.Principal, s.PrincipalCompleted, s.PrincipalWrittenOff = m(0), m(1), m(2)
		s.Interest, s.InterestPaid, s.InterestWaived, s.InterestWrittenOff = m(3), m(4), m(5), m(6)
		s.FeeCharged, s.FeePaid, s.FeeWaived, s.FeeWrittenOff = m(7), m(8), m(9), m(10)
		s.PenaltyCharged, s.PenaltyPaid, s.PenaltyWaived, s.PenaltyWrittenOff = m(11), m(12), m(13), m(14)
		s.CreditedPrincipal, s.CreditedInterest, s.CreditedFee, s.CreditedPenalty = m(15), m(16), m(17), m(18)
		s.ObligationsMetOn = timeOrZero(metOnPtr)
		installments = append(installments, model.ReconstructInstallment(s))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	return model.NewSchedule(cur, installments...), nil
}

func loadCharges(ctx context.Context, q pkgpostgres.Querier, loanID string, cur money.Currency) ([]*model.Charge, error) {
	rows, err := q.Query(ctx, `
		SELECT id, penalty, due_date, submitted_on, created_at,
		       amount, paid, waived, due_at_disbursement, active
		FROM loan_charges
		WHERE loan_id = $1
		ORDER BY created_at, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query charges: %w", err)
	}
	defer rows.Close()

	var charges []*model.Charge
	for rows.Next() {
		var (
			s                    model.ChargeSnapshot
			dueDate              *time.Time
			amount, paid, waived decimal.Decimal
		)
		if err := rows.Scan(
			&s.ID, &s.Penalty, &dueDate, &s.SubmittedOn, &s.CreatedAt,
			&amount, &paid, &waived, &s.DueAtDisbursement, &s.Active,
		); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		s.DueDate = timeOrZero(dueDate)
		s.Amount, s.Paid, s.Waived = money.New(amount, cur), money.New(paid, cur), money.New(waived, cur)
		charges = append(charges, model.ReconstructCharge(s))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charges: %w", err)
	}
	return charges, nil
}

func loadTransactions(
	ctx context.Context,
	q pkgpostgres.Querier,
	loanID string,
	cur money.Currency,
	schedule *model.Schedule,
	charges []*model.Charge,
) ([]*model.Transaction, error) {
	rows, err := q.Query(ctx, `
		SELECT id, type, date, submitted_on, created_at, amount,
		       principal, interest, fee, penalty, overpayment,
		       reversed, superseded_by, charge_id, reage
		FROM loan_transactions
		WHERE loan_id = $1
		ORDER BY date, created_at, id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var (
		txns []*model.Transaction
		byID = map[string]*model.Transaction{}
	)
	for rows.Next() {
		t, err := scanTransaction(rows, cur)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
		byID[t.ID()] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	if err := loadRelations(ctx, q, loanID, byID); err != nil {
		return nil, err
	}
	if err := loadMappings(ctx, q, loanID, cur, byID, schedule); err != nil {
		return nil, err
	}
	if err := loadChargePayments(ctx, q, loanID, cur, byID, charges); err != nil {
		return nil, err
	}
	return txns, nil
}

func scanTransaction(s scannable, cur money.Currency) (*model.Transaction, error) {
	var (
		snap                                  model.TransactionSnapshot
		txType                                string
		amount, principal, interest, fee, pen decimal.Decimal
		overpayment                           decimal.Decimal
		supersededBy, chargeID                *string
		rawReAge                              []byte
	)
	if err := s.Scan(
		&snap.ID, &txType, &snap.Date, &snap.SubmittedOn, &snap.CreatedAt, &amount,
		&principal, &interest, &fee, &pen, &overpayment,
		&snap.Reversed, &supersededBy, &chargeID, &rawReAge,
	); err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if snap.Type, err = valueobject.NewTransactionType(txType); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", snap.ID, err)
	}
	snap.Amount = money.New(amount, cur)
	snap.Portions = model.Portions{
		Principal: money.New(principal, cur),
		Interest:  money.New(interest, cur),
		Fee:       money.New(fee, cur),
		Penalty:   money.New(pen, cur),
	}
	snap.Overpayment = money.New(overpayment, cur)
	snap.SupersededBy = stringOrEmpty(supersededBy)
	snap.ChargeID = stringOrEmpty(chargeID)

	if len(rawReAge) > 0 {
		var rec reAgeRecord
		if err := json.Unmarshal(rawReAge, &rec); err != nil {
			return nil, fmt.Errorf("transaction %s re-age parameter: %w", snap.ID, err)
		}
		if snap.ReAge, err = rec.toModel(); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", snap.ID, err)
		}
	}
	return model.ReconstructTransaction(snap), nil
}

func loadRelations(ctx context.Context, q pkgpostgres.Querier, loanID string, byID map[string]*model.Transaction) error {
	rows, err := q.Query(ctx, `
		SELECT from_id, to_id, relation_type
		FROM loan_transaction_relations
		WHERE loan_id = $1
		ORDER BY from_id, relation_type, to_id`, loanID)
	if err != nil {
		return fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fromID, toID, relType string
		if err := rows.Scan(&fromID, &toID, &relType); err != nil {
			return fmt.Errorf("scan relation: %w", err)
		}
		from, ok := byID[fromID]
		if !ok {
			continue
		}
		rt, err := valueobject.NewRelationType(relType)
		if err != nil {
			return fmt.Errorf("relation of %s: %w", fromID, err)
		}
		if to, ok := byID[toID]; ok {
			from.AddRelation(rt, to)
		} else {
			from.AddRelationByID(rt, toID)
		}
	}
	return rows.Err()
}

func loadMappings(
	ctx context.Context,
	q pkgpostgres.Querier,
	loanID string,
	cur money.Currency,
	byID map[string]*model.Transaction,
	schedule *model.Schedule,
) error {
	rows, err := q.Query(ctx, `
		SELECT transaction_id, installment_number, principal, interest, fee, penalty
		FROM loan_transaction_mappings
		WHERE loan_id = $1
		ORDER BY transaction_id, installment_number`, loanID)
	if err != nil {
		return fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txnID                        string
			number                       int
			principal, interest, fee, pn decimal.Decimal
		)
		if err := rows.Scan(&txnID, &number, &principal, &interest, &fee, &pn); err != nil {
			return fmt.Errorf("scan mapping: %w", err)
		}
		t, ok := byID[txnID]
		inst := schedule.ByNumber(number)
		if !ok || inst == nil {
			// Mappings of superseded transactions may point at installments a
			// later replay removed.
			continue
		}
		t.AddMapping(inst, model.Portions{
			Principal: money.New(principal, cur),
			Interest:  money.New(interest, cur),
			Fee:       money.New(fee, cur),
			Penalty:   money.New(pn, cur),
		})
	}
	return rows.Err()
}

func loadChargePayments(
	ctx context.Context,
	q pkgpostgres.Querier,
	loanID string,
	cur money.Currency,
	byID map[string]*model.Transaction,
	charges []*model.Charge,
) error {
	chargeByID := make(map[string]*model.Charge, len(charges))
	for _, c := range charges {
		chargeByID[c.ID()] = c
	}

	rows, err := q.Query(ctx, `
		SELECT transaction_id, charge_id, installment_number, amount
		FROM loan_charge_payments
		WHERE loan_id = $1
		ORDER BY transaction_id, installment_number`, loanID)
	if err != nil {
		return fmt.Errorf("query charge payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txnID, chargeID string
			number          int
			amount          decimal.Decimal
		)
		if err := rows.Scan(&txnID, &chargeID, &number, &amount); err != nil {
			return fmt.Errorf("scan charge payment: %w", err)
		}
		t, ok := byID[txnID]
		c, found := chargeByID[chargeID]
		if !ok || !found {
			continue
		}
		t.AddChargePaidBy(model.ChargePaidBy{Charge: c, Amount: money.New(amount, cur), InstallmentNumber: number})
	}
	return rows.Err()
}
