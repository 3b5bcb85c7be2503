package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/ebioscore/platform/internal/shared/codes"
	"github.com/ebioscore/platform/internal/shared/errors"
	"github.com/ebioscore/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for advance receipts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new billing repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const receiptColumns = `receipt_id, receipt_code, patient_id, amount, adjusted, receipt_date, remarks, active, created_at, updated_at`

const detailColumns = `detail_id, receipt_id, pay_mode, amount, reference, created_at`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var rc Receipt
	var remarks *string
	err := row.Scan(&rc.ReceiptID, &rc.Code, &rc.PatientID, &rc.Amount, &rc.Adjusted,
		&rc.ReceiptDate, &remarks, &rc.Active, &rc.CreatedAt, &rc.UpdatedAt)
	if remarks != nil {
		rc.Remarks = *remarks
	}
	return rc, err
}

func scanDetail(row pgx.Row) (ReceiptDetail, error) {
	var d ReceiptDetail
	var reference *string
	err := row.Scan(&d.DetailID, &d.ReceiptID, &d.PayMode, &d.Amount, &reference, &d.CreatedAt)
	if reference != nil {
		d.Reference = *reference
	}
	return d, err
}

// List lists receipts, newest first
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Receipt, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 'Y'")
	}

	if filter.PatientID != 0 {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argNum))
		args = append(args, filter.PatientID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM billing.receipts
		%s
		ORDER BY receipt_date DESC, receipt_id DESC`, receiptColumns, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list receipts")
	}
	defer rows.Close()

	var list []Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan receipt")
		}
		list = append(list, rc)
	}

	return list, nil
}

// Get retrieves a receipt with its payment details
func (r *Repository) Get(ctx context.Context, id int64) (*Receipt, error) {
	query := fmt.Sprintf(`SELECT %s FROM billing.receipts WHERE receipt_id = $1`, receiptColumns)

	rc, err := scanReceipt(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("receipt", fmt.Sprint(id))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get receipt")
	}

	detailQuery := fmt.Sprintf(`
		SELECT %s FROM billing.receipt_details
		WHERE receipt_id = $1
		ORDER BY detail_id`, detailColumns)

	rows, err := r.pool.Query(ctx, detailQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list receipt details")
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan receipt detail")
		}
		rc.Details = append(rc.Details, d)
	}

	return &rc, nil
}

// Create stores a new receipt, then its payment detail lines one by
// one. Detail inserts stop at the first failure and the receipt is
// left in place with whatever details made it in; the caller gets the
// partial receipt back along with the error so the client can retry
// the remaining lines.
func (r *Repository) Create(ctx context.Context, rc *Receipt) (*Receipt, error) {
	if rc.Active == "" {
		rc.Active = types.Yes
	}
	if rc.Code == "" {
		code, err := r.NextCode(ctx, "RCP", 6)
		if err != nil {
			return nil, err
		}
		rc.Code = code
	}

	query := fmt.Sprintf(`
		INSERT INTO billing.receipts (receipt_code, patient_id, amount, adjusted, remarks, active)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING %s`, receiptColumns)

	saved, err := scanReceipt(r.pool.QueryRow(ctx, query, rc.Code, rc.PatientID, rc.Amount, rc.Remarks, rc.Active))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, errors.Conflict("receipt with this code already exists")
		}
		return nil, errors.Wrap(err, "failed to create receipt")
	}

	for i, d := range rc.Details {
		detailQuery := fmt.Sprintf(`
			INSERT INTO billing.receipt_details (receipt_id, pay_mode, amount, reference)
			VALUES ($1, $2, $3, $4)
			RETURNING %s`, detailColumns)

		savedDetail, err := scanDetail(r.pool.QueryRow(ctx, detailQuery, saved.ReceiptID, d.PayMode, d.Amount, d.Reference))
		if err != nil {
			return &saved, errors.Wrap(err, fmt.Sprintf("receipt %s saved but detail %d of %d failed", saved.Code, i+1, len(rc.Details)))
		}
		saved.Details = append(saved.Details, savedDetail)
	}

	return &saved, nil
}

// Adjust applies part of the receipt's balance against a bill. The
// update is conditional on the balance still covering the amount, so
// two concurrent adjustments cannot overdraw the receipt.
func (r *Repository) Adjust(ctx context.Context, id int64, amount float64) (*Receipt, error) {
	if amount <= 0 {
		return nil, errors.BadRequest("adjustment amount must be positive")
	}

	query := fmt.Sprintf(`
		UPDATE billing.receipts SET adjusted = adjusted + $2, updated_at = NOW()
		WHERE receipt_id = $1 AND active = 'Y' AND amount - adjusted >= $2
		RETURNING %s`, receiptColumns)

	rc, err := scanReceipt(r.pool.QueryRow(ctx, query, id, amount))
	if err == pgx.ErrNoRows {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, errors.Conflict(fmt.Sprintf("adjustment %.2f exceeds receipt balance %.2f", amount, current.Balance()))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to adjust receipt")
	}

	return &rc, nil
}

// UpdateActiveStatus flips the soft-delete flag. A receipt with
// adjustments against it cannot be deactivated.
func (r *Repository) UpdateActiveStatus(ctx context.Context, id int64, active bool) error {
	if !active {
		var adjusted float64
		err := r.pool.QueryRow(ctx,
			`SELECT adjusted FROM billing.receipts WHERE receipt_id = $1`, id).Scan(&adjusted)
		if err == pgx.ErrNoRows {
			return errors.NotFound("receipt", fmt.Sprint(id))
		}
		if err != nil {
			return errors.Wrap(err, "failed to check receipt adjustments")
		}
		if adjusted > 0 {
			return errors.Conflict("receipt with adjustments cannot be cancelled")
		}
	}

	result, err := r.pool.Exec(ctx,
		`UPDATE billing.receipts SET active = $2, updated_at = NOW() WHERE receipt_id = $1`,
		id, types.YesNoFromBool(active))
	if err != nil {
		return errors.Wrap(err, "failed to update receipt status")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("receipt", fmt.Sprint(id))
	}
	return nil
}

// NextCode suggests the next free receipt code for the given prefix
func (r *Repository) NextCode(ctx context.Context, prefix string, padWidth int) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(receipt_code FROM $2) AS BIGINT)), 0)
		FROM billing.receipts
		WHERE receipt_code ~ $1`

	var max int64
	err := r.pool.QueryRow(ctx, query, codes.SuffixPattern(prefix), len(prefix)+1).Scan(&max)
	if err != nil {
		return "", errors.Wrap(err, "failed to compute next receipt code")
	}

	return codes.Format(prefix, padWidth, max+1), nil
}
