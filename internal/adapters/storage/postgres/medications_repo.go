package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medication-adherence/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

const medicationColumns = `
	id, user_id,
	name, dosage, times,
	stock, low_stock_threshold,
	instructions, prescribed_by,
	created_at, updated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.Dosage,
		joinTimes(m.Times),
		m.Stock,
		m.LowStockThreshold,
		m.Instructions,
		m.PrescribedBy,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $3,
			dosage = $4,
			times = $5,
			stock = $6,
			low_stock_threshold = $7,
			instructions = $8,
			prescribed_by = $9,
			updated_at = $10
		WHERE id = $1 AND user_id = $2
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.Dosage,
		joinTimes(m.Times),
		m.Stock,
		m.LowStockThreshold,
		m.Instructions,
		m.PrescribedBy,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) GetByID(ctx context.Context, userID, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	m, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, err
}

func (r *MedicationsRepo) ListByUser(ctx context.Context, userID string) ([]medications.Medication, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdjustStock es una sola sentencia condicional: no hay ventana read-then-write.
func (r *MedicationsRepo) AdjustStock(ctx context.Context, userID, id string, delta int) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `
		UPDATE medications
		SET stock = GREATEST(stock + $3, 0)
		WHERE id = $1 AND user_id = $2
		RETURNING stock
	`, id, userID, delta).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, medications.ErrNotFound
	}
	return stock, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(s rowScanner) (medications.Medication, error) {
	var m medications.Medication
	var times string
	if err := s.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Dosage,
		&times,
		&m.Stock,
		&m.LowStockThreshold,
		&m.Instructions,
		&m.PrescribedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}
	m.Times = splitTimes(times)
	return m, nil
}

// times se guarda como "08:00,20:00".
func joinTimes(times []string) string {
	return strings.Join(times, ",")
}

func splitTimes(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
