package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/schedule"

	"github.com/jackc/pgx/v5"
)

// notifyChannel lo alimenta el trigger de dose_logs con payload "user_id|date".
const notifyChannel = "dose_logs"

type DoseLogsRepo struct {
	db  *sql.DB
	dsn string // para abrir la conexión dedicada de LISTEN
}

func NewDoseLogsRepo(db *sql.DB, dsn string) *DoseLogsRepo {
	return &DoseLogsRepo{db: db, dsn: dsn}
}

const doseLogColumns = `
	id, user_id,
	medication_id, medication_name, bucket, date,
	scheduled_at, actual_at,
	taken, skipped,
	created_at`

func (r *DoseLogsRepo) FindByKey(ctx context.Context, userID string, k adherence.Key) (adherence.DoseLogEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+doseLogColumns+`
		FROM dose_logs
		WHERE user_id = $1 AND medication_id = $2 AND bucket = $3 AND date = $4
	`, userID, k.MedicationID, string(k.Bucket), k.Date)

	e, err := scanDoseLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return adherence.DoseLogEntry{}, adherence.ErrNotFound
	}
	return e, err
}

// Create usa el índice único de la key; un duplicado no pisa la entrada existente.
func (r *DoseLogsRepo) Create(ctx context.Context, e adherence.DoseLogEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_logs (`+doseLogColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (user_id, medication_id, bucket, date) DO NOTHING
	`,
		e.ID,
		e.UserID,
		e.MedicationID,
		e.MedicationName,
		string(e.Bucket),
		e.Date,
		e.ScheduledAt,
		e.ActualAt,
		e.Taken,
		e.Skipped,
		e.CreatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return adherence.ErrAlreadyExists
	}
	return nil
}

func (r *DoseLogsRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dose_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return adherence.ErrNotFound
	}
	return nil
}

func (r *DoseLogsRepo) ListByDate(ctx context.Context, userID, date string) ([]adherence.DoseLogEntry, error) {
	return r.ListByDateRange(ctx, userID, date, date)
}

func (r *DoseLogsRepo) ListByDateRange(ctx context.Context, userID, from, to string) ([]adherence.DoseLogEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+doseLogColumns+`
		FROM dose_logs
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, created_at ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]adherence.DoseLogEntry, 0)
	for rows.Next() {
		e, err := scanDoseLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WatchByDate abre una conexión pgx dedicada con LISTEN y re-lee la fecha en cada
// notificación que le corresponde. El canal se cierra si ctx se cancela o si la
// conexión se cae; el caller decide si reintenta.
func (r *DoseLogsRepo) WatchByDate(ctx context.Context, userID, date string) (<-chan []adherence.DoseLogEntry, error) {
	if strings.TrimSpace(r.dsn) == "" {
		return nil, errors.New("postgres: watch requires a dsn")
	}

	conn, err := pgx.Connect(ctx, r.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: listen connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("postgres: listen: %w", err)
	}

	// LISTEN antes de la lectura inicial para no perder cambios intermedios.
	initial, err := r.ListByDate(ctx, userID, date)
	if err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}

	ch := make(chan []adherence.DoseLogEntry, 1)
	ch <- initial

	payload := userID + "|" + date
	go func() {
		defer close(ch)
		defer conn.Close(context.Background())

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				return
			}
			if n.Payload != payload {
				continue
			}
			entries, err := r.ListByDate(ctx, userID, date)
			if err != nil {
				return
			}
			// Solo importa el último estado.
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}()
	return ch, nil
}

func scanDoseLog(s rowScanner) (adherence.DoseLogEntry, error) {
	var e adherence.DoseLogEntry
	var bucket string
	if err := s.Scan(
		&e.ID,
		&e.UserID,
		&e.MedicationID,
		&e.MedicationName,
		&bucket,
		&e.Date,
		&e.ScheduledAt,
		&e.ActualAt,
		&e.Taken,
		&e.Skipped,
		&e.CreatedAt,
	); err != nil {
		return adherence.DoseLogEntry{}, err
	}
	e.Bucket = schedule.Bucket(bucket)
	return e, nil
}
