package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewtime/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// List returns every payload of one collection in id order.
func (r Repo) List(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT payload FROM records WHERE collection=? ORDER BY id ASC`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res [][]byte
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		res = append(res, []byte(payload))
	}
	return res, rows.Err()
}

// Get returns one record payload.
func (r Repo) Get(ctx context.Context, collection string, id int64) ([]byte, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT payload FROM records WHERE collection=? AND id=?`, collection, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

// NextID allocates the next record id within a collection.
func (r Repo) NextID(ctx context.Context, tx *sql.Tx, collection string) (int64, error) {
	var max int64
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM records WHERE collection=?`, collection).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r Repo) InsertTx(ctx context.Context, tx *sql.Tx, collection string, id int64, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO records(collection,id,payload,created_at,updated_at) VALUES (?,?,?,?,?)`,
		collection, id, string(payload), now, now)
	return err
}

func (r Repo) UpdateTx(ctx context.Context, tx *sql.Tx, collection string, id int64, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `UPDATE records SET payload=?, updated_at=? WHERE collection=? AND id=?`,
		string(payload), now, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTx(ctx context.Context, tx *sql.Tx, collection string, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection=? AND id=?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Credential is the stored login secret for one user.
type Credential struct {
	UserID   int64
	Email    string
	Password string
}

func (r Repo) UpsertCredentialTx(ctx context.Context, tx *sql.Tx, c Credential) error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("credential email required")
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO credentials(user_id,email,password) VALUES (?,?,?)
ON CONFLICT(user_id) DO UPDATE SET email=excluded.email, password=excluded.password`, c.UserID, c.Email, c.Password)
	return err
}

func (r Repo) DeleteCredentialTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE user_id=?`, userID)
	return err
}

func (r Repo) GetCredential(ctx context.Context, email string) (Credential, error) {
	var c Credential
	err := r.DB.QueryRowContext(ctx, `SELECT user_id,email,password FROM credentials WHERE email=?`, email).
		Scan(&c.UserID, &c.Email, &c.Password)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// EventsAfter returns audit events with ids greater than the cursor in
// ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, collection string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if collection != "" {
		clauses = append(clauses, "collection=?")
		args = append(args, collection)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,collection,record_id,actor_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var recordID sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.Collection, &recordID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if recordID.Valid {
			e.RecordID = recordID.Int64
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent audit event id for a collection.
func (r Repo) LatestEventID(ctx context.Context, collection string) (int64, error) {
	query := `SELECT COALESCE(MAX(id),0) FROM events`
	var args []any
	if collection != "" {
		query += ` WHERE collection=?`
		args = append(args, collection)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
