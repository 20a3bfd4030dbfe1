package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed queries/init.sql
var initQuery string

const uniqueViolation = "23505"

const userColumns = "id, name, email, phone, company, address, confirmation, created_at, updated_at"

var _ storage.Store = (*SqlWorker)(nil)

type SqlWorker struct {
	DB  *sql.DB
	Log *zap.SugaredLogger
	now func() time.Time
}

func NewSqlWorker(ctx context.Context, dsn string, log *zap.SugaredLogger) (*SqlWorker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("Problem with opening DB: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Problem with pinging DB: %w", err)
	}
	return NewWithDB(db, log), nil
}

func NewWithDB(db *sql.DB, log *zap.SugaredLogger) *SqlWorker {
	return &SqlWorker{
		DB:  db,
		Log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (w *SqlWorker) CreateDefaultTables(ctx context.Context) error {
	if _, err := w.DB.ExecContext(ctx, initQuery); err != nil {
		return fmt.Errorf("Problem with execution of init query: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user.User, error) {
	var (
		u    user.User
		addr []byte
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.Company,
		&addr, &u.Confirmation, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(addr, &u.Address); err != nil {
		return nil, fmt.Errorf("Problem with decoding address of user '%s': %w", u.ID, err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// escapeLike makes the search text match literally inside ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func searchClause(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	return " WHERE name ILIKE $1 OR email ILIKE $1 OR company ILIKE $1",
		[]any{"%" + escapeLike(search) + "%"}
}

func (w *SqlWorker) List(ctx context.Context, q storage.ListQuery) ([]user.User, int64, error) {
	where, args := searchClause(q.Search)
	var total int64
	err := w.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("Problem with counting users: %w", err)
	}
	query := fmt.Sprintf(
		"SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)+1, len(args)+2,
	)
	rows, err := w.DB.QueryContext(ctx, query, append(args, q.Limit, q.Skip())...)
	if err != nil {
		return nil, 0, fmt.Errorf("Problem with listing users: %w", err)
	}
	defer rows.Close()
	users := make([]user.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("Problem with scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("Problem with iterating users: %w", err)
	}
	return users, total, nil
}

func (w *SqlWorker) GetByID(ctx context.Context, id string) (*user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, customerrors.ErrInvalidID
	}
	row := w.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Problem with getting user '%s': %w", id, err)
	}
	return u, nil
}

func (w *SqlWorker) Create(ctx context.Context, u *user.User) error {
	addr, err := json.Marshal(u.Address)
	if err != nil {
		return fmt.Errorf("Problem with encoding address: %w", err)
	}
	id := uuid.NewString()
	now := w.now()
	_, err = w.DB.ExecContext(ctx,
		"INSERT INTO users("+userColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		id, u.Name, u.Email, u.Phone, u.Company, addr, u.Confirmation, now, now,
	)
	if isUniqueViolation(err) {
		return customerrors.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("Problem with inserting user: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (w *SqlWorker) Update(ctx context.Context, id string, u *user.User) (*user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, customerrors.ErrInvalidID
	}
	addr, err := json.Marshal(u.Address)
	if err != nil {
		return nil, fmt.Errorf("Problem with encoding address: %w", err)
	}
	row := w.DB.QueryRowContext(ctx,
		"UPDATE users SET name = $2, email = $3, phone = $4, company = $5, address = $6, "+
			"confirmation = $7, updated_at = $8 WHERE id = $1 RETURNING "+userColumns,
		id, u.Name, u.Email, u.Phone, u.Company, addr, u.Confirmation, w.now(),
	)
	updated, err := scanUser(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, customerrors.ErrNotFound
	case isUniqueViolation(err):
		return nil, customerrors.ErrDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("Problem with updating user '%s': %w", id, err)
	}
	return updated, nil
}

func (w *SqlWorker) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return customerrors.ErrInvalidID
	}
	res, err := w.DB.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("Problem with deleting user '%s': %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Problem with reading affected rows: %w", err)
	}
	if n == 0 {
		return customerrors.ErrNotFound
	}
	return nil
}

func (w *SqlWorker) Ping(ctx context.Context) error {
	return w.DB.PingContext(ctx)
}

func (w *SqlWorker) Close(context.Context) error {
	w.Log.Infoln("Closing postgres connection")
	return w.DB.Close()
}
