package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authd/internal/logger"
	"github.com/authd/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate login")
)

// userCols — список колонок для SELECT (порядок соответствует scanUser).
const userCols = `id, login, password_hash, created_at, last_login_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser сканирует строку в model.User (порядок соответствует userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt)
}

// isUniqueViolation — нарушение unique-индекса Postgres (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create вставляет пользователя и возвращает присвоенный id.
// При занятом login возвращает ErrDuplicate (уникальность обеспечивает БД).
func (r *UserRepository) Create(ctx context.Context, login, passwordHash string) (int64, error) {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, created_at) VALUES ($1, $2, NOW()) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("userRepo.Create: %w", err)
	}
	return id, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByLogin", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE login = $1`, login)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByLogin: %w", err)
	}
	return u, nil
}

// UpdateLastLogin отмечает момент успешного входа.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, t time.Time) error {
	defer logger.DeferLogDuration("user.UpdateLastLogin", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, t, id)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateLastLogin: %w", err)
	}
	return nil
}

// Delete удаляет пользователя. Возвращает ErrNotFound, если строки уже нет.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	defer logger.DeferLogDuration("user.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("userRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
