package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
)

const userColumns = "id, nom, prenom, departement, role, email, telephone, password_hash, is_active, is_approved, created_at"

type userRow struct {
	ID           int       `db:"id"`
	LastName     string    `db:"nom"`
	FirstName    string    `db:"prenom"`
	Department   string    `db:"departement"`
	Role         string    `db:"role"`
	Email        string    `db:"email"`
	Phone        string    `db:"telephone"`
	PasswordHash []byte    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	IsApproved   bool      `db:"is_approved"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		LastName:     r.LastName,
		FirstName:    r.FirstName,
		Department:   r.Department,
		Role:         r.Role,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		IsApproved:   r.IsApproved,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`INSERT INTO users (nom, prenom, departement, role, email, telephone, password_hash, is_active, is_approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		usr.LastName, usr.FirstName, usr.Department, usr.Role, usr.Email, usr.Phone,
		usr.PasswordHash, usr.IsActive, usr.IsApproved, usr.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	if filter.ID == 0 && filter.Email == "" {
		return user.User{}, user.ErrNotFound
	}
	b := psql.Select(userColumns).From("users")
	if filter.ID != 0 {
		b = b.Where(sq.Eq{"id": filter.ID})
	}
	if filter.Email != "" {
		b = b.Where(sq.Eq{"email": filter.Email})
	}

	var row userRow
	err := selectOne(ctx, repo.db, &row, b)
	if err != nil {
		if database.IsNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func usersQuery(filter user.QueryFilter) sq.SelectBuilder {
	b := psql.Select(userColumns).From("users").OrderBy("id")
	if filter.Role != "" {
		b = b.Where(sq.Eq{"role": filter.Role})
	}
	if filter.IsApproved != nil {
		b = b.Where(sq.Eq{"is_approved": *filter.IsApproved})
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.Emails != nil {
		b = b.Where(sq.Expr("email = ANY(?)", pq.Array(filter.Emails)))
	}
	return b
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var rows []userRow
	if err := selectAll(ctx, repo.db, &rows, usersQuery(filter)); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var row userRow
	err := sqlx.GetContext(
		ctx, database.Executor(ctx, repo.db), &row,
		`UPDATE users SET nom = $2, prenom = $3, departement = $4, role = $5, email = $6, telephone = $7,
		password_hash = $8, is_active = $9, is_approved = $10
		WHERE id = $1
		RETURNING `+userColumns,
		usr.ID, usr.LastName, usr.FirstName, usr.Department, usr.Role, usr.Email, usr.Phone,
		usr.PasswordHash, usr.IsActive, usr.IsApproved,
	)
	switch {
	case database.IsNoRows(err):
		return user.User{}, user.ErrNotFound
	case database.IsUniqueViolation(err):
		return user.User{}, user.ErrEmailTaken
	case err != nil:
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return database.CheckAffected(res, user.ErrNotFound)
}
