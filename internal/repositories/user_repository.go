package repositories

import (
	"context"
	"fmt"

	"arremate-backend/internal/models"
)

type UserRepository struct {
	DB DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, nome, email, senha_hash, role, permissoes, ativo, data_criacao`

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.Permissions, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE lower(email) = lower($1)`, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.Permissions, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// HasPermission reports whether an active user is admin or holds capability
func (r *UserRepository) HasPermission(ctx context.Context, userID int, capability string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM usuarios
		     WHERE id = $1 AND ativo AND (role = 'admin' OR $2 = ANY(permissoes))
		 )`, userID, capability,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check permission %s for user %d: %w", capability, userID, err)
	}
	return ok, nil
}
