package repository

import (
	"database/sql"

	"kolabdok/internal/user/model"
	"kolabdok/pkg/logger"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(id, name, email, passwordHash string) error {
	_, err := r.DB.Exec(`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		id, name, email, passwordHash)
	if err != nil {
		logger.Sugar.Errorf("Failed to create user: %v", err)
	}
	return err
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRow("SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1", email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user by email: %v", err)
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(id string) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRow("SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user %s: %v", id, err)
		}
		return nil, err
	}
	return &u, nil
}
