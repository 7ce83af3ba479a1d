package service

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kolabdok/internal/token"
	"kolabdok/internal/user/model"
	"kolabdok/internal/user/repository"
)

var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type UserService struct {
	Repo   *repository.UserRepository
	Tokens *token.Service
}

func NewUserService(repo *repository.UserRepository, tokens *token.Service) *UserService {
	return &UserService{Repo: repo, Tokens: tokens}
}

func (s *UserService) Signup(req model.SignupRequest) error {
	if _, err := s.Repo.GetByEmail(req.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Repo.Create(uuid.NewString(), req.Name, req.Email, string(hash))
}

// Login checks the credentials and issues a session token.
func (s *UserService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.Repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionToken, err := s.Tokens.IssueSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: sessionToken, User: *user}, nil
}

func (s *UserService) Profile(userID string) (*model.User, error) {
	user, err := s.Repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
