package service

import (
	"context"
	"strings"

	"firmsite/internal/authorization"
	"firmsite/internal/cmsapi"
	"firmsite/internal/models"
	"firmsite/pkg/validator"
)

type UserService struct {
	backend UserBackend
}

func NewUserService(backend UserBackend) *UserService {
	return &UserService{backend: backend}
}

func (s *UserService) List(ctx context.Context, token string) ([]cmsapi.User, error) {
	return s.backend.ListUsers(ctx, token)
}

func (s *UserService) Create(ctx context.Context, token string, form models.CreateUserForm) (cmsapi.User, error) {
	role, err := authorization.ParseUserRole(form.Role)
	if err != nil {
		return cmsapi.User{}, err
	}

	return s.backend.CreateUser(ctx, token, cmsapi.CreateUserRequest{
		Name:  validator.NormalizeSpaces(form.Name),
		Email: strings.ToLower(strings.TrimSpace(form.Email)),
		Role:  role.String(),
	})
}

func (s *UserService) Delete(ctx context.Context, token, id string) error {
	return s.backend.DeleteUser(ctx, token, id)
}
