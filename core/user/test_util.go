package user

import (
	"context"

	"github.com/saifdine/daura/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose side effects (emails) run synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) SignUp(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.repo.CheckEmailUniqueness(ctx, core.CleanString(nu.Email, true /* lower */)); err != nil {
		return User{}, err
	}
	nu.Roles = []string{RoleStudent}
	// no async welcome mail
	return svc.create(ctx, nu)
}
