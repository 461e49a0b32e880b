package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/collegeerp/backend/internal/models"
	"github.com/collegeerp/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) RegisterFirstAdmin(ctx context.Context, req services.RegisterRequest) (*models.Admin, error) {
	args := m.Called(req)
	if admin := args.Get(0); admin != nil {
		return admin.(*models.Admin), args.Error(1)
	}
	return nil, args.Error(1)
}

func setup(t *testing.T) (*commandLine, *mockRegistrar, *bytes.Buffer) {
	t.Helper()
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	registrar := &mockRegistrar{}
	out := &bytes.Buffer{}
	return &commandLine{registrar: registrar, validator: services.NewValidationHelper(), out: out}, registrar, out
}

func TestCommandLine_Flags(t *testing.T) {
	cli, registrar, out := setup(t)
	want := services.RegisterRequest{Email: "admin@college.com", Username: "principal", Password: "Admin@123"}
	registrar.On("RegisterFirstAdmin", want).
		Return(&models.Admin{Email: want.Email, Username: want.Username, Role: models.RoleSuperAdmin}, nil).Once()

	err := cli.run([]string{"--email", "admin@college.com", "--username", "principal", "--password", "Admin@123"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Superadmin principal <admin@college.com> created")
	registrar.AssertExpectations(t)
}

func TestCommandLine_EnvAndPrompt(t *testing.T) {
	cli, registrar, _ := setup(t)
	t.Setenv("ADMIN_EMAIL", "office@college.com")

	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret!"), nil }
	t.Cleanup(func() { readPasswordFunc = orig })

	want := services.RegisterRequest{Email: "office@college.com", Username: "office", Password: "s3cret!"}
	registrar.On("RegisterFirstAdmin", want).Return(&models.Admin{Email: want.Email, Username: want.Username}, nil).Once()

	require.NoError(t, cli.run(nil))
	registrar.AssertExpectations(t)
}

func TestCommandLine_Errors(t *testing.T) {
	t.Run("missing email", func(t *testing.T) {
		cli, registrar, _ := setup(t)
		assert.ErrorIs(t, cli.run(nil), errHelp)
		registrar.AssertNotCalled(t, "RegisterFirstAdmin", mock.Anything)
	})

	t.Run("short password", func(t *testing.T) {
		cli, registrar, _ := setup(t)
		err := cli.run([]string{"--email", "admin@college.com", "--password", "abc"})
		assert.ErrorContains(t, err, "invalid admin details")
		registrar.AssertNotCalled(t, "RegisterFirstAdmin", mock.Anything)
	})

	t.Run("admin already exists", func(t *testing.T) {
		cli, registrar, _ := setup(t)
		forbidden := errors.New("admin registration is restricted")
		registrar.On("RegisterFirstAdmin", mock.Anything).Return(nil, forbidden).Once()

		err := cli.run([]string{"--email", "admin@college.com", "--password", "Admin@123"})
		assert.ErrorIs(t, err, forbidden)
	})
}
