// Command createadmin bootstraps the first superadmin account.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/collegeerp/backend/internal/audit"
	"github.com/collegeerp/backend/internal/config"
	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/models"
	"github.com/collegeerp/backend/internal/services"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type adminRegistrar interface {
	RegisterFirstAdmin(ctx context.Context, req services.RegisterRequest) (*models.Admin, error)
}

type commandLine struct {
	registrar adminRegistrar
	validator *services.ValidationHelper
	out       io.Writer
}

func (cli *commandLine) run(args []string) error {
	fs := pflag.NewFlagSet("createadmin", pflag.ContinueOnError)
	fs.SetOutput(cli.out)
	fs.String("email", "", "admin email (ADMIN_EMAIL)")
	fs.String("username", "", "admin username (ADMIN_USERNAME)")
	fs.String("password", "", "admin password (ADMIN_PASSWORD); prompted when empty")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}

	v := viper.New()
	v.BindEnv("email", "ADMIN_EMAIL")
	v.BindEnv("username", "ADMIN_USERNAME")
	v.BindEnv("password", "ADMIN_PASSWORD")
	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	req := services.RegisterRequest{
		Email:    v.GetString("email"),
		Username: v.GetString("username"),
		Password: v.GetString("password"),
	}
	if req.Username == "" && req.Email != "" {
		req.Username = strings.SplitN(req.Email, "@", 2)[0]
	}
	if req.Email == "" {
		fs.Usage()
		return errHelp
	}
	if req.Password == "" {
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		req.Password = string(pwd)
	}

	if err := cli.validator.ValidateStruct(&req); err != nil {
		return fmt.Errorf("invalid admin details: %w", err)
	}

	admin, err := cli.registrar.RegisterFirstAdmin(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Superadmin %s <%s> created\n", admin.Username, admin.Email)
	return nil
}

func main() {
	// Shares the server's bindings so password hashes use the same argon2 parameters.
	config.Load()

	db := database.InitDatabase()
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// No tokens are issued here, so the auth service runs without a token manager or Redis.
	authService := services.NewAuthService(db, nil, nil, config.LoadAuthConfig(), audit.NewAuditLogger())
	cli := commandLine{
		registrar: authService,
		validator: services.NewValidationHelper(),
		out:       os.Stdout,
	}
	if err := cli.run(os.Args[1:]); err != nil {
		if err != errHelp {
			log.Printf("[ADMIN] %v", err)
		}
		os.Exit(1)
	}
}
