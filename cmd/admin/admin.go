// Package admin creates or updates an administrator account.
package admin

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/obralens/obralens/internal/conf"
	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/errors"
)

// Command creates the create-admin command.
func Command(settings *conf.Settings) *cobra.Command {
	var email, nombre string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or update an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			return run(settings, email, nombre)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&nombre, "nombre", "Administrador", "Display name")
	return cmd
}

func run(settings *conf.Settings, email, nombre string) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer ds.Close()

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := ds.GetUsuarioByEmail(email)
	if err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return fmt.Errorf("looking up account: %w", err)
	}
	user.Email = email
	user.Nombre = nombre
	user.PasswordHash = string(hash)
	user.Rol = "admin"
	user.Activo = true

	if err := ds.SaveUsuario(&user); err != nil {
		return fmt.Errorf("saving account: %w", err)
	}

	fmt.Printf("admin account %s ready\n", email)
	return nil
}
