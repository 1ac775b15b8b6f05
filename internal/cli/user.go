package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gmp-id/gmpcms/internal/auth"
	"github.com/gmp-id/gmpcms/internal/models"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Manage admin panel users via CLI. Create, list, delete users and reset passwords.`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a new user",
	Long: `Create a new user with email, role and password.

Roles: admin (everything) and editor (content only).

Example:
  gmpcms user create admin@gmp.or.id --name "Admin GMP" --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := models.NormalizeEmail(args[0])
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("invalid email address %q", args[0])
		}

		role, _ := cmd.Flags().GetString("role")
		if !auth.ValidRole(role) {
			return fmt.Errorf("role must be %q or %q", auth.RoleAdmin, auth.RoleEditor)
		}

		// Get name (optional)
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Full name (optional): ")
			name, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			name = strings.TrimSpace(name)
		}

		password, err := promptNewPassword("Password: ")
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		user, err := models.CreateUser(cmd.Context(), db, email, name, role, hash)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("user '%s' already exists", email)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n✓ User created successfully\n")
		fmt.Fprintf(out, "  ID:      %s\n", user.ID)
		fmt.Fprintf(out, "  Email:   %s\n", user.Email)
		if user.Name != "" {
			fmt.Fprintf(out, "  Name:    %s\n", user.Name)
		}
		fmt.Fprintf(out, "  Role:    %s\n", user.Role)
		fmt.Fprintf(out, "  Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Long:  `List all users in the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		users, err := models.ListUsers(cmd.Context(), db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, "No users found")
			return nil
		}

		fmt.Fprintf(out, "\nTotal users: %d\n\n", len(users))
		fmt.Fprintf(out, "%-36s  %-30s  %-20s  %-6s  %s\n", "ID", "Email", "Name", "Role", "Last login")
		fmt.Fprintln(out, strings.Repeat("-", 120))

		for _, u := range users {
			name := "-"
			if u.Name != "" {
				name = u.Name
			}
			lastLogin := "never"
			if u.LastLoginAt != nil {
				lastLogin = u.LastLoginAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(out, "%-36s  %-30s  %-20s  %-6s  %s\n", u.ID, u.Email, name, u.Role, lastLogin)
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete a user",
	Long: `Delete a user by email.

Activity log entries written by the user are kept.

Example:
  gmpcms user delete editor@gmp.or.id`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := models.NormalizeEmail(args[0])

		// Confirm deletion
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete user '%s'? (yes/no): ", email)
			response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			response = strings.ToLower(strings.TrimSpace(response))

			if response != "yes" && response != "y" {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := models.DeleteUserByEmail(cmd.Context(), db, email); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return fmt.Errorf("user '%s' not found", email)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ User '%s' deleted successfully\n", email)
		return nil
	},
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Reset user password",
	Long: `Reset password for a user. Tokens issued before the reset stop working.

Example:
  gmpcms user reset-password admin@gmp.or.id`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := models.NormalizeEmail(args[0])

		password, err := promptNewPassword("New password: ")
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := models.UpdatePassword(cmd.Context(), db, email, hash); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return fmt.Errorf("user '%s' not found", email)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Password reset successfully for '%s'\n", email)
		fmt.Fprintln(cmd.OutOrStdout(), "  All existing sessions have been invalidated")
		return nil
	},
}

// promptNewPassword asks for a password twice and checks both entries match.
func promptNewPassword(prompt string) (string, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return "", err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(password) < auth.MinPasswordLength {
		return "", auth.ErrPasswordTooShort
	}
	return password, nil
}

// readPassword reads a password from stdin without echoing
var readPassword = func(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}

func init() {
	// Add flags
	userCreateCmd.Flags().StringP("name", "n", "", "User's full name")
	userCreateCmd.Flags().StringP("role", "r", auth.RoleEditor, "Role: admin or editor")
	userDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	// Add subcommands
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userResetPasswordCmd)

	// Register with root command
	RootCmd.AddCommand(userCmd)
}
