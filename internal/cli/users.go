package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/repository"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const timeLayout = "2006-01-02 15:04:05.000000"

var (
	userNickname string
	addRoles     []string
	setRoles     []string
	userRole     string
	forceDelete  bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long:  "Manage user accounts and their roles",
}

// readPassword prompts twice and returns the confirmed password.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirmPassword) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		password, err := readPassword("Enter password: ")
		if err != nil {
			return err
		}

		nickname := userNickname
		if nickname == "" {
			nickname = username
		}

		user, err := services.UserService.Create(cmd.Context(), service.CreateUserInput{
			Username: username,
			Password: password,
			Nickname: nickname,
			Roles:    addRoles,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("User '%s' created with roles %s\n", user.Username, strings.Join(user.Roles, ","))
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user",
	Long:  "Close the user's active version. Earlier versions stay in the history.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		// Confirm deletion
		if !forceDelete {
			fmt.Printf("Are you sure you want to delete user '%s'? (yes/no): ", username)
			var confirm string
			fmt.Scanln(&confirm)
			if confirm != "yes" {
				fmt.Println("Cancelled")
				return nil
			}
		}

		if err := services.UserService.Remove(cmd.Context(), username); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		fmt.Printf("User '%s' deleted successfully\n", username)
		return nil
	},
}

var usersUpdatePasswordCmd = &cobra.Command{
	Use:   "update-password <username>",
	Short: "Update user password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		password, err := readPassword("Enter new password: ")
		if err != nil {
			return err
		}

		if _, err := services.UserService.UpdateProfile(cmd.Context(), username, service.ProfileUpdate{Password: &password}); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		fmt.Printf("Password updated for user '%s'\n", username)
		return nil
	},
}

var usersRolesCmd = &cobra.Command{
	Use:   "roles <username>",
	Short: "Replace a user's roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		user, err := services.UserService.SetRoles(cmd.Context(), args[0], setRoles)
		if err != nil {
			return fmt.Errorf("failed to set roles: %w", err)
		}

		fmt.Printf("User '%s' now has roles %s\n", user.Username, strings.Join(user.Roles, ","))
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active users",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		var filter repository.UserFilter
		if userRole != "" {
			filter.Role = &userRole
		}

		users, err := services.UserService.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No users found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tNICKNAME\tROLES\tVALID FROM")
		for _, user := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				user.Username,
				user.Nickname,
				strings.Join(user.Roles, ","),
				user.ValidFrom.Format(timeLayout),
			)
		}
		w.Flush()

		return nil
	},
}

var usersHistoryCmd = &cobra.Command{
	Use:   "history <username>",
	Short: "Show every version of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := initServices(cmd.Context())
		if err != nil {
			return err
		}
		defer services.Close()

		versions, err := services.UserService.History(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VALID FROM\tVALID UNTIL\tNICKNAME\tROLES")
		for _, v := range versions {
			until := "active"
			if v.ValidUntil != nil {
				until = v.ValidUntil.Format(timeLayout)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				v.ValidFrom.Format(timeLayout),
				until,
				v.Nickname,
				strings.Join(v.Roles, ","),
			)
		}
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersCmd.AddCommand(usersUpdatePasswordCmd)
	usersCmd.AddCommand(usersRolesCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersHistoryCmd)

	usersAddCmd.Flags().StringVar(&userNickname, "nickname", "", "display name (defaults to the username)")
	usersAddCmd.Flags().StringSliceVar(&addRoles, "role", []string{domain.RolePlayer}, "role to grant, repeatable")
	usersRolesCmd.Flags().StringSliceVar(&setRoles, "role", nil, "role to grant, repeatable")
	_ = usersRolesCmd.MarkFlagRequired("role")
	usersListCmd.Flags().StringVar(&userRole, "role", "", "only list users holding this role")
	usersDeleteCmd.Flags().BoolVarP(&forceDelete, "yes", "y", false, "skip the confirmation prompt")
}
