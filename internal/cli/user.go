// User commands: list, add, update and delete.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/estates/pkg/types"
)

func (a *app) newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage property owners",
	}
	cmd.AddCommand(a.newUserListCmd())
	cmd.AddCommand(a.newUserAddCmd())
	cmd.AddCommand(a.newUserUpdateCmd())
	cmd.AddCommand(a.newUserDeleteCmd())
	return cmd
}

func (a *app) newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.needUsers(); err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			users := s.mgr.ListUsers()
			if a.flags.jsonMode {
				if users == nil {
					users = []types.User{}
				}
				return printJSON(cmd.OutOrStdout(), users)
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
}

func (a *app) newUserAddCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		Long: `Add creates a user. Name and email are required and the email must not
belong to another user.

Example:
  estates user add --name "John Doe" --email john@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := s.mgr.AddUser(cmd.Context(), types.User{Name: name, Email: email})
			if err := applied(err); err != nil {
				return fmt.Errorf("add user: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added user %d: %s\n", u.ID, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "user name (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	return cmd
}

func (a *app) newUserUpdateCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a user's name and email",
		Long: `Update replaces the name and email of an existing user. A flag left out
keeps its current value.

Example:
  estates user update 3 --email jane.smith@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.needUsers(); err != nil {
				return fmt.Errorf("update user: %w", err)
			}

			u, ok := findUser(s.mgr.ListUsers(), id)
			if !ok {
				return fmt.Errorf("update user: user %d: %w", id, types.ErrNotFound)
			}
			if cmd.Flags().Changed("name") {
				u.Name = name
			}
			if cmd.Flags().Changed("email") {
				u.Email = email
			}
			if err := applied(s.mgr.UpdateUser(cmd.Context(), u)); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), u.Normalize())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated user %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	return cmd
}

func (a *app) newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user and every property it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			// The count is only known when the properties loaded.
			counted := s.needProperties() == nil
			owned := 0
			if counted {
				owned = len(ownedBy(s.mgr.AllProperties(), id))
			}
			if err := applied(s.mgr.DeleteUser(cmd.Context(), id)); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			out := cmd.OutOrStdout()
			switch {
			case a.flags.jsonMode && counted:
				return printJSON(out, map[string]int64{"id": id, "properties": int64(owned)})
			case a.flags.jsonMode:
				return printJSON(out, map[string]int64{"id": id})
			case counted:
				fmt.Fprintf(out, "Deleted user %d and %d propert%s\n", id, owned, plural(owned, "y", "ies"))
			default:
				fmt.Fprintf(out, "Deleted user %d and its properties\n", id)
			}
			return nil
		},
	}
}

func ownedBy(props []types.Property, ownerID int64) []types.Property {
	var owned []types.Property
	for _, p := range props {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	return owned
}

func findUser(users []types.User, id int64) (types.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return types.User{}, false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &types.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a positive integer", s)}
	}
	return id, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
