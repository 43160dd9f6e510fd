package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"regdesk/internal/backend"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Administrator session"}

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in as the administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.adminConsole().Login(cmd.Context(), email, password); err != nil {
				return err
			}
			printf(a.out, "Signed in as %s\n", email)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "administrator email")
	login.Flags().StringVar(&password, "password", "", "administrator password")
	requiredFlags(login, "email", "password")

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the administrator and every department",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.adminConsole()
			if err := c.Open(cmd.Context()); err != nil {
				return err
			}
			if c.User != nil {
				printf(a.out, "%s <%s>\n\n", c.User.Name, c.User.Email)
			}
			printDepartments(a, c.Departments)
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the administrator session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.adminConsole().Logout(cmd.Context())
		},
	}

	cmd.AddCommand(login, dashboard, logout)
	return cmd
}

func printDepartments(a *app, departments []backend.Department) {
	if len(departments) == 0 {
		printf(a.out, "No departments\n")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	printf(w, "ID\tNAME\tHOD\tEMAIL\n")
	for _, d := range departments {
		printf(w, "%d\t%s\t%s\t%s\n", d.DeptID, d.DeptName, d.HodName, d.DeptEmail)
	}
	_ = w.Flush()
}
