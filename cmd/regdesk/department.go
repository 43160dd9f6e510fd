package main

import (
	"github.com/spf13/cobra"

	"regdesk/internal/backend"
)

func newDepartmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "department", Aliases: []string{"dept"}, Short: "Departments and department sessions"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every department",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.adminConsole()
			if err := c.LoadDepartments(cmd.Context()); err != nil {
				return err
			}
			printDepartments(a, c.Departments)
			return nil
		},
	}

	var req backend.NewDepartment
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a department",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dept, err := a.adminConsole().CreateDepartment(cmd.Context(), req)
			if err != nil {
				return err
			}
			if dept != nil {
				printf(a.out, "Created department %s (%d)\n", dept.DeptName, dept.DeptID)
			} else {
				printf(a.out, "Created department %s\n", req.DeptName)
			}
			return nil
		},
	}
	create.Flags().StringVar(&req.DeptName, "name", "", "department name")
	create.Flags().StringVar(&req.HodName, "hod", "", "head of department")
	create.Flags().StringVar(&req.DeptEmail, "email", "", "department email")
	create.Flags().StringVar(&req.Password, "password", "", "department password")
	requiredFlags(create, "name", "hod", "email", "password")

	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a department",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.adminConsole().DepartmentLogin(cmd.Context(), email, password); err != nil {
				return err
			}
			printf(a.out, "Signed in as %s\n", email)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "department email")
	login.Flags().StringVar(&password, "password", "", "department password")
	requiredFlags(login, "email", "password")

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in department",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.departmentConsole()
			if err != nil {
				return err
			}
			if err := c.Open(cmd.Context()); err != nil {
				return err
			}
			d := c.Department
			printf(a.out, "%s (%d)\nHOD: %s\nEmail: %s\nStudents: %d\n",
				d.DeptName, d.DeptID, d.HodName, d.DeptEmail, len(c.Students))
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the department session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.departmentConsole()
			if err != nil {
				return err
			}
			return c.Logout(cmd.Context())
		},
	}

	cmd.AddCommand(list, create, login, profile, logout)
	return cmd
}
