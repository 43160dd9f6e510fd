package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"regdesk/internal/biometric"
	"regdesk/internal/enrollment"
)

func newStudentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "student", Short: "Students of the signed-in department"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List enrolled students",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.departmentConsole()
			if err != nil {
				return err
			}
			if err := c.LoadStudents(cmd.Context()); err != nil {
				return err
			}
			printStudents(a, c.Students)
			return nil
		},
	}

	var profile enrollment.Profile
	enroll := &cobra.Command{
		Use:   "enroll",
		Short: "Capture two fingerprints and enroll a student",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.departmentConsole()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			s := c.NewEnrollment()
			fields := map[string]string{
				enrollment.FieldName:   profile.Name,
				enrollment.FieldRollNo: profile.RollNo,
				enrollment.FieldEmail:  profile.Email,
				enrollment.FieldClass:  profile.Class,
			}
			for name, value := range fields {
				if err := s.SetField(name, value); err != nil {
					return err
				}
			}

			for _, slot := range biometric.Slots {
				if err := c.Capture(ctx, slot); err != nil {
					return err
				}
				printf(a.out, "%s: captured\n", slot)
			}

			student, err := c.Enroll(ctx)
			if err != nil {
				return err
			}
			printf(a.out, "Enrolled %s (%s)\n", student.Name, student.RollNo)
			return nil
		},
	}
	enroll.Flags().StringVar(&profile.Name, "name", "", "student name")
	enroll.Flags().StringVar(&profile.RollNo, "roll-no", "", "roll number")
	enroll.Flags().StringVar(&profile.Email, "email", "", "student email")
	enroll.Flags().StringVar(&profile.Class, "class", "", "class")
	requiredFlags(enroll, "name", "roll-no", "email", "class")

	cmd.AddCommand(list, enroll)
	return cmd
}

func printStudents(a *app, students []enrollment.Student) {
	if len(students) == 0 {
		printf(a.out, "No students\n")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	printf(w, "ROLL NO\tNAME\tEMAIL\tCLASS\n")
	for _, s := range students {
		printf(w, "%s\t%s\t%s\t%s\n", s.RollNo, s.Name, s.Email, s.Class)
	}
	_ = w.Flush()
}
