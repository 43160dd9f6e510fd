package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"regdesk/internal/config"
)

func main() {
	a := &app{cfg: config.LoadConsole(), out: os.Stdout}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "regdesk",
		Short:         "Department registration console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.APIURL, "api-url", a.cfg.APIURL, "registration API base URL")

	root.AddCommand(
		newAdminCmd(a),
		newDepartmentCmd(a),
		newStudentCmd(a),
		newCaptureCmd(a),
	)
	return root
}

func requiredFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		_ = cmd.MarkFlagRequired(name)
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
