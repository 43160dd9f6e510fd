package main

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"regdesk/internal/biometric"
)

func newCaptureCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "capture", Short: "Fingerprint reader diagnostics"}

	var ceremony bool
	probe := &cobra.Command{
		Use:   "probe",
		Short: "Report whether a fingerprint reader can be used",
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, err := a.openPlatform()
			if err != nil {
				return err
			}
			printf(a.out, "Supported: %t\n", platform.Supported())
			if !platform.Supported() {
				return nil
			}
			available, err := platform.UserVerifyingPlatformAuthenticatorAvailable(cmd.Context())
			if err != nil {
				return err
			}
			printf(a.out, "Reader available: %t\n", available)
			if !ceremony || !available {
				return nil
			}

			c, err := a.capturer()
			if err != nil {
				return err
			}
			artifact, err := c.Capture(cmd.Context(), biometric.Slot1)
			if err != nil {
				return err
			}
			summary, err := biometric.Inspect(artifact)
			if err != nil {
				return err
			}
			printf(a.out, "Format: %s\nRP ID hash: %s\nUser present: %t\nUser verified: %t\nCredential data: %t\n",
				summary.Format, hex.EncodeToString(summary.RPIDHash),
				summary.UserPresent, summary.UserVerified, summary.HasCredential)
			return nil
		},
	}
	probe.Flags().BoolVar(&ceremony, "ceremony", false, "also run one test ceremony and decode its attestation")

	cmd.AddCommand(probe)
	return cmd
}
