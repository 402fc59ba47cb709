package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/doctor"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose connectivity to the bot API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}
			api, err := apiClient(cfg, 0)
			if err != nil {
				return err
			}
			runner, err := doctor.New(api, cfg.API.BaseURL, cfg.Doctor.Nameservers)
			if err != nil {
				return err
			}

			results, ok := runner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			for _, res := range results {
				mark := "ok"
				if !res.OK {
					mark = "FAIL"
				}
				if _, err := fmt.Fprintf(out, "%-4s %-24s %s\n", mark, res.Name, res.Detail); err != nil {
					return err
				}
			}
			if !ok {
				return fmt.Errorf("%d of %d checks failed", countFailed(results), len(results))
			}
			return nil
		},
	}
}

func countFailed(results []doctor.Result) int {
	failed := 0
	for _, res := range results {
		if !res.OK {
			failed++
		}
	}
	return failed
}
