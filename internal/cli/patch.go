package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/patch"
)

func newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <library-root>",
		Short: "Patch a sentence-transformers install for modern huggingface_hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := patch.Apply(args[0], patch.SentenceTransformersFiles, patch.HuggingFaceHubRules())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			patched := 0
			for _, res := range results {
				switch {
				case res.Patched:
					patched++
					fmt.Fprintf(out, "patched  %s\n", res.Path)
				case res.Found:
					fmt.Fprintf(out, "clean    %s\n", res.Path)
				default:
					fmt.Fprintf(out, "missing  %s\n", res.Path)
				}
			}
			_, err = fmt.Fprintf(out, "%d file(s) patched\n", patched)
			return err
		},
	}
	return cmd
}
