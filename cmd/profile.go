package cmd

import (
	"fmt"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/KaramelBytes/gwastrend/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profTrait      string
	profAncestry   string
	profTop        int
	profOutputPath string
)

var profileCmd = &cobra.Command{
	Use:   "profile [files...]",
	Short: "Summarize the rows matching a trait and ancestry (Markdown)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := criteria(cmd, profTrait, profAncestry)
		ds, err := loadDataset(cmd.Context(), args)
		if err != nil {
			return err
		}
		subset := gwas.Filter(ds.Records, c)
		md := gwas.BuildProfile(ds.Name, c, subset, profTop, cfg.DatesAsYears).Markdown()

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profTrait, "trait", "", "trait substring, case-insensitive (default from config)")
	profileCmd.Flags().StringVar(&profAncestry, "ancestry", "", "ancestry substring, case-insensitive (default from config)")
	profileCmd.Flags().IntVar(&profTop, "top", 8, "number of top traits/ancestries to list")
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
}
