package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/profviz/profviz/pkg/cpuprofile/flame"
)

var flameOutput string

var flameCmd = &cobra.Command{
	Use:   "flame <profile.cpuprofile>",
	Short: "Build merged flame graph columns and emit them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		conf, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		m, err := loadModel(args[0], conf, logger)
		if err != nil {
			return err
		}

		cols := flame.BuildColumns(m)
		w, done, err := output(flameOutput)
		if err != nil {
			return err
		}
		defer done()
		return json.NewEncoder(w).Encode(flame.Render(m, cols))
	},
}

func init() {
	flameCmd.Flags().StringVarP(&flameOutput, "output", "o", "", "output file, stdout when empty")
	rootCmd.AddCommand(flameCmd)
}
