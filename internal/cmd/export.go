package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/profviz/profviz/pkg/cpuprofile/convert"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <profile.cpuprofile>",
	Short: "Export the model as a pprof profile or collapsed stacks",
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

		w, done, err := output(exportOutput)
		if err != nil {
			return err
		}
		defer done()

		switch exportFormat {
		case "pprof":
			prof, err := convert.ToPProf(m)
			if err != nil {
				return err
			}
			return prof.Write(w)
		case "collapsed":
			return convert.EncodeCollapsed(w, convert.FoldStacks(m))
		default:
			return fmt.Errorf("unsupported format %q", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "collapsed", "output format: pprof or collapsed")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, stdout when empty")
	rootCmd.AddCommand(exportCmd)
}
