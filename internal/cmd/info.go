package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

var infoCmd = &cobra.Command{
	Use:   "info <profile.cpuprofile>",
	Short: "Print a summary of a capture",
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

		var totalSelf int64
		for i := range m.Nodes {
			totalSelf += m.Nodes[i].SelfTime
		}
		perCategory := make(map[model.Category]int64)
		for i := range m.Locations {
			perCategory[m.Locations[i].Category] += m.Locations[i].SelfTime
		}

		fmt.Printf("duration:  %s\n", time.Duration(m.Duration)*time.Microsecond)
		fmt.Printf("sampled:   %s\n", time.Duration(totalSelf)*time.Microsecond)
		fmt.Printf("samples:   %d\n", len(m.Samples))
		fmt.Printf("nodes:     %d\n", len(m.Nodes))
		fmt.Printf("locations: %d\n", len(m.Locations))
		for _, cat := range []model.Category{model.CategoryUser, model.CategoryModule, model.CategorySystem} {
			fmt.Printf("%-9s  %s\n", cat.String()+":", time.Duration(perCategory[cat])*time.Microsecond)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
