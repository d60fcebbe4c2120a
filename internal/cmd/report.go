package cmd

import (
	"encoding/json"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/profviz/profviz/pkg/cpuprofile/bottomup"
	"github.com/profviz/profviz/pkg/cpuprofile/flame"
)

type reportLocation struct {
	Function      string `json:"function"`
	Source        string `json:"source,omitempty"`
	Category      string `json:"category"`
	SelfTime      int64  `json:"selfTime"`
	AggregateTime int64  `json:"aggregateTime"`
}

type report struct {
	Duration  int64            `json:"duration"`
	Samples   int              `json:"samples"`
	Nodes     int              `json:"nodes"`
	Locations int              `json:"locations"`
	Columns   int              `json:"columns"`
	MaxDepth  int              `json:"maxDepth"`
	TotalTime int64            `json:"totalTime"`
	HotSpots  []reportLocation `json:"hotSpots"`
}

var reportCmd = &cobra.Command{
	Use:   "report <profile.cpuprofile>",
	Short: "Build both derived views and emit a combined summary",
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

		// The two views are independent read-only consumers of the model.
		var (
			root *bottomup.Node
			cols []flame.Column
		)
		var g errgroup.Group
		g.Go(func() error {
			root = bottomup.Build(m)
			return nil
		})
		g.Go(func() error {
			cols = flame.BuildColumns(m)
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		maxDepth := 0
		for i := range cols {
			if len(cols[i].Rows) > maxDepth {
				maxDepth = len(cols[i].Rows)
			}
		}

		hot := root.Children()
		if len(hot) > conf.Top.Limit {
			hot = hot[:conf.Top.Limit]
		}
		res := &report{
			Duration:  m.Duration,
			Samples:   len(m.Samples),
			Nodes:     len(m.Nodes),
			Locations: len(m.Locations),
			Columns:   len(cols),
			MaxDepth:  maxDepth,
			TotalTime: root.AggregateTime,
			HotSpots: lo.Map(hot, func(n *bottomup.Node, _ int) reportLocation {
				return reportLocation{
					Function:      n.Location.CallFrame.FunctionName,
					Source:        locationSource(n.Location),
					Category:      n.Location.Category.String(),
					SelfTime:      n.SelfTime,
					AggregateTime: n.AggregateTime,
				}
			}),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
