package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/profviz/profviz/pkg/cpuprofile/bottomup"
	"github.com/profviz/profviz/pkg/cpuprofile/model"
)

var (
	topLimit    int
	topCategory string
)

var topCmd = &cobra.Command{
	Use:   "top <profile.cpuprofile>",
	Short: "Print the hottest locations, grouped bottom-up by leaf call site",
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

		root := bottomup.Build(m)
		rows := root.Children()
		if topCategory != "" {
			rows = lo.Filter(rows, func(n *bottomup.Node, _ int) bool {
				return n.Location.Category.String() == topCategory
			})
		}
		limit := topLimit
		if limit <= 0 {
			limit = conf.Top.Limit
		}
		if len(rows) > limit {
			rows = rows[:limit]
		}

		total := root.AggregateTime
		w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SELF\tAGGREGATE\t%\tTICKS\tCATEGORY\tFUNCTION\tSOURCE")
		for _, row := range rows {
			percent := 0.0
			if total > 0 {
				percent = 100 * float64(row.AggregateTime) / float64(total)
			}
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%s\t%s\t%s\t%s\n",
				time.Duration(row.SelfTime)*time.Microsecond,
				time.Duration(row.AggregateTime)*time.Microsecond,
				percent,
				humanize.Comma(row.Ticks),
				row.Location.Category,
				row.Location.CallFrame.FunctionName,
				locationSource(row.Location),
			)
		}
		return w.Flush()
	},
}

func locationSource(loc *model.Location) string {
	switch {
	case loc.Source == nil:
		return loc.CallFrame.URL
	case loc.Source.RelativePath != "":
		return fmt.Sprintf("%s:%d", loc.Source.RelativePath, loc.Source.LineNumber)
	default:
		return fmt.Sprintf("%s:%d", loc.Source.Path, loc.Source.LineNumber)
	}
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 0, "maximum rows to print")
	topCmd.Flags().StringVar(&topCategory, "category", "", "only show locations of this category (user, module, system)")
	rootCmd.AddCommand(topCmd)
}
