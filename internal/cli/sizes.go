package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/youruser/bannerapp/internal/geometry"
)

func newSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List the supported banner sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), sizesTable(geometry.All()))
			return nil
		},
	}
}

func sizesTable(gs []geometry.Geometry) string {
	rows := make([][]string, 0, len(gs))
	for _, g := range gs {
		rows = append(rows, []string{
			g.SizeID,
			fmt.Sprintf("%dx%d", g.CanvasWidth, g.CanvasHeight),
			fmt.Sprintf("%d,%d", g.VisualOffsetX, g.VisualOffsetY),
			strconv.Itoa(g.CornerRadius),
			g.Ext(),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDim).
		Headers("Size", "Canvas", "Offset", "Radius", "Format").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader.Padding(0, 1)
			case col == 0:
				return styleNumber.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}
