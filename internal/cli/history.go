package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/store"
)

// historyCommand creates the history command for builds saved with --save.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage saved builds",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyDeleteCommand())

	return cmd
}

func (c *CLI) historyListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved builds, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := newHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer history.Close()

			recs, err := history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No saved builds")
				printNextStep("Save one", appName+" build --save detections.json")
				return nil
			}
			fmt.Println(historyTable(recs, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")

	return cmd
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a saved build, or write its layout with -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateLayoutID(args[0]); err != nil {
				return err
			}
			history, err := newHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer history.Close()

			rec, err := history.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output != "" {
				if err := layout.WriteOutputFile(rec.Layout, output); err != nil {
					return fmt.Errorf("write output %s: %w", output, err)
				}
				printSuccess("Layout written")
				printFile(output)
				return nil
			}

			printKeyValue("id", rec.ID)
			printKeyValue("image", rec.ImagePath)
			printKeyValue("input", shortHash(rec.InputHash))
			printKeyValue("created", rec.CreatedAt.Local().Format(time.DateTime))
			printStats(rec.Stats, false)
			printWarnings(rec.Warnings)
			printNewline()
			printNextStep("Browse", appName+" inspect "+rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the layout JSON to this file")

	return cmd
}

func (c *CLI) historyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]...",
		Short: "Delete saved builds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if err := errors.ValidateLayoutID(id); err != nil {
					return err
				}
			}
			history, err := newHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer history.Close()

			var deleted int
			var missing []string
			for _, id := range args {
				if _, err := history.Get(cmd.Context(), id); errors.Is(err, errors.ErrCodeLayoutNotFound) {
					missing = append(missing, id)
					continue
				} else if err != nil {
					return err
				}
				if err := history.Delete(cmd.Context(), id); err != nil {
					return err
				}
				deleted++
			}

			if deleted == 0 {
				return errors.New(errors.ErrCodeLayoutNotFound, "no saved build with id %s", strings.Join(missing, ", "))
			}
			printSuccess("Deleted %d build(s)", deleted)
			for _, id := range missing {
				printWarning("No saved build with id %s", id)
			}
			return nil
		},
	}
}

// historyTable renders saved builds with ages relative to now.
func historyTable(recs []*store.Record, now time.Time) string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		image := rec.ImagePath
		if image == "" {
			image = "—"
		}
		rows = append(rows, []string{
			rec.ID,
			image,
			fmt.Sprintf("%d", rec.Stats.Nodes),
			fmt.Sprintf("%d", rec.Stats.Depth),
			formatAge(now.Sub(rec.CreatedAt), rec.CreatedAt),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Image", "Nodes", "Depth", "Saved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 4:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func formatAge(d time.Duration, t time.Time) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
