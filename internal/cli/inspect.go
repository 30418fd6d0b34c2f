package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
)

// inspectCommand creates the inspect command for browsing a layout tree.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect [layout.json | id]",
		Short: "Browse a layout tree interactively",
		Long: `Browse a layout tree interactively.

The argument is either a layout.json file or the ID of a build saved with
'build --save'. Use --plain to print the tree without the interactive view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, title, err := c.loadLayout(cmd, args[0])
			if err != nil {
				return err
			}
			if plain {
				fmt.Println(renderTree(out.Layout))
				return nil
			}
			_, err = tea.NewProgram(NewTreeModel(title, out.Layout), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the tree instead of opening the browser")

	return cmd
}

// loadLayout reads a layout file, or a saved build when arg is a layout ID.
func (c *CLI) loadLayout(cmd *cobra.Command, arg string) (*layout.Output, string, error) {
	if errors.ValidateLayoutID(arg) == nil {
		history, err := newHistory()
		if err != nil {
			return nil, "", fmt.Errorf("open history: %w", err)
		}
		defer history.Close()

		rec, err := history.Get(cmd.Context(), arg)
		if err != nil {
			return nil, "", err
		}
		title := rec.ID
		if rec.ImagePath != "" {
			title = rec.ImagePath
		}
		return rec.Layout, title, nil
	}

	out, err := layout.ReadOutputFile(arg)
	if err != nil {
		return nil, "", fmt.Errorf("load layout %s: %w", arg, err)
	}
	title := arg
	if out.ImagePath != "" {
		title = out.ImagePath
	}
	return out, title, nil
}

// renderTree draws the hierarchy with box-drawing connectors.
func renderTree(root *layout.Node) string {
	subtrees := map[*layout.Node]*tree.Tree{root: newSubtree(root)}
	root.Walk(func(n *layout.Node, _ int) bool {
		t := subtrees[n]
		for _, child := range n.Children {
			if len(child.Children) == 0 {
				t.Child(nodeLabel(child))
				continue
			}
			sub := newSubtree(child)
			subtrees[child] = sub
			t.Child(sub)
		}
		return true
	})
	return subtrees[root].String()
}

func newSubtree(n *layout.Node) *tree.Tree {
	return tree.Root(nodeLabel(n)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim)
}

func nodeLabel(n *layout.Node) string {
	b := n.Layout
	geom := StyleDim.Render(fmt.Sprintf("%g,%g %gx%g", b.Left, b.Top, b.Width, b.Height))
	if n.IsText() {
		return treeTextStyle.Render(n.ID+" "+quoteText(n.TextValue())) + " " + geom
	}
	return n.ID + " " + geom
}
