package commands

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitepipe/internal/task"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Format  string `short:"f" help:"Output format: text, mermaid, dot, json" default:"text" enum:"text,mermaid,dot,json"`
	Output  string `short:"o" help:"Output file path (optional, prints to stdout if not specified)"`
	Formats bool   `help:"List available formats and exit"`
}

// Run executes the command.
func (cmd *ListCmd) Run(g *Global, root *CLI) error {
	if cmd.Formats {
		fmt.Fprintln(g.Stdout, "Available formats:")
		for _, format := range task.SupportedFormats() {
			fmt.Fprintf(g.Stdout, "  %-10s %s\n", format, task.FormatDescription(format))
		}
		return nil
	}

	s, err := root.LoadSite()
	if err != nil {
		return err
	}
	output, err := s.Graph().Visualize(task.VisualizationFormat(cmd.Format))
	if err != nil {
		return fmt.Errorf("failed to visualize task graph: %w", err)
	}

	if cmd.Output != "" {
		if err := os.WriteFile(cmd.Output, []byte(output), 0o644); err != nil { //nolint:gosec // user-requested output file
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("Task graph written", "file", cmd.Output, "format", cmd.Format)
		return nil
	}
	_, err = fmt.Fprint(g.Stdout, output)
	return err
}
