package task

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VisualizationFormat is an output format for Visualize.
type VisualizationFormat string

const (
	FormatText    VisualizationFormat = "text"
	FormatMermaid VisualizationFormat = "mermaid"
	FormatDOT     VisualizationFormat = "dot"
	FormatJSON    VisualizationFormat = "json"
)

// SupportedFormats returns every format Visualize accepts.
func SupportedFormats() []VisualizationFormat {
	return []VisualizationFormat{FormatText, FormatMermaid, FormatDOT, FormatJSON}
}

// FormatDescription describes a visualization format.
func FormatDescription(format VisualizationFormat) string {
	descriptions := map[VisualizationFormat]string{
		FormatText:    "Human-readable task list",
		FormatMermaid: "Mermaid diagram (for GitHub, GitLab, etc.)",
		FormatDOT:     "Graphviz DOT format (render with `dot -Tpng tasks.dot -o tasks.png`)",
		FormatJSON:    "Structured JSON representation",
	}
	return descriptions[format]
}

// Visualize renders the graph in the given format.
func (g *Graph) Visualize(format VisualizationFormat) (string, error) {
	entries := g.Entries()
	switch format {
	case FormatText:
		return visualizeText(entries), nil
	case FormatMermaid:
		return visualizeMermaid(entries), nil
	case FormatDOT:
		return visualizeDOT(entries), nil
	case FormatJSON:
		return visualizeJSON(entries)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func visualizeText(entries []Entry) string {
	var sb strings.Builder
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}
	for _, e := range entries {
		if len(e.Members) == 0 {
			fmt.Fprintf(&sb, "%-*s  %s\n", width, e.Name, e.Kind)
			continue
		}
		fmt.Fprintf(&sb, "%-*s  %-10s  %s\n", width, e.Name, e.Kind, strings.Join(e.Members, " "))
	}
	return sb.String()
}

func visualizeMermaid(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "    %s[\"%s (%s)\"]\n", e.Name, e.Name, e.Kind)
	}
	sb.WriteString("\n")
	for _, e := range entries {
		for _, m := range e.Members {
			fmt.Fprintf(&sb, "    %s --> %s\n", e.Name, m)
		}
	}
	sb.WriteString("```\n")
	return sb.String()
}

func visualizeDOT(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("digraph Tasks {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")
	for _, e := range entries {
		shape := "box"
		if e.Kind != "task" {
			shape = "ellipse"
		}
		fmt.Fprintf(&sb, "    %q [label=%q, shape=%s];\n", e.Name, e.Name+"\n"+e.Kind, shape)
	}
	sb.WriteString("\n")
	for _, e := range entries {
		for _, m := range e.Members {
			fmt.Fprintf(&sb, "    %q -> %q;\n", e.Name, m)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func visualizeJSON(entries []Entry) (string, error) {
	type jsonEntry struct {
		Name    string   `json:"name"`
		Kind    string   `json:"kind"`
		Members []string `json:"members,omitempty"`
	}
	out := struct {
		Tasks []jsonEntry `json:"tasks"`
		Total int         `json:"total"`
	}{Total: len(entries)}
	for _, e := range entries {
		out.Tasks = append(out.Tasks, jsonEntry(e))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
