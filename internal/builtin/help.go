package builtin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bailuo/redspot/internal/cli"
	"github.com/bailuo/redspot/internal/core"
	"github.com/bailuo/redspot/internal/params"
)

// GlobalParam describes a command-line option shared by every task.
type GlobalParam struct {
	Name        string
	Description string
	IsFlag      bool
}

// GlobalParams are the options the CLI accepts before the task name.
var GlobalParams = []GlobalParam{
	{Name: "config", Description: "A redspot config file."},
	{Name: "network", Description: "The network to connect to."},
	{Name: "log-level", Description: "Log level: error, warn, info, debug or trace (0-4)."},
	{Name: "log-file", Description: "Also write every log message to this file."},
	{Name: "verbose", Description: "Enables debug logging.", IsFlag: true},
}

// HelpPrinter renders help for the registered tasks.
type HelpPrinter struct {
	name    string
	version string
	tasks   *core.Registry

	titleStyle   lipgloss.Style
	headingStyle lipgloss.Style
	nameStyle    lipgloss.Style
	dimStyle     lipgloss.Style
}

// NewHelpPrinter creates a printer for tasks.
func NewHelpPrinter(version string, tasks *core.Registry) *HelpPrinter {
	return &HelpPrinter{
		name:    "redspot",
		version: version,
		tasks:   tasks,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		headingStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")),

		nameStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")), // Blue

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray
	}
}

// PrintGlobalHelp lists the global options and every public task.
func (p *HelpPrinter) PrintGlobalHelp(w io.Writer) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", p.titleStyle.Render(fmt.Sprintf("%s version %s", p.name, p.version)))
	fmt.Fprintf(&b, "Usage: %s [GLOBAL OPTIONS] run <TASK> [TASK OPTIONS]\n\n", p.name)

	b.WriteString(p.headingStyle.Render("GLOBAL OPTIONS:") + "\n\n")
	width := 0
	for _, g := range GlobalParams {
		width = max(width, len(g.Name)+2)
	}
	for _, g := range GlobalParams {
		fmt.Fprintf(&b, "  %s  %s\n", p.nameStyle.Render(pad("--"+g.Name, width)), g.Description)
	}

	b.WriteString("\n" + p.headingStyle.Render("AVAILABLE TASKS:") + "\n\n")
	names := p.tasks.Names(false)
	width = 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		def, _ := p.tasks.Lookup(name)
		fmt.Fprintf(&b, "  %s  %s\n", p.nameStyle.Render(pad(name, width)), def.Description())
	}

	fmt.Fprintf(&b, "\nTo get help for a specific task run: %s help [task]\n", p.name)
	io.WriteString(w, b.String())
}

// PrintTaskHelp prints usage, options and positional arguments of a task.
func (p *HelpPrinter) PrintTaskHelp(w io.Writer, name string) error {
	def, ok := p.tasks.Lookup(name)
	if !ok {
		return &core.UnrecognizedTaskError{Name: name}
	}

	named := def.ParamDefinitions()
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	positional := def.PositionalParamDefinitions()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", p.titleStyle.Render(fmt.Sprintf("%s: %s", p.name, name)))
	if d := def.Description(); d != "" {
		b.WriteString(d + "\n\n")
	}

	usage := []string{p.name, "[GLOBAL OPTIONS]", "run", name}
	for _, n := range names {
		usage = append(usage, paramUsage(named[n]))
	}
	if len(named) > 0 && len(positional) > 0 {
		usage = append(usage, "[--]")
	}
	for _, param := range positional {
		usage = append(usage, positionalUsage(param))
	}
	fmt.Fprintf(&b, "Usage: %s\n", strings.Join(usage, " "))

	if len(names) > 0 {
		b.WriteString("\n" + p.headingStyle.Render("OPTIONS:") + "\n\n")
		width := 0
		for _, n := range names {
			width = max(width, len(cli.CamelToDash(n))+2)
		}
		for _, n := range names {
			fmt.Fprintf(&b, "  %s  %s\n", p.nameStyle.Render(pad("--"+cli.CamelToDash(n), width)), p.describe(named[n]))
		}
	}

	if len(positional) > 0 {
		b.WriteString("\n" + p.headingStyle.Render("POSITIONAL ARGUMENTS:") + "\n\n")
		width := 0
		for _, param := range positional {
			width = max(width, len(param.Name))
		}
		for _, param := range positional {
			fmt.Fprintf(&b, "  %s  %s\n", p.nameStyle.Render(pad(param.Name, width)), p.describe(param))
		}
	}

	fmt.Fprintf(&b, "\nFor global options help run: %s help\n", p.name)
	_, err := io.WriteString(w, b.String())
	return err
}

func (p *HelpPrinter) describe(param *params.ParamDefinition) string {
	desc := param.Description
	if param.IsOptional && param.DefaultValue != nil && !param.IsFlag {
		desc += p.dimStyle.Render(fmt.Sprintf(" (default: %v)", param.DefaultValue))
	}
	return desc
}

func paramUsage(p *params.ParamDefinition) string {
	s := "--" + cli.CamelToDash(p.Name)
	if !p.IsFlag {
		s += " <" + strings.ToUpper(p.TypeName()) + ">"
	}
	if p.IsOptional {
		return "[" + s + "]"
	}
	return s
}

func positionalUsage(p *params.ParamDefinition) string {
	s := p.Name
	if p.IsVariadic {
		s += "..."
	}
	if p.IsOptional {
		return "[" + s + "]"
	}
	return s
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func registerHelp(reg *core.Registry, opts Options) {
	reg.DefineTask(TaskHelp, "Prints this message", func(ctx context.Context, args core.Arguments, env *core.Environment, runSuper *core.RunSuper) (interface{}, error) {
		printer := NewHelpPrinter(opts.Version, env.Tasks)
		if name, ok := args["task"].(string); ok && name != "" {
			return nil, printer.PrintTaskHelp(opts.Out, name)
		}
		printer.PrintGlobalHelp(opts.Out)
		return nil, nil
	}).AddOptionalPositionalParam("task", "An optional task to print more info about", nil, params.String)
}
