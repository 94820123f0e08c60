package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"azcost/cmd/portal"
	"azcost/internal/app"
	"azcost/internal/costs"
	"azcost/internal/llm"
	"azcost/internal/output"
)

var menuStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 2)

var menuItems = []string{
	"Show costs",
	"Open resource in portal",
	"AI analysis",
	"Category summary",
	"Refresh data",
	"Exit",
}

// NewShellCmd creates the interactive shell command
func NewShellCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse costs in an interactive menu",
		Long: `Start an interactive menu to view costs, open resources in the portal,
run the AI analysis, show the category summary and refresh the data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Start(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "top", output.DefaultCostLimit, "Number of resources shown by \"Show costs\", 0 for all")
	return cmd
}

// Start runs the menu on the command's input and output streams
func Start(cmd *cobra.Command, limit int) error {
	a := app.ForCommand(cmd)
	s := &Shell{
		app:   a,
		in:    bufio.NewScanner(cmd.InOrStdin()),
		out:   a.Stdout,
		limit: limit,
	}
	return s.Run(cmd.Context())
}

// Shell is the interactive menu loop
type Shell struct {
	app      *app.App
	in       *bufio.Scanner
	out      io.Writer
	limit    int
	snapshot *costs.Snapshot
}

// errQuit ends the loop on Exit or end of input
var errQuit = errors.New("quit")

func (s *Shell) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		fmt.Fprintln(s.out)
		return "", errQuit
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Shell) printMenu() {
	var b strings.Builder
	b.WriteString(color.New(color.Bold).Sprint("Azure Cost Analyzer"))
	if s.snapshot != nil {
		fmt.Fprintf(&b, "\n%s %s, %d resources",
			s.snapshot.Source, output.FormatAmount(s.snapshot.Total(), s.snapshot.Currency), len(s.snapshot.Records))
	}
	for i, item := range menuItems {
		fmt.Fprintf(&b, "\n%d. %s", i+1, item)
	}
	fmt.Fprintln(s.out, menuStyle.Render(b.String()))
}

func (s *Shell) refresh(ctx context.Context, force bool) error {
	fetch := s.app.Fetch
	if force {
		fetch = s.app.Refresh
	}
	snapshot, err := fetch(ctx)
	if err != nil {
		return err
	}
	s.snapshot = snapshot
	return nil
}

// Run loads the costs and serves the menu until Exit or end of input
func (s *Shell) Run(ctx context.Context) error {
	if err := s.refresh(ctx, false); err != nil {
		return err
	}

	for {
		s.printMenu()
		choice, err := s.readLine("Choose an option: ")
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.handle(ctx, choice); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			fmt.Fprintln(s.out, color.RedString("Error: %v", err))
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) handle(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		fmt.Fprint(s.out, output.RenderCosts(s.snapshot, s.limit))
	case "2":
		return s.openPortal(ctx)
	case "3":
		s.analyze(ctx)
	case "4":
		fmt.Fprint(s.out, output.RenderSummary(costs.Summarize(s.snapshot), s.snapshot.Currency))
	case "5":
		if err := s.refresh(ctx, true); err != nil {
			return err
		}
		fmt.Fprintln(s.out, color.GreenString("Data refreshed (%s)", s.snapshot.Source))
	case "6", "q", "quit", "exit":
		return errQuit
	default:
		fmt.Fprintf(s.out, "Invalid option %q, choose 1-%d\n", choice, len(menuItems))
	}
	return nil
}

func (s *Shell) openPortal(ctx context.Context) error {
	line, err := s.readLine(fmt.Sprintf("Resource number (1-%d): ", len(s.snapshot.Records)))
	if err != nil {
		return err
	}
	rank, err := strconv.Atoi(line)
	if err != nil {
		return fmt.Errorf("invalid resource number %q", line)
	}

	record, url, err := portal.URLForRank(s.snapshot, rank, s.app.PortalHost())
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Opening %s\n%s\n", record.ResourceName, url)
	if err := portal.Open(ctx, s.app.Runner, url); err != nil {
		fmt.Fprintf(s.out, "Could not open a browser (%v), use the link above.\n", err)
	}
	return nil
}

func (s *Shell) analyze(ctx context.Context) {
	analysis, err := s.app.Analyze(ctx, s.snapshot)
	if err != nil {
		if errors.Is(err, llm.ErrInferenceUnavailable) {
			fmt.Fprintln(s.out, color.YellowString("AI analysis unavailable"))
			return
		}
		fmt.Fprintln(s.out, color.RedString("AI analysis failed: %v", err))
		return
	}
	fmt.Fprintln(s.out, analysis)
}
