package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"prompt-runner/internal/model"
	"prompt-runner/internal/service"

	"github.com/spf13/cobra"
)

var (
	runInputFile string
	runFacts     bool
	runItems     []string
	runNotes     []string
	runFavorite  bool
	runMarkdown  bool
)

var runCmd = &cobra.Command{
	Use:   "run [text]",
	Short: "Run the pipeline once on the given text",
	Long: `Selects templates for the input (or uses --items), executes them in order
and saves the run to the execution log.

The input is taken from the arguments, from --file, or from stdin when
neither is given.

Example:
  prompt-runner run --facts "notes from today's planning meeting"
  prompt-runner run -f notes.txt --items summary_full,analysis_swot --note analysis_swot="focus on risks"`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&runInputFile, "file", "f", "", "read the input text from a file")
	runCmd.Flags().BoolVar(&runFacts, "facts", false, "extract facts before running")
	runCmd.Flags().StringSliceVar(&runItems, "items", nil, "template ids to run instead of AI selection")
	runCmd.Flags().StringArrayVar(&runNotes, "note", nil, "per-template note as id=text (repeatable)")
	runCmd.Flags().BoolVar(&runFavorite, "favorite", false, "mark --items as a favorite run")
	runCmd.Flags().BoolVar(&runMarkdown, "markdown", false, "print the saved log as Markdown")
}

func runOnce(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	notes, err := parseNotes(runNotes)
	if err != nil {
		return err
	}

	svc, err := service.NewServiceContext(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	report, runErr := svc.Runner.Run(cmd.Context(), service.RunRequest{
		Text:         text,
		ExtractFacts: runFacts,
		ItemIDs:      runItems,
		Favorite:     runFavorite,
		Notes:        notes,
	}, func(p service.Progress) {
		status := "ok"
		if !p.Success {
			status = "failed"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s %s\n", p.Index, p.Total, p.ItemTitle, status)
	})
	if report == nil {
		return runErr
	}

	if runMarkdown {
		fmt.Fprint(out, service.RenderRunMarkdown(report.Log))
	} else {
		printReport(out, report)
	}
	if report.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", report.Warning)
	}
	if service.IsCanceled(runErr) {
		return fmt.Errorf("运行被中断: %w", runErr)
	}
	return nil
}

func readInput(stdin io.Reader, args []string) (string, error) {
	switch {
	case runInputFile != "":
		b, err := os.ReadFile(runInputFile)
		if err != nil {
			return "", fmt.Errorf("读取输入文件失败: %w", err)
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return string(b), nil
	}
}

func parseNotes(raw []string) (map[string]string, error) {
	notes := make(map[string]string, len(raw))
	for _, n := range raw {
		id, text, ok := strings.Cut(n, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("备注格式应为 id=text: %q", n)
		}
		notes[strings.TrimSpace(id)] = text
	}
	return notes, nil
}

func printReport(w io.Writer, report *service.RunReport) {
	if report.Input.ExtractedFacts != nil {
		fmt.Fprintf(w, "== Extracted facts ==\n%s\n\n", *report.Input.ExtractedFacts)
	}
	for i, item := range report.Items {
		res := report.Results[i]
		fmt.Fprintf(w, "== %s (%s, confidence %.2f) ==\n", item.Title, item.Category.DisplayName(), item.Selection.Confidence)
		fmt.Fprintln(w, resultText(res))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s (log %s)\n", service.SummaryText(report.Summary), report.Log.ID)
}

func resultText(res model.ExecutionResult) string {
	if res.Success {
		return res.Content
	}
	return "ERROR: " + res.ErrorMessage
}
