package main

import (
	"fmt"
	"text/tabwriter"

	"prompt-runner/internal/service"

	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the saved execution logs",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(cmd, func(r *service.LogRecorder) error {
			logs := r.List(cmd.Context())
			if logsLimit > 0 && logsLimit < len(logs) {
				logs = logs[:logsLimit]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEXECUTED AT\tRESULT\tINPUT")
			for _, l := range logs {
				s := service.SummaryText(service.SummarizeLog(l))
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.ExecutedAt.Format("2006-01-02 15:04"), s, preview(l.InputText, 40))
			}
			return tw.Flush()
		})
	},
}

var logsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one run as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(cmd, func(r *service.LogRecorder) error {
			log, ok := r.Get(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("日志不存在: %s", args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), service.RenderRunMarkdown(log))
			return nil
		})
	},
}

var logsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(cmd, func(r *service.LogRecorder) error {
			return r.Delete(cmd.Context(), args[0])
		})
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(cmd, func(r *service.LogRecorder) error {
			return r.Clear(cmd.Context())
		})
	},
}

var logsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Failure rate per template across saved runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(cmd, func(r *service.LogRecorder) error {
			st := service.ComputeLogStats(r.List(cmd.Context()))
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TEMPLATE\tRUNS\tFAILED\tFAILURE RATE\t95% CI")
			for _, ts := range st.Templates {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t[%.2f, %.2f]\n", ts.ItemID, ts.N, ts.Failed, ts.FailureRate, ts.CI95Low, ts.CI95High)
			}
			return tw.Flush()
		})
	},
}

func init() {
	logsListCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "show at most n runs")
	logsCmd.AddCommand(logsListCmd, logsShowCmd, logsDeleteCmd, logsClearCmd, logsStatsCmd)
}

// withRecorder 日志命令只需要存储，不要求配置 API Key
func withRecorder(cmd *cobra.Command, fn func(*service.LogRecorder) error) error {
	store, closeStore, err := service.OpenLogStore(cfg, logger.Named("db"))
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(service.NewLogRecorder(store, cfg.LogStore.Capacity, logger))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
