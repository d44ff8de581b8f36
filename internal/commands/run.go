package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	"github.com/xiaot623/gogo/nexus/internal/state"
	"github.com/xiaot623/gogo/nexus/internal/view"
)

var (
	runJSON     bool
	runSimulate string
	runOverride string
	runAsk      []string
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Run one analysis headlessly and print the result",
	Long: `Run one analysis against the backend without starting the server. The
agent timeline is printed as it advances, followed by the report.

Example:
  nexus run "Analyze recent transaction anomalies and assess risk."
  nexus run "Assess VIP churn" --simulate risk:0.8 --override "Board directive"
  nexus run "Assess fraud" --ask "summarize" --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Log.File == "" {
			logger.Log.SetOutput(cmd.ErrOrStderr())
		}

		var scenario *domain.Scenario
		if runSimulate != "" {
			sc, err := parseScenario(runSimulate)
			if err != nil {
				return err
			}
			scenario = &sc
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if !runJSON {
			a.store.Subscribe(timelinePrinter(out))
		}

		run, err := a.svc.RunAnalysis(ctx, args[0])
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if scenario != nil {
			if _, err := a.svc.RunSimulation(ctx, *scenario); err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
		}
		var ack *domain.OverrideAck
		if runOverride != "" {
			if ack, err = a.svc.SubmitOverride(ctx, runOverride); err != nil {
				return fmt.Errorf("override failed: %w", err)
			}
		}
		for _, q := range runAsk {
			a.svc.SendChat(q)
		}
		if len(runAsk) > 0 {
			waitForReplies(ctx, a.store, len(runAsk))
		}

		snap := a.store.Snapshot()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"run":        run,
				"report":     view.Report(snap, cfg.BackendURL),
				"simulation": view.Simulation(snap),
				"override":   ack,
				"chat":       snap.Chat,
			})
		}

		printReport(out, snap, cfg.BackendURL)
		if scenario != nil {
			printSimulation(out, view.Simulation(snap))
		}
		if ack != nil {
			fmt.Fprintf(out, "\n%s\n", domain.NoticeOverridePersisted)
		}
		for _, m := range snap.Chat[1:] {
			fmt.Fprintf(out, "%-4s > %s\n", m.Role, m.Text)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the result as JSON")
	runCmd.Flags().StringVar(&runSimulate, "simulate", "", "Run a what-if scenario after the analysis, as type:value (e.g. fraud:0.4)")
	runCmd.Flags().StringVar(&runOverride, "override", "", "Submit an executive override with this reason")
	runCmd.Flags().StringArrayVar(&runAsk, "ask", nil, "Ask the copilot a question (repeatable)")
	AddCommand(runCmd)
}

// parseScenario parses "type:value".
func parseScenario(s string) (domain.Scenario, error) {
	typ, val, ok := strings.Cut(s, ":")
	if !ok {
		return domain.Scenario{}, fmt.Errorf("invalid scenario %q, want type:value", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("invalid scenario value %q: %w", val, err)
	}
	return domain.Scenario{Type: domain.ScenarioType(strings.TrimSpace(typ)), Value: v}, nil
}

// timelinePrinter prints each stage once as the timeline reaches it.
func timelinePrinter(w io.Writer) state.Listener {
	var mu sync.Mutex
	printed := -1
	var gen uint64
	return func(snap state.Snapshot) {
		if snap.Progress.Generation == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if snap.Progress.Generation != gen {
			gen = snap.Progress.Generation
			printed = -1
		}
		for printed < snap.Progress.Step {
			printed++
			st := domain.Stages[printed]
			fmt.Fprintf(w, "[%d/%d] %s %s (%s)\n", printed+1, domain.StageCount, st.Icon, st.Name, st.Agent)
		}
	}
}

func printReport(w io.Writer, snap state.Snapshot, backendURL string) {
	wf := view.Workflow(snap)
	fmt.Fprintf(w, "\nRun %s\n", wf.RunID)
	for _, card := range wf.Stages {
		fmt.Fprintf(w, "  %-12s %s\n", card.Stage.Name, card.Output)
	}
	if len(wf.Debate) > 0 {
		fmt.Fprintln(w, "\nDebate")
		for _, d := range wf.Debate {
			fmt.Fprintf(w, "  [%s] %s: %s\n", d.Avatar, d.Speaker, d.Message)
		}
	}

	rep := view.Report(snap, backendURL)
	fmt.Fprintf(w, "\nDecision: %s\n", rep.Decision)
	if rep.ReportURL != "" {
		fmt.Fprintf(w, "Report:   %s\n", rep.ReportURL)
	}
}

func printSimulation(w io.Writer, sim view.SimulationView) {
	if sim.Result == nil {
		return
	}
	r := sim.Result
	fmt.Fprintf(w, "\nSimulation: %s %.2f -> %.2f\n  %s\n", r.Parameter, r.ValueBefore, r.ValueAfter, r.BusinessImpact)
}

// waitForReplies blocks until n bot replies beyond the current ones have
// been delivered or ctx is done.
func waitForReplies(ctx context.Context, store *state.Store, n int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		bots := 0
		for _, m := range store.Snapshot().Chat {
			if m.Role == domain.ChatRoleBot {
				bots++
			}
		}
		if bots >= n {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
