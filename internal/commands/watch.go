package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/protocol"
	"github.com/xiaot623/gogo/nexus/internal/view"
	"github.com/xiaot623/gogo/nexus/internal/wsclient"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Attach to a running console over websocket",
	Long: `Attach to a running console server, print state changes as they
arrive and send commands typed on stdin.

Commands:
  /run <query>             start an analysis
  /sim <fraud|risk> <v>    run a what-if projection
  /override <reason>       submit an executive override
  /quit                    exit
Anything else is sent to the copilot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connecting to %s...\n", watchAddr)
		client, err := wsclient.Dial(ctx, watchAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Hello(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Connected: %s\n", client.ConnectionID())

		listenErr := make(chan error, 1)
		go func() {
			listenErr <- client.Listen(ctx, newConsolePrinter(out))
			stop()
		}()

		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			close(lines)
		}()

		for {
			select {
			case <-ctx.Done():
				return <-listenErr
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := dispatchInput(client, line)
				if err != nil {
					fmt.Fprintf(out, "! %v\n", err)
				}
				if quit {
					return nil
				}
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "ws://localhost:8088/ws", "Console websocket address")
	AddCommand(watchCmd)
}

// inputSender is the subset of the websocket client driven by stdin.
type inputSender interface {
	StartRun(query string) error
	Chat(text string) error
	Simulate(sc domain.Scenario) error
	Override(reason string) error
}

// dispatchInput sends one line of user input. It reports whether the user
// asked to quit.
func dispatchInput(c inputSender, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.Chat(line)
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/quit":
		return true, nil
	case "/run":
		if rest == "" {
			return false, fmt.Errorf("usage: /run <query>")
		}
		return false, c.StartRun(rest)
	case "/sim":
		typ, val, _ := strings.Cut(rest, " ")
		sc, err := parseScenario(typ + ":" + val)
		if err != nil {
			return false, err
		}
		return false, c.Simulate(sc)
	case "/override":
		return false, c.Override(rest)
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
}

// consolePrinter renders incoming console messages as they change.
type consolePrinter struct {
	mu       sync.Mutex
	w        io.Writer
	gen      uint64
	step     int
	runID    string
	lastErr  string
	chatSeen int
	simAt    int64
}

func newConsolePrinter(w io.Writer) *consolePrinter {
	return &consolePrinter{w: w, step: -1}
}

func (p *consolePrinter) OnState(msg *protocol.StateMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := msg.State

	if g := snap.Progress.Generation; g != 0 {
		if g != p.gen {
			p.gen = g
			p.step = -1
		}
		for p.step < snap.Progress.Step {
			p.step++
			st := domain.Stages[p.step]
			fmt.Fprintf(p.w, "[%d/%d] %s %s (%s)\n", p.step+1, domain.StageCount, st.Icon, st.Name, st.Agent)
		}
	}

	if snap.Run != nil && snap.Run.RunID != p.runID {
		p.runID = snap.Run.RunID
		fmt.Fprintf(p.w, "Run %s complete: %s\n", p.runID, snap.Run.Result.Decision)
	}
	if snap.LastError != p.lastErr {
		p.lastErr = snap.LastError
		if p.lastErr != "" {
			fmt.Fprintf(p.w, "Analysis failed: %s\n", p.lastErr)
		}
	}

	if sim := view.Simulation(snap).Result; sim != nil && sim.RequestedAt.UnixNano() != p.simAt {
		p.simAt = sim.RequestedAt.UnixNano()
		fmt.Fprintf(p.w, "Projection %s %.2f -> %.2f: %s\n", sim.Parameter, sim.ValueBefore, sim.ValueAfter, sim.BusinessImpact)
	}

	for ; p.chatSeen < len(snap.Chat); p.chatSeen++ {
		m := snap.Chat[p.chatSeen]
		if m.Role == domain.ChatRoleUser {
			continue
		}
		fmt.Fprintf(p.w, "%s > %s\n", m.Role, m.Text)
	}
}

func (p *consolePrinter) OnNotice(msg *protocol.NoticeMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "(%s) %s\n", msg.Notice.Level, msg.Notice.Message)
}

func (p *consolePrinter) OnRunStarted(msg *protocol.RunStartedMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Analysis started (generation %d)\n", msg.Generation)
}

func (p *consolePrinter) OnError(msg *protocol.ErrorMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "! %s: %s\n", msg.Code, msg.Message)
}
