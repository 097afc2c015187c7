// Package console provides the interactive command line for local control.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/sweeney/home-controller/internal/control"
	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/logbook"
	"github.com/sweeney/home-controller/internal/sensor"
)

// Controller is the part of control.Controller the console uses.
type Controller interface {
	Snapshot() control.Snapshot
	Request(id string, state device.State) (bool, error)
	Toggle(id string) (device.State, error)
	Sample() (sensor.Reading, error)
	RecentActions(limit int) ([]logbook.ActionEntry, error)
}

// Console reads commands and applies them as local requests.
type Console struct {
	ctrl Controller
	rl   *readline.Instance
	out  io.Writer
}

// New creates a console on the terminal.
func New(ctrl Controller) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "home> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("on"),
			readline.PcItem("off"),
			readline.PcItem("toggle"),
			readline.PcItem("status"),
			readline.PcItem("sample"),
			readline.PcItem("actions"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ctrl: ctrl, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the prompt. Route log
// output through it while the console is running.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is done. cancel is called when
// the user quits.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.exec(line); quit {
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (c *Console) exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "on":
		c.cmdSet(args, device.StateOn)

	case "off":
		c.cmdSet(args, device.StateOff)

	case "toggle", "t":
		c.cmdToggle(args)

	case "status", "s", "devices", "ls":
		c.cmdStatus()

	case "sample":
		c.cmdSample()

	case "actions", "log":
		c.cmdActions(args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Home Controller Commands:
  Devices:
    on <device-id>      - Switch a device on
    off <device-id>     - Switch a device off
    toggle <device-id>  - Flip a device
    status              - Show devices, sensor and bus status

  Sensor & logs:
    sample              - Take a sensor reading now
    actions [n]         - Show the last n actions (default 10)

  General:
    help                - Show this help
    quit                - Exit`)
}

func (c *Console) cmdSet(args []string, state device.State) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "Usage: %s <device-id>\n", strings.ToLower(string(state)))
		return
	}
	changed, err := c.ctrl.Request(args[0], state)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if !changed {
		fmt.Fprintf(c.out, "%s already %s\n", args[0], state)
		return
	}
	fmt.Fprintf(c.out, "%s -> %s\n", args[0], state)
}

func (c *Console) cmdToggle(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: toggle <device-id>")
		return
	}
	next, err := c.ctrl.Toggle(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s -> %s\n", args[0], next)
}

func (c *Console) cmdStatus() {
	snap := c.ctrl.Snapshot()

	fmt.Fprintf(c.out, "Bus:         %s\n", snap.Connectivity.Label())
	if snap.HasReading {
		fmt.Fprintf(c.out, "Temperature: %.2f°C\n", snap.Latest.Value)
	} else {
		fmt.Fprintln(c.out, "Temperature: N/A")
	}
	fmt.Fprintf(c.out, "Last update: %s\n", snap.LastUpdate)
	fmt.Fprintf(c.out, "Uptime:      %s\n\n", snap.Uptime().Truncate(time.Second))

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPIN\tSTATE")
	for _, d := range snap.Devices {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ID, d.Name, d.Address, d.Label())
	}
	tw.Flush()
}

func (c *Console) cmdSample() {
	r, err := c.ctrl.Sample()
	if err != nil && r.Time.IsZero() {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s  %.2f°C\n", r.Timestamp(), r.Value)
	if err != nil {
		fmt.Fprintf(c.out, "Warning: %v\n", err)
	}
}

func (c *Console) cmdActions(args []string) {
	limit := control.DefaultRecentActions
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(c.out, "Usage: actions [n]")
			return
		}
		limit = n
	}

	actions, err := c.ctrl.RecentActions(limit)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(actions) == 0 {
		fmt.Fprintln(c.out, "No actions logged")
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tDEVICE\tACTION")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Timestamp(), a.DeviceID, a.Action)
	}
	tw.Flush()
}
