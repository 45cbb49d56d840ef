package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"backtest-core/internal/order"
)

// Sandbox executes the strategy script against a snapshot. The mailbox is
// the script's only output channel; implementations collect whatever order
// requests the script issued into it. The engine calls Execute exactly once
// per bar and treats any error as fatal to the run.
type Sandbox interface {
	Execute(ctx context.Context, s Script, snap *Snapshot, mbox *order.Mailbox) error
}

// Func adapts a plain Go function to the Sandbox interface, used for
// built-in strategies and tests.
type Func func(snap *Snapshot, mbox *order.Mailbox) error

// Execute runs the wrapped function. The script body is ignored.
func (f Func) Execute(_ context.Context, _ Script, snap *Snapshot, mbox *order.Mailbox) error {
	return f(snap, mbox)
}

// action is one order instruction emitted by an external script.
type action struct {
	Op         string          `json:"op"`
	Quantity   decimal.Decimal `json:"quantity"`
	StopPrice  decimal.Decimal `json:"stopPrice"`
	LimitPrice decimal.Decimal `json:"limitPrice"`
	OrderID    string          `json:"orderId"`
	Kind       order.Kind      `json:"kind"`
	Side       order.Side      `json:"side"`
}

// ProcessSandbox runs the script in an interpreter subprocess. The snapshot
// is written to the process's stdin as JSON; the process prints a JSON array
// of order actions on stdout.
type ProcessSandbox struct {
	// Timeout bounds one script invocation; zero means no limit.
	Timeout time.Duration
	// WorkDir is where script files are staged; empty uses the OS temp dir.
	WorkDir string
}

// interpreters maps script languages to their interpreter and file suffix.
var interpreters = map[string]struct {
	command string
	suffix  string
}{
	"python":     {"python3", ".py"},
	"javascript": {"node", ".js"},
}

// Execute stages the script body in a file, runs the interpreter with the
// snapshot on stdin, and replays the returned actions onto the mailbox.
func (p *ProcessSandbox) Execute(ctx context.Context, s Script, snap *Snapshot, mbox *order.Mailbox) error {
	interp, ok := interpreters[s.Language]
	if !ok {
		return fmt.Errorf("sandbox: unsupported script language %q", s.Language)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	dir := p.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	file, err := os.CreateTemp(dir, "strategy-*"+interp.suffix)
	if err != nil {
		return fmt.Errorf("sandbox: stage script: %w", err)
	}
	defer os.Remove(file.Name())
	if _, err := file.WriteString(s.Body); err != nil {
		file.Close()
		return fmt.Errorf("sandbox: stage script: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("sandbox: stage script: %w", err)
	}

	input, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sandbox: encode snapshot: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, interp.command, filepath.Clean(file.Name()))
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("sandbox: script timed out at bar %s: %w", snap.System.BarTime, ctx.Err())
		}
		return fmt.Errorf("sandbox: script failed at bar %s: %w (stderr: %s)", snap.System.BarTime, err, stderr.String())
	}

	var actions []action
	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil
	}
	if err := json.Unmarshal(out, &actions); err != nil {
		return fmt.Errorf("sandbox: decode script output: %w", err)
	}
	return apply(actions, mbox)
}

// apply replays script actions onto the mailbox in issue order.
func apply(actions []action, mbox *order.Mailbox) error {
	for _, a := range actions {
		switch a.Op {
		case "enterMarket":
			mbox.EnterMarket(a.Quantity)
		case "enterLimit":
			mbox.EnterLimit(a.Quantity, a.LimitPrice)
		case "enterStopMarket":
			mbox.EnterStopMarket(a.Quantity, a.StopPrice)
		case "enterStopLimit":
			mbox.EnterStopLimit(a.Quantity, a.StopPrice, a.LimitPrice)
		case "exitMarket":
			mbox.ExitMarket(a.Quantity)
		case "exitLimit":
			mbox.ExitLimit(a.Quantity, a.LimitPrice)
		case "exitStopMarket":
			mbox.ExitStopMarket(a.Quantity, a.StopPrice)
		case "exitStopLimit":
			mbox.ExitStopLimit(a.Quantity, a.StopPrice, a.LimitPrice)
		case "cancelOrder":
			mbox.CancelOrder(a.OrderID)
		case "cancelAllOrders":
			mbox.CancelAllOrders(a.Kind, a.Side)
		default:
			return fmt.Errorf("sandbox: unknown action %q", a.Op)
		}
	}
	return nil
}
