package script

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"backtest-core/internal/order"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMailbox() *order.Mailbox {
	n := 0
	return order.NewMailbox(func() string {
		n++
		return "id"
	}, nil)
}

func TestApplyMapsActionsOntoMailbox(t *testing.T) {
	mbox := newMailbox()
	actions := []action{
		{Op: "enterMarket", Quantity: d("1")},
		{Op: "exitStopLimit", Quantity: d("2"), StopPrice: d("5"), LimitPrice: d("4")},
	}
	if err := apply(actions, mbox); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	reqs := mbox.Requests()
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if reqs[0].Kind != order.KindMarket || reqs[0].Side != order.SideEntry {
		t.Errorf("first request = %+v, want entry market", reqs[0])
	}
	if reqs[1].Kind != order.KindStopLimit || reqs[1].Side != order.SideExit {
		t.Errorf("second request = %+v, want exit stop-limit", reqs[1])
	}
	if !reqs[1].StopPrice.Equal(d("5")) || !reqs[1].LimitPrice.Equal(d("4")) {
		t.Errorf("second request prices = %s/%s, want 5/4", reqs[1].StopPrice, reqs[1].LimitPrice)
	}
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	if err := apply([]action{{Op: "shrug"}}, newMailbox()); err == nil {
		t.Fatal("expected an error for an unknown action")
	}
}

func TestFuncAdapter(t *testing.T) {
	called := false
	fn := Func(func(snap *Snapshot, mbox *order.Mailbox) error {
		called = true
		mbox.EnterMarket(d("1"))
		return nil
	})
	mbox := newMailbox()
	if err := fn.Execute(context.Background(), Script{}, &Snapshot{}, mbox); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !called {
		t.Fatal("the wrapped function was not called")
	}
	if len(mbox.Requests()) != 1 {
		t.Errorf("got %d requests, want 1", len(mbox.Requests()))
	}
}

func TestProcessSandboxRejectsUnknownLanguage(t *testing.T) {
	p := &ProcessSandbox{}
	err := p.Execute(context.Background(), Script{Language: "cobol"}, &Snapshot{}, newMailbox())
	if err == nil {
		t.Fatal("expected an error for an unsupported language")
	}
}
