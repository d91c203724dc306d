package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/crowdfund/backend/internal/campaign"
	"github.com/crowdfund/backend/internal/session"
)

type actionEnv struct {
	ctx        context.Context
	view       *campaign.DetailView
	dispatcher *campaign.Dispatcher
}

// runAction connects the wallet, loads the campaign and hands both to act.
// The dispatcher already printed the outcome, so its errors only set the exit code.
func runAction(id string, act func(*actionEnv) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier := campaign.WriterNotifier{Out: a.out}

	if _, err := a.session.Connect(ctx); err != nil {
		if errors.Is(err, session.ErrNoWallet) {
			fmt.Fprintf(a.out, "No wallet found. Install one: %s\n", session.WalletInstallURL)
		}
		return err
	}
	contract, err := a.session.Contract()
	if err != nil {
		return err
	}

	view := campaign.NewDetailView(id, a.api, a.session, a.log)
	if err := view.Refetch(ctx); err != nil {
		return err
	}

	err = act(&actionEnv{
		ctx:        ctx,
		view:       view,
		dispatcher: campaign.NewDispatcher(contract, notifier, a.log),
	})
	if errors.Is(err, campaign.ErrNotAllowed) {
		fmt.Fprintln(a.out, "This action is not available for your account on this campaign.")
	}
	return err
}
