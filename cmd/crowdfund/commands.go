package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/crowdfund/backend/internal/campaign"
	"github.com/crowdfund/backend/internal/session"
	"github.com/crowdfund/backend/internal/validators"
)

type connectCmd struct{}

func (c *connectCmd) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, err := a.session.Connect(ctx)
	if errors.Is(err, session.ErrNoWallet) {
		fmt.Fprintf(a.out, "No wallet found. Install one: %s\n", session.WalletInstallURL)
		return nil
	}
	if err != nil {
		return errors.New(validators.FormatError(err))
	}
	fmt.Fprintf(a.out, "Connected %s\n", addr.Hex())
	return nil
}

type listCmd struct {
	Owner  string `long:"owner" description:"Only campaigns created by this address"`
	Status string `long:"status" choice:"Open" choice:"Closed" description:"Filter by status"`
	Page   int    `long:"page" default:"1"`
	Limit  int    `long:"limit" default:"10"`
	Args   struct {
		Search []string `positional-arg-name:"search"`
	} `positional-args:"yes"`
}

func (c *listCmd) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.SetSearchQuery(strings.Join(c.Args.Search, " "))
	a.session.SetPage(c.Page)

	page, err := a.api.ListCampaigns(ctx, campaign.ListQuery{
		Search: a.session.SearchQuery(),
		Owner:  c.Owner,
		Status: c.Status,
		Page:   a.session.Page(),
		Limit:  c.Limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tRAISED\tSTATUS")
	for i := range page.Campaigns {
		cp := &page.Campaigns[i]
		m := campaign.ComputeMetrics(cp)
		fmt.Fprintf(w, "%d\t%s\t%s\t%g / %g ETH (%d%%)\t%s\n",
			cp.PID, cp.Title, cp.Category, cp.AmountCollected, cp.Target, m.BarPercentage, cp.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d of %d, %d campaigns\n", page.Page, page.Pages(), page.Total)
	return nil
}

type campaignArg struct {
	ID string `positional-arg-name:"id" required:"yes" description:"Campaign ObjectID or pId"`
}

type showCmd struct {
	Args campaignArg `positional-args:"yes" required:"yes"`
}

func (c *showCmd) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Viewing works without a wallet, it only hides the actions.
	if _, err := a.session.Connect(ctx); err != nil {
		a.log.Debug("viewing without wallet")
	}

	view := campaign.NewDetailView(c.Args.ID, a.api, a.session, a.log)
	if err := view.Refetch(ctx); err != nil {
		return err
	}

	cp := view.Campaign()
	m := view.Metrics()
	fmt.Fprintf(a.out, "#%d %s\n", cp.PID, cp.Title)
	fmt.Fprintf(a.out, "%s\n\n", cp.Description)
	if cp.Message != "" {
		fmt.Fprintf(a.out, "Message: %s\n", cp.Message)
	}
	fmt.Fprintf(a.out, "Owner:     %s\n", cp.Owner)
	fmt.Fprintf(a.out, "Category:  %s\n", cp.Category)
	fmt.Fprintf(a.out, "Status:    %s\n", cp.Status)
	fmt.Fprintf(a.out, "Raised:    %g / %g ETH (%d%%)\n", cp.AmountCollected, cp.Target, m.BarPercentage)
	fmt.Fprintf(a.out, "Softcap:   %g ETH (%d%% of target)\n", cp.Softcap, m.SoftcapPercentage)
	fmt.Fprintf(a.out, "Available: %g ETH\n", m.Unwithdrawn)
	fmt.Fprintf(a.out, "Funders:   %d\n", m.Funders)
	if _, ok := a.session.Address(); ok {
		fmt.Fprintf(a.out, "Your donation: %g ETH\n", view.Donation())
	}
	if actions := view.Actions(); len(actions) > 0 {
		names := make([]string, len(actions))
		for i, act := range actions {
			names[i] = string(act)
		}
		fmt.Fprintf(a.out, "Actions:   %s\n", strings.Join(names, ", "))
	}
	return nil
}

type fundCmd struct {
	Args struct {
		ID     string `positional-arg-name:"id" required:"yes"`
		Amount string `positional-arg-name:"amount" required:"yes" description:"Amount in ETH"`
	} `positional-args:"yes" required:"yes"`
}

func (c *fundCmd) Execute([]string) error {
	return runAction(c.Args.ID, func(a *actionEnv) error {
		return a.dispatcher.Fund(a.ctx, a.view, c.Args.Amount)
	})
}

type withdrawCmd struct {
	Args campaignArg `positional-args:"yes" required:"yes"`
}

func (c *withdrawCmd) Execute([]string) error {
	return runAction(c.Args.ID, func(a *actionEnv) error {
		return a.dispatcher.Withdraw(a.ctx, a.view)
	})
}

type closeCmd struct {
	Args campaignArg `positional-args:"yes" required:"yes"`
}

func (c *closeCmd) Execute([]string) error {
	return runAction(c.Args.ID, func(a *actionEnv) error {
		return a.dispatcher.Close(a.ctx, a.view)
	})
}

type refundCmd struct {
	Args campaignArg `positional-args:"yes" required:"yes"`
}

func (c *refundCmd) Execute([]string) error {
	return runAction(c.Args.ID, func(a *actionEnv) error {
		return a.dispatcher.Refund(a.ctx, a.view)
	})
}

type themeCmd struct{}

func (c *themeCmd) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	dark, err := a.session.ToggleDarkMode()
	if err != nil {
		return err
	}
	if dark {
		fmt.Fprintln(a.out, "Dark mode on")
	} else {
		fmt.Fprintln(a.out, "Dark mode off")
	}
	return nil
}
