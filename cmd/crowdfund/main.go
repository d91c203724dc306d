package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/crowdfund/backend/internal/campaign"
	"github.com/crowdfund/backend/internal/ethereum"
	"github.com/crowdfund/backend/internal/session"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type Opts struct {
	APIURL     string `long:"api" default:"http://localhost:8080" env:"CROWDFUND_API_URL" description:"Backend base URL"`
	NodeURL    string `long:"node" default:"http://localhost:8545" env:"ETH_NODE_URL" description:"Ethereum JSON-RPC endpoint"`
	Keystore   string `long:"keystore" env:"CROWDFUND_KEYSTORE" description:"Wallet keystore directory"`
	Passphrase string `long:"passphrase" env:"CROWDFUND_PASSPHRASE" description:"Keystore passphrase"`
	Contract   string `long:"contract" env:"CAMPAIGN_CONTRACT_ADDRESS" description:"Campaign contract address"`
	ChainID    int64  `long:"chain-id" default:"11155111" env:"CHAIN_ID" description:"Chain id used for signing"`
	ABIPath    string `long:"abi" env:"CAMPAIGN_CONTRACT_ABI_PATH" description:"Contract ABI override"`
	Prefs      string `long:"prefs" env:"CROWDFUND_PREFS" description:"Preferences file"`
	Debug      bool   `long:"debug" description:"Log to stderr"`
}

var opts Opts

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = false

	addCommand(parser, "connect", "Connect the wallet", &connectCmd{})
	addCommand(parser, "list", "List campaigns", &listCmd{})
	addCommand(parser, "show", "Show a campaign", &showCmd{})
	addCommand(parser, "fund", "Fund a campaign", &fundCmd{})
	addCommand(parser, "withdraw", "Withdraw collected funds", &withdrawCmd{})
	addCommand(parser, "close", "Close a campaign", &closeCmd{})
	addCommand(parser, "refund", "Refund your donation", &refundCmd{})
	addCommand(parser, "theme", "Toggle dark mode", &themeCmd{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func addCommand(p *flags.Parser, name, short string, cmd flags.Commander) {
	if _, err := p.AddCommand(name, short, "", cmd); err != nil {
		panic(err)
	}
}

// app is what a command works with. chain is nil for read-only commands.
type app struct {
	log     *zap.Logger
	api     *campaign.Client
	session *session.Session
	chain   *ethclient.Client
	out     io.Writer
}

func newApp(ctx context.Context, withChain bool) (*app, error) {
	log := zap.NewNop()
	if opts.Debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = l
	}

	a := &app{
		log: log,
		api: campaign.NewClient(opts.APIURL, log),
		out: os.Stdout,
	}

	var contract *ethereum.CampaignContract
	if withChain {
		if !common.IsHexAddress(opts.Contract) {
			return nil, fmt.Errorf("contract address is required (--contract)")
		}
		parsed, err := ethereum.LoadABI(opts.ABIPath)
		if err != nil {
			return nil, err
		}
		client, err := ethclient.DialContext(ctx, opts.NodeURL)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", opts.NodeURL, err)
		}
		a.chain = client
		contract = ethereum.NewCampaignContract(common.HexToAddress(opts.Contract), parsed, client)
	}

	s, err := session.New(session.OpenKeystore(opts.Keystore), contract, session.Options{
		Passphrase: opts.Passphrase,
		ChainID:    big.NewInt(opts.ChainID),
		PrefsPath:  prefsPath(),
	}, log)
	if err != nil {
		return nil, err
	}
	a.session = s
	return a, nil
}

func (a *app) Close() {
	a.session.Close()
	if a.chain != nil {
		a.chain.Close()
	}
	_ = a.log.Sync()
}

func prefsPath() string {
	if opts.Prefs != "" {
		return opts.Prefs
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "crowdfund", "prefs.json")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
