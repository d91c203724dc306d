package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/crowdfund/backend/internal/ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// WalletInstallURL is where users without a wallet are sent.
const WalletInstallURL = "https://metamask.io/download/"

var (
	ErrNoWallet     = errors.New("no wallet found, install one from " + WalletInstallURL)
	ErrNotConnected = errors.New("wallet not connected")
)

// OpenKeystore returns the keystore in dir, or nil when there is none.
func OpenKeystore(dir string) *keystore.KeyStore {
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	return keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
}

type Options struct {
	Passphrase string
	ChainID    *big.Int
	PrefsPath  string
}

// AccountsListener is told about every change of the connected account.
// ok is false after the wallet disconnected.
type AccountsListener func(addr common.Address, ok bool)

// Session is the wallet context shared by the client commands.
type Session struct {
	ks       *keystore.KeyStore
	opts     Options
	contract *ethereum.CampaignContract
	log      *zap.Logger

	mu        sync.RWMutex
	account   *accounts.Account
	signed    *ethereum.CampaignContract
	listeners []AccountsListener
	search    string
	page      int
	prefs     Prefs

	sub  event.Subscription
	done chan struct{}
}

// New builds a session. ks may be nil when no wallet is installed and
// contract may be nil when only read access is needed.
func New(ks *keystore.KeyStore, contract *ethereum.CampaignContract, opts Options, log *zap.Logger) (*Session, error) {
	prefs, err := loadPrefs(opts.PrefsPath)
	if err != nil {
		return nil, err
	}
	return &Session{
		ks:       ks,
		opts:     opts,
		contract: contract,
		log:      log,
		page:     1,
		prefs:    prefs,
	}, nil
}

// Connect resolves the first keystore account and unlocks it for signing.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	if s.ks == nil {
		return common.Address{}, ErrNoWallet
	}
	accs := s.ks.Accounts()
	if len(accs) == 0 {
		return common.Address{}, ErrNoWallet
	}

	if err := s.use(accs[0]); err != nil {
		return common.Address{}, err
	}
	s.watch()

	s.log.Info("wallet connected", zap.String("address", accs[0].Address.Hex()))
	return accs[0].Address, nil
}

func (s *Session) use(acc accounts.Account) error {
	if err := s.ks.Unlock(acc, s.opts.Passphrase); err != nil {
		return fmt.Errorf("unlock %s: %w", acc.Address.Hex(), err)
	}
	signer, err := bind.NewKeyStoreTransactorWithChainID(s.ks, acc, s.opts.ChainID)
	if err != nil {
		return fmt.Errorf("signer for %s: %w", acc.Address.Hex(), err)
	}

	s.mu.Lock()
	s.account = &acc
	if s.contract != nil {
		s.signed = s.contract.WithSigner(signer)
	}
	listeners := append([]AccountsListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(acc.Address, true)
	}
	return nil
}

func (s *Session) disconnect() {
	s.mu.Lock()
	s.account = nil
	s.signed = nil
	listeners := append([]AccountsListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(common.Address{}, false)
	}
}

// watch follows keystore changes so a removed account is replaced by the
// next one, or the session disconnects when none is left.
func (s *Session) watch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return
	}

	ch := make(chan accounts.WalletEvent, 8)
	s.sub = s.ks.Subscribe(ch)
	s.done = make(chan struct{})

	go func(sub event.Subscription, done chan struct{}) {
		defer close(done)
		for {
			select {
			case ev := <-ch:
				s.handleWalletEvent(ev)
			case <-sub.Err():
				return
			}
		}
	}(s.sub, s.done)
}

func (s *Session) handleWalletEvent(ev accounts.WalletEvent) {
	if ev.Kind != accounts.WalletDropped {
		return
	}

	s.mu.RLock()
	current := s.account
	s.mu.RUnlock()
	if current == nil || s.ks.HasAddress(current.Address) {
		return
	}

	s.log.Info("connected account removed from keystore", zap.String("address", current.Address.Hex()))

	accs := s.ks.Accounts()
	if len(accs) == 0 {
		s.disconnect()
		return
	}
	if err := s.use(accs[0]); err != nil {
		s.log.Warn("switch account failed", zap.String("address", accs[0].Address.Hex()), zap.Error(err))
		s.disconnect()
	}
}

// OnAccountsChanged registers l for account changes.
func (s *Session) OnAccountsChanged(l AccountsListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Session) Address() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return common.Address{}, false
	}
	return s.account.Address, true
}

// Contract returns the contract handle bound to the connected account.
func (s *Session) Contract() (*ethereum.CampaignContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil || s.signed == nil {
		return nil, ErrNotConnected
	}
	return s.signed, nil
}

// Close stops watching the keystore and locks the connected account.
func (s *Session) Close() {
	s.mu.Lock()
	sub, done, acc := s.sub, s.done, s.account
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		<-done
	}
	if acc != nil {
		_ = s.ks.Lock(acc.Address)
	}
}

func (s *Session) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

// SetSearchQuery changes the list filter and goes back to the first page.
func (s *Session) SetSearchQuery(q string) {
	s.mu.Lock()
	s.search = q
	s.page = 1
	s.mu.Unlock()
}

func (s *Session) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

func (s *Session) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
}
