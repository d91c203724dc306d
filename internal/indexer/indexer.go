package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/crowdfund/backend/internal/ethereum"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisCursor    = "indexer:cursor:block"
	redisProcessed = "indexer:log:"
	processedTTL   = 7 * 24 * time.Hour
)

// Chain reports the current head. *ethclient.Client satisfies it.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// LogSource fetches and decodes the campaign contract's events.
// *ethereum.CampaignContract satisfies it.
type LogSource interface {
	FilterLogs(ctx context.Context, from, to uint64) ([]types.Log, error)
	DecodeLog(log types.Log) (any, error)
}

type Applier interface {
	ApplyFunded(ctx context.Context, ev services.ChainEvent) error
	ApplyWithdrawn(ctx context.Context, ev services.ChainEvent) error
	ApplyClosed(ctx context.Context, ev services.ChainEvent) error
	ApplyRefunded(ctx context.Context, ev services.ChainEvent) error
}

type Config struct {
	StartBlock    uint64
	Confirmations uint64
	BatchSize     uint64
	PollInterval  time.Duration
}

// Indexer mirrors contract events into the campaign store.
type Indexer struct {
	chain   Chain
	logs    LogSource
	applier Applier
	rdb     *redis.Client
	cfg     Config
	log     *zap.Logger
}

func New(chain Chain, logs LogSource, applier Applier, rdb *redis.Client, cfg Config, log *zap.Logger) *Indexer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Indexer{chain: chain, logs: logs, applier: applier, rdb: rdb, cfg: cfg, log: log}
}

// Run polls until ctx is cancelled.
func (i *Indexer) Run(ctx context.Context) error {
	if err := i.initCursor(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(i.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := i.Poll(ctx); err != nil && ctx.Err() == nil {
			i.log.Error("poll cycle failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// initCursor stores the configured start block on first run.
func (i *Indexer) initCursor(ctx context.Context) error {
	set, err := i.rdb.SetNX(ctx, redisCursor, strconv.FormatUint(i.cfg.StartBlock, 10), 0).Result()
	if err != nil {
		return fmt.Errorf("init cursor: %w", err)
	}
	if set {
		i.log.Info("cursor initialized", zap.Uint64("block", i.cfg.StartBlock))
		return nil
	}
	next, err := i.cursor(ctx)
	if err != nil {
		return err
	}
	i.log.Info("resuming from saved cursor", zap.Uint64("block", next))
	return nil
}

// cursor is the next block to scan.
func (i *Indexer) cursor(ctx context.Context) (uint64, error) {
	val, err := i.rdb.Get(ctx, redisCursor).Result()
	if errors.Is(err, redis.Nil) {
		return i.cfg.StartBlock, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	next, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor %q: %w", val, err)
	}
	return next, nil
}

func (i *Indexer) saveCursor(ctx context.Context, next uint64) error {
	if err := i.rdb.Set(ctx, redisCursor, strconv.FormatUint(next, 10), 0).Err(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// Poll scans confirmed blocks past the cursor in batches. The cursor only
// moves past a batch once every log in it was applied.
func (i *Indexer) Poll(ctx context.Context) error {
	head, err := i.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}
	if head < i.cfg.Confirmations {
		return nil
	}
	safe := head - i.cfg.Confirmations

	next, err := i.cursor(ctx)
	if err != nil {
		return err
	}

	for next <= safe {
		to := next + i.cfg.BatchSize - 1
		if to > safe {
			to = safe
		}

		logs, err := i.logs.FilterLogs(ctx, next, to)
		if err != nil {
			return fmt.Errorf("filter logs %d-%d: %w", next, to, err)
		}
		if len(logs) > 0 {
			i.log.Info("found contract events", zap.Int("count", len(logs)), zap.Uint64("from", next), zap.Uint64("to", to))
		}
		for _, l := range logs {
			if err := i.process(ctx, l); err != nil {
				return err
			}
		}

		if err := i.saveCursor(ctx, to+1); err != nil {
			return err
		}
		next = to + 1
	}
	return nil
}

func (i *Indexer) process(ctx context.Context, l types.Log) error {
	if l.Removed {
		return nil
	}

	key := redisProcessed + l.TxHash.Hex() + ":" + strconv.FormatUint(uint64(l.Index), 10)
	seen, err := i.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check processed %s: %w", key, err)
	}
	if seen > 0 {
		return nil
	}

	decoded, err := i.logs.DecodeLog(l)
	if errors.Is(err, ethereum.ErrUnknownEvent) {
		i.log.Debug("skipping unknown event", zap.String("tx", l.TxHash.Hex()), zap.Uint("log_index", l.Index))
		return i.markProcessed(ctx, key, "unknown")
	}
	if err != nil {
		return fmt.Errorf("decode log %s:%d: %w", l.TxHash.Hex(), l.Index, err)
	}

	name, err := i.apply(ctx, decoded)
	if errors.Is(err, repositories.ErrNotFound) {
		i.log.Warn("event for unregistered campaign",
			zap.String("event", name),
			zap.String("tx", l.TxHash.Hex()),
			zap.Uint("log_index", l.Index),
		)
		return i.markProcessed(ctx, key, "skip:"+name)
	}
	if err != nil {
		return fmt.Errorf("apply %s %s:%d: %w", name, l.TxHash.Hex(), l.Index, err)
	}

	return i.markProcessed(ctx, key, name)
}

// markProcessed fails the batch when the marker cannot be written, so the
// cursor stays put and the log is retried against the store's own dedupe.
func (i *Indexer) markProcessed(ctx context.Context, key, value string) error {
	if err := i.rdb.Set(ctx, key, value, processedTTL).Err(); err != nil {
		return fmt.Errorf("mark processed %s: %w", key, err)
	}
	return nil
}

func (i *Indexer) apply(ctx context.Context, decoded any) (string, error) {
	switch ev := decoded.(type) {
	case *ethereum.CampaignFunded:
		return ethereum.EventFunded, i.applier.ApplyFunded(ctx, chainEvent(ev.CampaignId, ev.Funder.Hex(), ev.Amount, ev.Raw))
	case *ethereum.FundsWithdrawn:
		return ethereum.EventWithdrawn, i.applier.ApplyWithdrawn(ctx, chainEvent(ev.CampaignId, ev.Owner.Hex(), ev.Amount, ev.Raw))
	case *ethereum.CampaignClosed:
		return ethereum.EventClosed, i.applier.ApplyClosed(ctx, chainEvent(ev.CampaignId, "", nil, ev.Raw))
	case *ethereum.Refunded:
		return ethereum.EventRefunded, i.applier.ApplyRefunded(ctx, chainEvent(ev.CampaignId, ev.Funder.Hex(), ev.Amount, ev.Raw))
	}
	return "", fmt.Errorf("%w: %T", ethereum.ErrUnknownEvent, decoded)
}

func chainEvent(id *big.Int, account string, amount *big.Int, raw types.Log) services.ChainEvent {
	return services.ChainEvent{
		PID:      id.Int64(),
		Account:  account,
		Amount:   ethereum.WeiToFloat(amount),
		TxHash:   raw.TxHash.Hex(),
		LogIndex: raw.Index,
	}
}
