package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"tx-composer/lib/ss58"
	"tx-composer/lib/threadsafe"
	agg "tx-composer/modules/aggregate"

	"github.com/JustinKnueppel/go-result"
	"github.com/chebyrash/promise"
	"github.com/moznion/go-optional"
	"github.com/robfig/cron/v3"
)

type WatcherConfig struct {
	TipInterval   time.Duration
	NonceInterval time.Duration
	// bound on a single rpc call
	Timeout time.Duration
}

// Watcher polls the node in the background and keeps the latest tip and
// nonce where the editor loop can read them without blocking.
type Watcher struct {
	logger     *slog.Logger
	client     *Client
	conf       WatcherConfig
	ss58Prefix uint16

	cron   *cron.Cron
	stop   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	tip      *threadsafe.Value[Tip]
	lastPoll *threadsafe.Value[result.Result[Tip]]
	account  *threadsafe.Value[[32]byte]
	nonces   *threadsafe.Map[[32]byte, uint64]
	status   *threadsafe.Value[string]
}

var _ agg.Plugin = &Watcher{}

func NewWatcher(logger *slog.Logger, client *Client, conf WatcherConfig, ss58Prefix uint16) *Watcher {
	if conf.Timeout == 0 {
		conf.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		logger:     logger.With("sub-service", "chain-watcher"),
		client:     client,
		conf:       conf,
		ss58Prefix: ss58Prefix,
		cron:       cron.New(),
		stop:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		tip:        threadsafe.NewValue[Tip](),
		lastPoll:   threadsafe.NewValue[result.Result[Tip]](),
		account:    threadsafe.NewValue[[32]byte](),
		nonces:     threadsafe.NewMap[[32]byte, uint64](),
		status:     threadsafe.NewValue[string](),
	}
}

// ===== implementing plugin interface =====

func (w *Watcher) Init() error {
	if w.conf.TipInterval <= 0 || w.conf.NonceInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive: tip %s, nonce %s", w.conf.TipInterval, w.conf.NonceInterval)
	}
	return nil
}

func (w *Watcher) Start() *promise.Promise[any] {
	return promise.New(func(resolve func(any), reject func(error)) {
		ctx := w.ctx
		go w.pollTip(ctx)

		jobs := map[time.Duration]func(context.Context){
			w.conf.TipInterval: w.pollTip,
		}
		if w.conf.NonceInterval == w.conf.TipInterval {
			jobs[w.conf.TipInterval] = func(ctx context.Context) {
				w.pollTip(ctx)
				w.pollNonce(ctx)
			}
		} else {
			jobs[w.conf.NonceInterval] = w.pollNonce
		}

		for interval, job := range jobs {
			_, err := w.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
				select {
				case <-w.stop:
					return
				default:
					go job(ctx)
				}
			})
			if err != nil {
				reject(err)
				return
			}
		}
		w.cron.Start()
		resolve(nil)
	})
}

func (w *Watcher) Stop() error {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.cancel()
	w.cron.Stop()
	return nil
}

// ===== polling =====

func (w *Watcher) pollTip(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.conf.Timeout)
	defer cancel()

	tip, err := w.client.Tip(ctx)
	if err != nil {
		w.logger.Warn("failed to fetch chain tip", "err", err)
		w.lastPoll.Set(result.Err[Tip](err))
		return
	}

	if last := w.tip.Get(); last.IsNone() || last.Unwrap() != tip {
		w.logger.Debug("new tip", "number", tip.Number, "hash", hex.EncodeToString(tip.Hash[:]))
	}
	w.tip.Set(tip)
	w.lastPoll.Set(result.Ok(tip))
}

func (w *Watcher) pollNonce(ctx context.Context) {
	account := w.account.Get()
	if account.IsNone() {
		return
	}
	acc := account.Unwrap()
	address, err := ss58.Encode(w.ss58Prefix, acc)
	if err != nil {
		w.logger.Error("failed to encode account", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.conf.Timeout)
	defer cancel()

	nonce, err := w.client.AccountNextIndex(ctx, address)
	if err != nil {
		w.logger.Warn("failed to fetch nonce", "account", address, "err", err)
		return
	}
	w.nonces.Insert(acc, nonce)
}

// ===== accessors =====

func (w *Watcher) Tip() (Tip, bool) {
	tip := w.tip.Get()
	if tip.IsNone() {
		return Tip{}, false
	}
	return tip.Unwrap(), true
}

// LastPoll is the outcome of the most recent tip poll, absent before the
// first one completes.
func (w *Watcher) LastPoll() optional.Option[result.Result[Tip]] {
	return w.lastPoll.Get()
}

// Nonce returns the last fetched nonce of account and makes it the
// account the next polls follow. A newly requested account is fetched
// right away.
func (w *Watcher) Nonce(account [32]byte) optional.Option[uint64] {
	prev := w.account.Get()
	w.account.Set(account)
	if prev.IsNone() || prev.Unwrap() != account {
		go w.pollNonce(w.ctx)
	}

	if n, ok := w.nonces.Lookup(account); ok {
		return optional.Some(n)
	}
	return optional.None[uint64]()
}

// Submit sends a finalized extrinsic without waiting for the node. The
// outcome is reported through Status and the log.
func (w *Watcher) Submit(extrinsic []byte) {
	w.status.Set("submitting...")
	go func() {
		ctx, cancel := context.WithTimeout(w.ctx, w.conf.Timeout)
		defer cancel()

		hash, err := w.client.Submit(ctx, extrinsic)
		if err != nil {
			w.logger.Error("failed to submit extrinsic", "err", err)
			w.status.Set(fmt.Sprintf("submission failed: %v", err))
			return
		}
		h := "0x" + hex.EncodeToString(hash[:])
		w.logger.Info("extrinsic submitted", "hash", h)
		w.status.Set("submitted " + h)
		w.pollNonce(w.ctx)
	}()
}

// Status describes the last submission, empty when nothing was sent.
func (w *Watcher) Status() string {
	return w.status.Get().TakeOr("")
}
