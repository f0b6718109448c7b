package bitcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"time"

	logger "log/slog"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/cache"
	"github.com/vietddude/chaintrace/internal/infra/chain"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
	"github.com/vietddude/chaintrace/internal/metrics"
)

const symbolBTC = "BTC"

type Config struct {
	ChainID domain.ChainID
}

// BitcoinAdapter reads the most recent transactions of an address from an
// Esplora-compatible explorer (mempool.space, blockstream.info).
type BitcoinAdapter struct {
	cfg      Config
	provider provider.Provider
	gateway  *chain.Gateway
	clock    clock.Clock
	log      *logger.Logger
}

var _ chain.Source = (*BitcoinAdapter)(nil)

func NewBitcoinAdapter(
	cfg Config,
	p provider.Provider,
	gateway *chain.Gateway,
	clk clock.Clock,
) *BitcoinAdapter {
	if cfg.ChainID == "" {
		cfg.ChainID = domain.ChainIDBitcoin
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &BitcoinAdapter{
		cfg:      cfg,
		provider: p,
		gateway:  gateway,
		clock:    clk,
		log:      logger.Default().With("chain", cfg.ChainID, "component", "bitcoin_adapter"),
	}
}

func (a *BitcoinAdapter) Chain() domain.ChainID {
	return a.cfg.ChainID
}

type rawTx struct {
	TxID   string  `json:"txid"`
	Fee    *uint64 `json:"fee"`
	Status struct {
		BlockHeight uint64 `json:"block_height"`
		BlockTime   *int64 `json:"block_time"`
	} `json:"status"`
	Vin  []rawInput  `json:"vin"`
	Vout []rawOutput `json:"vout"`
}

type rawInput struct {
	Prevout *struct {
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	} `json:"prevout"`
}

type rawOutput struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               uint64 `json:"value"`
}

// Fetch returns one transaction per addressed output of the latest batch
// the explorer serves for address. startBlock is ignored: the explorer
// endpoint has no block filter.
func (a *BitcoinAdapter) Fetch(ctx context.Context, address string, _ uint64) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0)

	key := cache.Key(a.cfg.ChainID, address, "recent")
	payload, err := a.gateway.Load(ctx, key, func(ctx context.Context) ([]byte, error) {
		return a.callAddressTxs(ctx, address)
	})
	if err != nil {
		a.log.Error("address txs fetch failed", "address", address, "error", err)
		return txs
	}

	records, err := chain.SplitRecords(payload)
	if err != nil {
		a.log.Error("cached payload is not a record list", "address", address, "error", err)
		return txs
	}

	now := a.clock.Now()
	for i, record := range records {
		var raw rawTx
		if err := json.Unmarshal(record, &raw); err != nil {
			a.skip(domain.NewParseError(a.cfg.ChainID, "", err), i)
			continue
		}
		parsed, err := parseTransaction(a.cfg.ChainID, raw, now)
		if err != nil {
			a.skip(err, i)
			continue
		}
		txs = append(txs, parsed...)
	}

	return txs
}

func (a *BitcoinAdapter) skip(err error, index int) {
	metrics.ParseErrors.WithLabelValues(string(a.cfg.ChainID)).Inc()
	a.log.Warn("failed to parse transaction", "error", err, "index", index)
}

func (a *BitcoinAdapter) callAddressTxs(ctx context.Context, address string) ([]byte, error) {
	body, err := a.provider.Get(ctx, "address/"+url.PathEscape(address)+"/txs", nil)
	if err != nil {
		return nil, err
	}
	if _, err := chain.SplitRecords(body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrTransport, err)
	}
	return body, nil
}

// parseTransaction expands one explorer transaction into a transaction per
// output with a resolvable address. Outputs without one (OP_RETURN and other
// data carriers) are skipped. Unconfirmed transactions take now and block 0.
func parseTransaction(chainID domain.ChainID, raw rawTx, now time.Time) ([]*domain.Transaction, error) {
	if raw.TxID == "" {
		return nil, domain.NewParseError(chainID, "", fmt.Errorf("missing txid"))
	}
	if raw.Fee == nil {
		return nil, domain.NewParseError(chainID, raw.TxID, fmt.Errorf("missing fee"))
	}

	ts := now.UTC()
	if raw.Status.BlockTime != nil {
		ts = time.Unix(*raw.Status.BlockTime, 0).UTC()
	}
	sender := inputSender(raw.Vin)

	txs := make([]*domain.Transaction, 0, len(raw.Vout))
	for _, out := range raw.Vout {
		if out.ScriptPubKeyAddress == "" {
			continue
		}
		tx, err := domain.NewTransaction(domain.TxParams{
			ChainID:     chainID,
			Hash:        raw.TxID,
			BlockNumber: raw.Status.BlockHeight,
			Timestamp:   ts,
			From:        sender,
			To:          out.ScriptPubKeyAddress,
			Value:       new(big.Int).SetUint64(out.Value),
			Decimals:    domain.DecimalsBitcoin,
			GasUsed:     *raw.Fee,
			GasPrice:    new(big.Int),
			TokenSymbol: symbolBTC,
		})
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// inputSender attributes the transaction to the first input's funding
// address, assuming common ownership of all inputs.
func inputSender(vin []rawInput) string {
	if len(vin) == 0 {
		return domain.SenderUnknown
	}
	prevout := vin[0].Prevout
	if prevout == nil {
		return domain.SenderCoinbase
	}
	if prevout.ScriptPubKeyAddress == "" {
		return domain.SenderUnknown
	}
	return prevout.ScriptPubKeyAddress
}
