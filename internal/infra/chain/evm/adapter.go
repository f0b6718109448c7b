package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	logger "log/slog"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/cache"
	"github.com/vietddude/chaintrace/internal/infra/chain"
	"github.com/vietddude/chaintrace/internal/infra/rpc/provider"
	"github.com/vietddude/chaintrace/internal/metrics"
)

const (
	// maxEndBlock is the open upper bound passed to the txlist API.
	maxEndBlock = 99999999

	statusOK          = "1"
	messageOK         = "OK"
	messageNoTxsFound = "No transactions found"
)

// Config holds the account API settings for one EVM chain.
type Config struct {
	ChainID   domain.ChainID
	NetworkID string // upstream "chainid" parameter
	APIKey    string
	Symbol    string // native unit symbol, defaults to ETH
	PageSize  int    // 0 disables pagination
	MaxPages  int
}

// EVMAdapter fetches normal transactions from an Etherscan-compatible
// "account txlist" API.
type EVMAdapter struct {
	cfg      Config
	provider provider.Provider
	gateway  *chain.Gateway
	log      *logger.Logger
}

var _ chain.Source = (*EVMAdapter)(nil)

func NewEVMAdapter(cfg Config, p provider.Provider, gateway *chain.Gateway) *EVMAdapter {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "ETH"
	}
	return &EVMAdapter{
		cfg:      cfg,
		provider: p,
		gateway:  gateway,
		log:      logger.Default().With("chain", cfg.ChainID, "component", "evm_adapter"),
	}
}

func (a *EVMAdapter) Chain() domain.ChainID {
	return a.cfg.ChainID
}

// apiResponse is the txlist envelope. Result is an array on success and a
// plain string message on most errors.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// rawTx is the upstream record shape; every numeric field arrives as a decimal string.
type rawTx struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
	IsError     string `json:"isError"`
}

func (a *EVMAdapter) Fetch(ctx context.Context, address string, startBlock uint64) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0)

	for page := 1; page <= a.cfg.MaxPages; page++ {
		records, err := a.fetchPage(ctx, address, startBlock, page)
		if err != nil {
			a.log.Error("txlist fetch failed",
				"address", address, "start_block", startBlock, "page", page, "error", err)
			break
		}

		for i, record := range records {
			tx, err := a.parseRecord(record)
			if err != nil {
				metrics.ParseErrors.WithLabelValues(string(a.cfg.ChainID)).Inc()
				a.log.Warn("failed to parse transaction", "error", err, "page", page, "index", i)
				continue
			}
			txs = append(txs, tx)
		}

		if a.cfg.PageSize <= 0 || len(records) < a.cfg.PageSize {
			break
		}
	}

	return txs
}

func (a *EVMAdapter) fetchPage(
	ctx context.Context,
	address string,
	startBlock uint64,
	page int,
) ([]json.RawMessage, error) {
	params := []string{"txlist", strconv.FormatUint(startBlock, 10)}
	if a.cfg.PageSize > 0 {
		params = append(params, strconv.Itoa(page), strconv.Itoa(a.cfg.PageSize))
	}
	key := cache.Key(a.cfg.ChainID, address, params...)

	payload, err := a.gateway.Load(ctx, key, func(ctx context.Context) ([]byte, error) {
		return a.callTxList(ctx, address, startBlock, page)
	})
	if err != nil {
		return nil, err
	}
	return chain.SplitRecords(payload)
}

// callTxList performs one live call and returns the record array.
func (a *EVMAdapter) callTxList(
	ctx context.Context,
	address string,
	startBlock uint64,
	page int,
) ([]byte, error) {
	query := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {address},
		"startblock": {strconv.FormatUint(startBlock, 10)},
		"endblock":   {strconv.Itoa(maxEndBlock)},
		"sort":       {"asc"},
		"apikey":     {a.cfg.APIKey},
	}
	if a.cfg.NetworkID != "" {
		query.Set("chainid", a.cfg.NetworkID)
	}
	if a.cfg.PageSize > 0 {
		query.Set("page", strconv.Itoa(page))
		query.Set("offset", strconv.Itoa(a.cfg.PageSize))
	}

	body, err := a.provider.Get(ctx, "", query)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrTransport, err)
	}

	switch {
	case resp.Status == statusOK && resp.Message == messageOK:
		if _, err := chain.SplitRecords(resp.Result); err != nil {
			return nil, fmt.Errorf("%w: decode response: %w", domain.ErrTransport, err)
		}
		return resp.Result, nil
	case resp.Message == messageNoTxsFound:
		return []byte("[]"), nil
	default:
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrUpstream, resp.Message, string(resp.Result))
	}
}

func (a *EVMAdapter) parseRecord(record json.RawMessage) (*domain.Transaction, error) {
	var raw rawTx
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, domain.NewParseError(a.cfg.ChainID, "", err)
	}
	return toTransaction(a.cfg.ChainID, a.cfg.Symbol, raw)
}

// toTransaction maps one upstream record into the canonical model. An empty
// "to" is a contract creation and stays absent, as does an empty "from".
func toTransaction(chainID domain.ChainID, symbol string, raw rawTx) (*domain.Transaction, error) {
	fail := func(err error) (*domain.Transaction, error) {
		return nil, domain.NewParseError(chainID, raw.Hash, err)
	}

	if raw.Hash == "" {
		return fail(fmt.Errorf("missing hash"))
	}
	if raw.Value == "" {
		return fail(fmt.Errorf("missing value"))
	}

	blockNumber, err := strconv.ParseUint(raw.BlockNumber, 10, 64)
	if err != nil {
		return fail(fmt.Errorf("block number: %w", err))
	}
	ts, err := strconv.ParseInt(raw.TimeStamp, 10, 64)
	if err != nil {
		return fail(fmt.Errorf("timestamp: %w", err))
	}
	value, err := parseBigInt(raw.Value)
	if err != nil {
		return fail(fmt.Errorf("value: %w", err))
	}
	gasUsed, err := parseUint(raw.GasUsed)
	if err != nil {
		return fail(fmt.Errorf("gas used: %w", err))
	}
	gasPrice, err := parseBigInt(raw.GasPrice)
	if err != nil {
		return fail(fmt.Errorf("gas price: %w", err))
	}

	return domain.NewTransaction(domain.TxParams{
		ChainID:     chainID,
		Hash:        raw.Hash,
		BlockNumber: blockNumber,
		Timestamp:   time.Unix(ts, 0).UTC(),
		From:        raw.From,
		To:          raw.To,
		Value:       value,
		Decimals:    domain.DecimalsEVM,
		GasUsed:     gasUsed,
		GasPrice:    gasPrice,
		IsError:     raw.IsError == "1",
		TokenSymbol: symbol,
	})
}

func parseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
