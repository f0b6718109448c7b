package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sender markers used by UTXO chains when the first input cannot be attributed.
const (
	SenderCoinbase = "coinbase"
	SenderUnknown  = "unknown"
)

// Transaction is the chain-agnostic transfer record produced by source adapters.
// Values are fixed at construction; use NewTransaction so addresses are case-folded.
type Transaction struct {
	ChainID     ChainID   `json:"chain"`
	Hash        string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
	From        *string   `json:"from_address"`
	To          *string   `json:"to_address"`
	Value       *big.Int  `json:"value"`
	Decimals    int       `json:"decimals"`
	GasUsed     uint64    `json:"gas_used"`
	GasPrice    *big.Int  `json:"gas_price"`
	IsError     bool      `json:"is_error"`
	IsInternal  bool      `json:"is_internal"`
	TokenSymbol string    `json:"token_symbol"`
}

// TxParams holds the fields needed to build a Transaction.
// Empty From/To mean "absent". A nil Value or GasPrice means zero, and a zero
// Decimals falls back to the chain family default.
type TxParams struct {
	ChainID     ChainID
	Hash        string
	BlockNumber uint64
	Timestamp   time.Time
	From        string
	To          string
	Value       *big.Int
	Decimals    int
	GasUsed     uint64
	GasPrice    *big.Int
	IsError     bool
	IsInternal  bool
	TokenSymbol string
}

// NewTransaction builds a canonical Transaction. Negative values are rejected
// with ErrParse since the smallest-unit amount is unsigned on every chain.
func NewTransaction(p TxParams) (*Transaction, error) {
	value := new(big.Int)
	if p.Value != nil {
		if p.Value.Sign() < 0 {
			return nil, NewParseError(p.ChainID, p.Hash, errNegativeValue)
		}
		value.Set(p.Value)
	}
	gasPrice := new(big.Int)
	if p.GasPrice != nil {
		gasPrice.Set(p.GasPrice)
	}
	symbol := p.TokenSymbol
	if symbol == "" {
		symbol = "ETH"
	}
	decimals := p.Decimals
	if decimals == 0 {
		decimals = DefaultDecimals(ChainIDToType[p.ChainID])
	}

	return &Transaction{
		ChainID:     p.ChainID,
		Hash:        p.Hash,
		BlockNumber: p.BlockNumber,
		Timestamp:   p.Timestamp,
		From:        canonicalAddress(p.From),
		To:          canonicalAddress(p.To),
		Value:       value,
		Decimals:    decimals,
		GasUsed:     p.GasUsed,
		GasPrice:    gasPrice,
		IsError:     p.IsError,
		IsInternal:  p.IsInternal,
		TokenSymbol: symbol,
	}, nil
}

// CanonicalAddress case-folds an address into the form used as a node identity.
func CanonicalAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func canonicalAddress(addr string) *string {
	c := CanonicalAddress(addr)
	if c == "" {
		return nil
	}
	return &c
}

// Sender returns the canonical sender or "" when absent.
func (t *Transaction) Sender() string {
	if t.From == nil {
		return ""
	}
	return *t.From
}

// Recipient returns the canonical recipient or "" when absent (contract creation).
func (t *Transaction) Recipient() string {
	if t.To == nil {
		return ""
	}
	return *t.To
}

// HumanValue converts the smallest-unit value to the chain-scaled quantity.
func (t *Transaction) HumanValue() float64 {
	return ScaleValue(t.Value, t.Decimals)
}

// ScaleValue returns v / 10^decimals as a float64.
func ScaleValue(v *big.Int, decimals int) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, int32(-decimals)).InexactFloat64()
}
