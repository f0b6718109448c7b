package graph

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

const (
	// ContractCreationNode stands in for the absent recipient of a contract
	// deployment. Real addresses are lowercase, so it never collides.
	ContractCreationNode = "CONTRACT_CREATION"

	// MaxTxHashes caps the per-edge hash sample.
	MaxTxHashes = 5

	defaultDecimals = domain.DecimalsEVM
	defaultSymbol   = "Units"
	maxWeight       = 10.0
)

type accumulator struct {
	source    string
	target    string
	count     int
	total     *big.Int
	firstSeen time.Time
	lastSeen  time.Time
	hashes    []string
}

// Build aggregates txs into a graph. Failed transactions are dropped. Count,
// total value and the first/last timestamps do not depend on input order;
// the hash sample keeps the first MaxTxHashes hashes encountered.
//
// The unit scale and symbol come from the first transaction, so a mixed-chain
// input is scaled as if it were all on that chain.
func Build(txs []*domain.Transaction) *Graph {
	groups := make(map[edgeKey]*accumulator)
	order := make([]edgeKey, 0)

	for _, tx := range txs {
		if tx == nil || tx.IsError {
			continue
		}

		src := tx.Sender()
		if src == "" {
			src = domain.SenderUnknown
		}
		dst := tx.Recipient()
		if dst == "" {
			dst = ContractCreationNode
		}

		k := edgeKey{src, dst}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{
				source:    src,
				target:    dst,
				total:     new(big.Int),
				firstSeen: tx.Timestamp,
				lastSeen:  tx.Timestamp,
			}
			groups[k] = acc
			order = append(order, k)
		}

		acc.count++
		if tx.Value != nil {
			acc.total.Add(acc.total, tx.Value)
		}
		if tx.Timestamp.Before(acc.firstSeen) {
			acc.firstSeen = tx.Timestamp
		}
		if tx.Timestamp.After(acc.lastSeen) {
			acc.lastSeen = tx.Timestamp
		}
		if len(acc.hashes) < MaxTxHashes {
			acc.hashes = append(acc.hashes, tx.Hash)
		}
	}

	decimals, symbol := unitOf(txs)

	g := New()
	for _, k := range order {
		acc := groups[k]
		human := domain.ScaleValue(acc.total, decimals)
		weight := Weight(human)

		g.AddEdge(&Edge{
			Source:     acc.source,
			Target:     acc.target,
			Count:      acc.count,
			TotalValue: acc.total,
			HumanValue: human,
			FirstSeen:  acc.firstSeen,
			LastSeen:   acc.lastSeen,
			TxHashes:   acc.hashes,
			Weight:     weight,
			Width:      weight,
			Label:      fmt.Sprintf("%.4f %s", human, symbol),
			Title:      fmt.Sprintf("Transfers: %d<br>Vol: %.4f %s", acc.count, human, symbol),
		})
	}
	return g
}

// Weight compresses a human value into the [1, 10] layout range.
func Weight(human float64) float64 {
	if human <= 0 {
		return 1
	}
	return math.Min(1+math.Log(human+1), maxWeight)
}

func unitOf(txs []*domain.Transaction) (int, string) {
	if len(txs) == 0 || txs[0] == nil {
		return defaultDecimals, defaultSymbol
	}
	symbol := txs[0].TokenSymbol
	if symbol == "" {
		symbol = defaultSymbol
	}
	return txs[0].Decimals, symbol
}
