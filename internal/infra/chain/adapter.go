package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

// Source defines the per-chain fetch boundary between the pipeline and
// chain-specific upstream APIs.
type Source interface {
	// Chain returns the chain identifier this source normalizes into
	Chain() domain.ChainID

	// Fetch returns the canonical transactions touching address, oldest first
	// where the upstream orders them. It never fails as a whole: transport and
	// upstream failures are logged and yield whatever was parsed so far, and a
	// malformed record is skipped.
	Fetch(ctx context.Context, address string, startBlock uint64) []*domain.Transaction
}

// SplitRecords decodes a raw JSON array payload into its elements so each
// record can be normalized (and rejected) on its own.
func SplitRecords(payload []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	return records, nil
}
