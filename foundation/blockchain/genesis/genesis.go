// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Genesis represents the genesis file. Every node on the network must load
// the same values or their chains will never agree.
type Genesis struct {
	Date         time.Time `json:"date"`
	Difficulty   uint      `json:"difficulty"`    // Number of leading zero hex characters a block hash needs.
	MiningReward uint64    `json:"mining_reward"` // Reward for mining a block.
}

// Default is used when no genesis file is configured.
var Default = Genesis{
	Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	Difficulty:   4,
	MiningReward: 50,
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %q: %w", path, err)
	}

	if genesis.Difficulty > 64 {
		return Genesis{}, fmt.Errorf("difficulty %d exceeds hash length", genesis.Difficulty)
	}

	return genesis, nil
}
