package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "genesis.json")
	content := `{"date":"2024-01-01T00:00:00Z","difficulty":3,"mining_reward":25}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	if gen.Difficulty != 3 || gen.MiningReward != 25 || !gen.Date.Equal(genesis.Default.Date) {
		t.Logf("got: %+v", gen)
		t.Fatalf("Should get back the values from the file.")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"difficulty":65}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	if _, err := genesis.Load(bad); err == nil {
		t.Fatalf("Should reject a difficulty longer than the hash.")
	}

	if _, err := genesis.Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("Should fail on a missing file.")
	}
}
