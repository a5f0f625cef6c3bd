package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/validator-sim/validator-sim/scoring/stake"
)

var (
	warmupEntry       stake.HistoryEntry // Stake in flight given on the command line
	warmupRate        float64            // Warmup/cooldown rate
	stakeHistoryPath  string             // Optional stake history YAML file
	stakeHistoryEpoch uint64             // Epoch to read from the stake history file
)

// StakeHistory is a stake history file: one entry per epoch. It implements stake.History.
type StakeHistory struct {
	Epochs map[uint64]stake.HistoryEntry `yaml:"epochs"`
}

// EntryForEpoch implements stake.History.
func (h *StakeHistory) EntryForEpoch(epoch uint64) (stake.HistoryEntry, bool) {
	entry, ok := h.Epochs[epoch]
	return entry, ok
}

// LoadStakeHistory reads a stake history YAML file with strict field checking.
func LoadStakeHistory(path string) (*StakeHistory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stake history %s: %w", path, err)
	}
	var history StakeHistory
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&history); err != nil {
		return nil, fmt.Errorf("parsing stake history %s: %w", path, err)
	}
	return &history, nil
}

// predictWarmup writes how many epochs the entry's stake in flight needs to settle.
func predictWarmup(w io.Writer, entry stake.HistoryEntry, rate float64) error {
	epochs, err := stake.PredictWarmupEpochs(entry, rate)
	if err != nil {
		return err
	}
	if epochs == 0 {
		fmt.Fprintln(w, "Stake is settled")
		return nil
	}
	fmt.Fprintf(w, "Stake settles in %d epochs (effective=%d activating=%d deactivating=%d, rate=%v)\n",
		epochs, entry.Effective, entry.Activating, entry.Deactivating, rate)
	return nil
}

// warmupCmd predicts stake warmup/cooldown
var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Predict how many epochs activating and deactivating stake needs to settle",
	Run: func(cmd *cobra.Command, args []string) {
		entry := warmupEntry
		if stakeHistoryPath != "" {
			history, err := LoadStakeHistory(stakeHistoryPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			var ok bool
			if entry, ok = history.EntryForEpoch(stakeHistoryEpoch); !ok {
				logrus.Fatalf("%v for epoch %d in %s", stake.ErrNoHistoryEntry, stakeHistoryEpoch, stakeHistoryPath)
			}
		}
		if err := predictWarmup(os.Stdout, entry, warmupRate); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	warmupCmd.Flags().Uint64Var(&warmupEntry.Effective, "effective", 0, "Effective stake in lamports")
	warmupCmd.Flags().Uint64Var(&warmupEntry.Activating, "activating", 0, "Activating stake in lamports")
	warmupCmd.Flags().Uint64Var(&warmupEntry.Deactivating, "deactivating", 0, "Deactivating stake in lamports")
	warmupCmd.Flags().Float64Var(&warmupRate, "rate", stake.DefaultWarmupRate, "Warmup/cooldown rate per epoch")
	warmupCmd.Flags().StringVar(&stakeHistoryPath, "stake-history", "", "Stake history YAML file; overrides --effective, --activating and --deactivating")
	warmupCmd.Flags().Uint64Var(&stakeHistoryEpoch, "epoch", 0, "Epoch to read from --stake-history")
}
