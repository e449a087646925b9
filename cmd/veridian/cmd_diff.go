package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/pkg/jsonutil"
)

var diffShow bool

// diffCmd compares the animation parameters two runs were recorded with.
var diffCmd = &cobra.Command{
	Use:   "diff <run-a> [run-b]",
	Short: "Compare the parameters of recorded runs",
	Long: `Compare the animation parameters stored with run-a against run-b, or
against the current configuration when run-b is omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffShow, "show", false, "Also print run-a's full parameters")
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	before, err := runParams(store, args[0])
	if err != nil {
		return err
	}

	var after string
	if len(args) == 2 {
		if after, err = runParams(store, args[1]); err != nil {
			return err
		}
	} else {
		b, err := json.Marshal(cfg.Animation)
		if err != nil {
			return err
		}
		after = string(b)
	}

	if diffShow {
		fmt.Println(jsonutil.Pretty(before))
		fmt.Println()
	}

	changes, err := jsonutil.Diff(before, after)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println("  Parameters are identical.")
		return nil
	}
	for _, c := range changes {
		switch c.Kind {
		case jsonutil.KindAdd:
			fmt.Printf("  + %-18s %s\n", c.Path, c.After)
		case jsonutil.KindDelete:
			fmt.Printf("  - %-18s %s\n", c.Path, c.Before)
		default:
			fmt.Printf("  ~ %-18s %s -> %s\n", c.Path, c.Before, c.After)
		}
	}
	return nil
}

// runParams returns the encoded parameters stored with a run.
func runParams(store database.Store, id string) (string, error) {
	runID, err := resolveRunID(store, id)
	if err != nil {
		return "", err
	}
	run, err := store.GetRun(runID)
	if err != nil {
		return "", err
	}
	if run.Params == nil {
		return "", fmt.Errorf("run %s has no stored parameters", runID)
	}
	return *run.Params, nil
}
