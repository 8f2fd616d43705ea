package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wesm/historysync/internal/config"
	"github.com/wesm/historysync/internal/discover"
	"github.com/wesm/historysync/internal/tree"
)

// ConsolidateConfig holds parsed CLI options for the
// consolidate command.
type ConsolidateConfig struct {
	Output string
	Force  bool
	List   bool
}

func parseConsolidateFlags(
	args []string,
) (ConsolidateConfig, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("consolidate", flag.ContinueOnError)
	config.RegisterOutputFlag(fs)
	force := fs.Bool(
		"force", false,
		"Replace symlinks that point elsewhere",
	)
	list := fs.Bool(
		"list", false,
		"List consolidated histories without changing anything",
	)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: historysync consolidate [flags]")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return ConsolidateConfig{}, nil, err
	}
	return ConsolidateConfig{
		Force: *force,
		List:  *list,
	}, fs, nil
}

func runConsolidate(args []string) {
	cc, fs, err := parseConsolidateFlags(args)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if cc.List {
		if err := tree.List(cfg.OutputDir, os.Stdout); err != nil {
			log.Fatalf("listing: %v", err)
		}
		return
	}

	fmt.Printf(
		"\nConsolidating histories to: %s\n", cfg.OutputDir,
	)

	rep := discover.All(cfg)
	for _, warn := range rep.Warnings {
		log.Printf("warning: %s", warn)
	}

	fmt.Printf("\nLocal host: %s\n", rep.Hostname)
	res, err := tree.Consolidate(
		cfg.OutputDir, rep, cc.Force, os.Stdout,
	)
	if err != nil {
		log.Fatalf("consolidating: %v", err)
	}

	fmt.Printf(
		"\nConsolidation complete. View histories at: %s\n",
		cfg.OutputDir,
	)
	if res.Failed() {
		os.Exit(1)
	}
}
