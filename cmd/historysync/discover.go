package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wesm/historysync/internal/config"
	"github.com/wesm/historysync/internal/discover"
)

func runDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	home := fs.String("home", "", "Override home directory")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(),
			"Usage: historysync discover [flags]")
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	var cfg config.Config
	if *home != "" {
		cfg = config.DefaultForHome(*home)
	} else {
		var err error
		cfg, err = config.LoadMinimal()
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	rep := discover.All(cfg)

	// Absence of histories is not an error; exit 0 either way.
	if *jsonOut {
		if err := discover.WriteJSON(os.Stdout, rep); err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		return
	}
	discover.WriteText(os.Stdout, rep)
}
