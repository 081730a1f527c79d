package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/banshee-data/movement.report/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "stats":
		err = runStats(args, os.Stdout)
	case "plot":
		err = runPlot(args, os.Stdout)
	case "import":
		err = runImport(args, os.Stdout)
	case "serve":
		err = runServe(args)
	case "version":
		fmt.Println(version.String("movement"))
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`movement - Movement metrics for athlete tracking data

Usage: movement <command> [options]

Commands:
  stats      Print the movement report for one entity or the whole roster
  plot       Write heat map and sprint map PNGs
  import     Import match exports into the SQLite store
  serve      Serve reports, plots and dashboards over HTTP
  version    Show movement version
  help       Show this help message

Common Flags:
  --config <file>      Analysis config (.json, .yaml or .yml)
                       Defaults come from config/analysis.defaults.json values
  --threshold <speed>  Sprint threshold in length units per second
  --units <units>      Display speed units (mps, mph, kmph, kph)

Examples:
  # Report every player in a match
  movement stats match.csv

  # One player with a higher sprint threshold, speeds in km/h
  movement stats --entity 9 --threshold 7.5 --units kmph match.csv

  # Heat map and sprint map for one player
  movement plot --entity 9 --out plots match.csv

  # Import two matches and record an analysis run for each
  movement import --db movement.db --record-run derby.csv cup.csv

  # Serve the imported matches
  movement serve --db movement.db --listen :8080

  # Serve CSV exports straight from a directory
  movement serve --dir ./exports`)
}
