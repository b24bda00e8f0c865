// cmd/tools/dataset-inspector/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"retention-proxy/internal/common/config"
	"retention-proxy/internal/featurestore"
	"retention-proxy/pkg/dataset"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		help(stderr)
		return 1
	}

	cmd := flag.NewFlagSet(args[0], flag.ContinueOnError)
	cmd.SetOutput(stderr)
	path := cmd.String("path", config.DefaultDatasetPath, "Path to users_features.json")

	switch args[0] {
	case "validate":
		if err := cmd.Parse(args[1:]); err != nil {
			return 2
		}
		store, err := validate(*path)
		if err != nil {
			fmt.Fprintf(stderr, "Dataset validation failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Dataset validation passed: %d users, %d fields.\n", store.Len(), len(store.Fields()))

	case "stats":
		if err := cmd.Parse(args[1:]); err != nil {
			return 2
		}
		ds, err := dataset.Read(*path)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading dataset: %v\n", err)
			return 1
		}
		out, _ := json.MarshalIndent(dataset.Inspect(ds), "", "  ")
		fmt.Fprintln(stdout, string(out))

	case "ids":
		if err := cmd.Parse(args[1:]); err != nil {
			return 2
		}
		store, err := validate(*path)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading dataset: %v\n", err)
			return 1
		}
		for _, id := range store.IDs() {
			fmt.Fprintln(stdout, id)
		}

	case "help", "-h", "--help":
		help(stdout)

	default:
		fmt.Fprintf(stderr, "Unknown command %q\n", args[0])
		help(stderr)
		return 1
	}
	return 0
}

// validate applies the same checks the service applies at startup.
func validate(path string) (*featurestore.Store, error) {
	ds, err := dataset.Read(path)
	if err != nil {
		return nil, err
	}
	records, err := featurestore.FromDataset(ds)
	if err != nil {
		return nil, err
	}
	return featurestore.New(records)
}

func help(w io.Writer) {
	fmt.Fprintln(w, strings.TrimSpace(`
Usage: dataset-inspector <command> [-path users_features.json]

Commands:
  validate   check ids and field-set uniformity, as the service does on load
  stats      print user count, field names and inconsistencies as JSON
  ids        print every user id, one per line, ascending
`))
}
