package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/outputfile"
	"github.com/speedwagon-io/flexlab/internal/outputfile/dymola"
	"github.com/speedwagon-io/flexlab/internal/storage"
)

type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// catalog lists the variables of a result file.
type catalog interface {
	Names() []string
	Description(name string) (string, error)
	TimeName() string
}

type row struct {
	Name  string            `json:"name"`
	Stats *outputfile.Stats `json:"stats,omitempty"`
	Error string            `json:"error,omitempty"`
}

func main() {
	var vars listFlag

	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "", "result file on disk")
	object := flag.String("object", "", "result file key in the configured bucket")
	list := flag.Bool("list", false, "list variable names and exit")
	asJSON := flag.Bool("json", false, "print JSON instead of a table")
	flag.Var(&vars, "var", "variable to summarize; repeatable")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	res, err := open(log, cfg, *file, *object)
	if err != nil {
		log.Error("failed to open result file", sl.Err(err))
		os.Exit(1)
	}

	if *list {
		printVariables(os.Stdout, res)
		return
	}

	r := outputfile.NewReader(res)

	if len(vars) == 0 {
		log.Error("no variables given, use -var or -list")
		os.Exit(2)
	}

	rows := summarize(r, vars)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(rows)
	} else {
		printTable(os.Stdout, rows)
	}

	for _, row := range rows {
		if row.Error != "" {
			os.Exit(1)
		}
	}
}

func open(log *slog.Logger, cfg *config.Config, file, object string) (*dymola.Result, error) {
	switch {
	case file != "" && object != "":
		return nil, errors.New("use either -file or -object")
	case file != "":
		return dymola.Open(file)
	case object != "":
		store, err := storage.NewObjectStore(&cfg.Storage)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		rc, err := store.Fetch(ctx, object)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		log.Debug("fetched result file", slog.String("bucket", store.Bucket), slog.String("key", object))
		return dymola.Parse(rc)
	default:
		return nil, errors.New("one of -file or -object is required")
	}
}

func summarize(r *outputfile.Reader, vars []string) []row {
	rows := make([]row, 0, len(vars))
	for _, name := range vars {
		s, err := r.Summary(name)
		if err != nil {
			rows = append(rows, row{Name: name, Error: err.Error()})
			continue
		}
		rows = append(rows, row{Name: name, Stats: &s})
	}
	return rows
}

// printVariables writes one line per variable with its description. The
// abscissa variable is marked.
func printVariables(w io.Writer, c catalog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tDESCRIPTION")
	for _, name := range c.Names() {
		desc, _ := c.Description(name)
		if name == c.TimeName() {
			desc = strings.TrimSpace(desc + " (abscissa)")
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, desc)
	}
	tw.Flush()
}

func printTable(w io.Writer, rows []row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tINTEGRAL\tMEAN\tMIN\tMAX")
	for _, row := range rows {
		if row.Stats == nil {
			fmt.Fprintf(tw, "%s\terror: %s\t\t\t\n", row.Name, row.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\n", row.Name, row.Stats.Integral, row.Stats.Mean, row.Stats.Min, row.Stats.Max)
	}
	tw.Flush()
}
