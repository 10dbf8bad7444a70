// Command csvformatter selects, filters, transforms and previews the rows of
// a CSV file.
//
//	csvformatter -c name-age -f age-integer-true -s all people.csv
//
// Output goes to stdout unless -o names a file or a database URL
// (sqlite://, postgres://, sqlserver://, mysql://).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"csvformatter/internal/config"
	"csvformatter/internal/datasource/httpds"
	"csvformatter/internal/metrics"
	"csvformatter/internal/metrics/prompush"
	"csvformatter/internal/pipeline"

	// register all database sinks with the storage factory.
	_ "csvformatter/internal/storage/all"
)

// maxWarnings is how many transform failures are printed on stderr.
const maxWarnings = 5

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// errInvalidConfig is returned after the run file linter reported errors.
var errInvalidConfig = errors.New("invalid config")

// execute runs the command line args and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	var opts options
	root := &cobra.Command{
		Use:   "csvformatter [flags] [input.csv|URL|-]",
		Short: "Select, filter and transform the rows of a CSV file",
		Long: `csvformatter reads a CSV file (a local path, an http(s) URL, or - for
stdin; stdin when omitted) and runs it through

  range (-r) → match (-m) → filter (-f) → columns (-c) → execute (-x) →
  dedup → size (-s) | query (-q)

Exit status: 0 success, 1 usage or I/O error, 2 malformed CSV,
3 invalid argument spec, 4 failed command under --exec-policy abort.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd, &opts, input, getenv)
		},
	}
	opts.register(root.Flags())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errInvalidConfig) {
		fmt.Fprintf(stderr, "csvformatter: %v\n", err)
	}
	return pipeline.ExitCode(err)
}

func run(cmd *cobra.Command, opts *options, input string, getenv func(string) string) error {
	stderr := cmd.ErrOrStderr()

	fc := config.File{Reader: config.Options{}, Storage: config.Options{}}
	if opts.configPath != "" {
		var err error
		if fc, err = config.Load(opts.configPath); err != nil {
			return err
		}
		issues := config.Validate(fc)
		for _, iss := range issues {
			fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
		if config.HasErrors(issues) {
			fmt.Fprintf(stderr, "configuration is invalid: %s\n", opts.configPath)
			return errInvalidConfig
		}
	}

	s, err := opts.resolve(cmd.Flags(), fc, getenv)
	if err != nil {
		return err
	}
	s.pipeline.Input = input

	if s.pushgatewayURL != "" {
		b, err := prompush.NewBackend(s.pipeline.Job, s.pushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			if opts.verbose {
				log.Printf("metrics: url=%v, job_name=%v", s.pushgatewayURL, s.pipeline.Job)
			}
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := pipeline.Run(ctx, s.pipeline, pipeline.Deps{
		Runner: s.runner,
		Stdout: cmd.OutOrStdout(),
		HTTP:   httpds.Config{Timeout: 60 * time.Second, MaxRetries: 2},
	})
	reportWarnings(stderr, res)
	if err != nil {
		return err
	}
	if opts.verbose {
		log.Printf("completed in %s: %d rows to %s", time.Since(start).Truncate(time.Millisecond), res.Counts.Emitted, res.Sink)
	}
	return nil
}

// reportWarnings surfaces transform failures that did not stop the run.
func reportWarnings(w io.Writer, res pipeline.Result) {
	rep := res.Report
	if rep.Failures == 0 {
		return
	}
	fmt.Fprintf(w, "warning: %d transform error(s) in %d invocations (%d distinct)\n",
		rep.Failures, rep.Invocations, rep.Distinct)
	for i, msg := range rep.Warnings {
		if i == maxWarnings {
			fmt.Fprintf(w, "warning: ... %d more\n", rep.Failures-maxWarnings)
			break
		}
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
