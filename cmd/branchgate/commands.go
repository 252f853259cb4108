// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/branchgate/branchgate/lib/serve"
	"github.com/branchgate/branchgate/lib/version"
)

// defaultSocketPath is used when neither --socket nor the
// BRANCHGATE_SOCKET environment variable is set.
const defaultSocketPath = "/run/branchgate/admin.sock"

// ruleSummary mirrors the daemon's list-rules response rows.
type ruleSummary struct {
	Name            string `json:"name"`
	Alias           string `json:"alias,omitempty"`
	Locked          bool   `json:"locked"`
	PermanentCount  int    `json:"permanent_count"`
	DisposableCount int    `json:"disposable_count"`
}

// ruleDetail mirrors the daemon's show-rule response.
type ruleDetail struct {
	Name       string   `json:"name"`
	Alias      string   `json:"alias,omitempty"`
	Locked     bool     `json:"locked"`
	Permanent  []string `json:"permanent,omitempty"`
	Disposable []string `json:"disposable,omitempty"`
}

// grantCount mirrors one row of the daemon's grants response.
type grantCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// connectFlags is the flag set shared by every command that talks to
// the daemon.
type connectFlags struct {
	socketPath string
	outputJSON bool
}

func (f *connectFlags) register(flagSet *pflag.FlagSet) {
	socketDefault := os.Getenv("BRANCHGATE_SOCKET")
	if socketDefault == "" {
		socketDefault = defaultSocketPath
	}
	flagSet.StringVar(&f.socketPath, "socket", socketDefault, "path to the daemon admin socket")
	flagSet.BoolVar(&f.outputJSON, "json", false, "output as JSON")
}

func (f *connectFlags) client() *serve.Client {
	return serve.NewClient(f.socketPath)
}

// emitJSON writes result as indented JSON to stdout when --json is
// set. Returns true when output was handled.
func (f *connectFlags) emitJSON(result any) (bool, error) {
	if !f.outputJSON {
		return false, nil
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return true, encoder.Encode(result)
}

func root() *command {
	return &command{
		Name:    "branchgate",
		Summary: "Operator CLI for the branchgate commit gate daemon.",
		Subcommands: []*command{
			rulesCommand(),
			showCommand(),
			grantsCommand(),
			createCommand(),
			versionCommand(),
		},
	}
}

func rulesCommand() *command {
	var flags connectFlags
	return &command{
		Name:    "rules",
		Summary: "List all branch rules.",
		Usage:   "branchgate rules [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("rules", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("rules takes no arguments")
			}

			var summaries []ruleSummary
			if err := flags.client().Call(context.Background(), "list-rules", nil, &summaries); err != nil {
				return err
			}

			if done, err := flags.emitJSON(summaries); done {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "NAME\tALIAS\tLOCKED\tPERMANENT\tDISPOSABLE")
			for _, summary := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\n",
					summary.Name, summary.Alias, summary.Locked,
					summary.PermanentCount, summary.DisposableCount)
			}
			return tw.Flush()
		},
	}
}

func showCommand() *command {
	var flags connectFlags
	return &command{
		Name:    "show",
		Summary: "Show one branch rule with its whitelists.",
		Usage:   "branchgate show <branch> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show requires exactly one branch argument")
			}

			var detail ruleDetail
			if err := flags.client().Call(context.Background(), "show-rule",
				map[string]any{"branch": args[0]}, &detail); err != nil {
				return err
			}

			if done, err := flags.emitJSON(detail); done {
				return err
			}

			fmt.Printf("Name:       %s\n", detail.Name)
			fmt.Printf("Alias:      %s\n", detail.Alias)
			fmt.Printf("Locked:     %t\n", detail.Locked)
			fmt.Printf("Permanent:  %s\n", strings.Join(detail.Permanent, ", "))
			fmt.Printf("Disposable: %s\n", strings.Join(detail.Disposable, ", "))
			return nil
		},
	}
}

func grantsCommand() *command {
	var flags connectFlags
	return &command{
		Name:    "grants",
		Summary: "Show one-time grant counts for a branch.",
		Usage:   "branchgate grants <branch> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("grants", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("grants requires exactly one branch argument")
			}

			var counts []grantCount
			if err := flags.client().Call(context.Background(), "grants",
				map[string]any{"branch": args[0]}, &counts); err != nil {
				return err
			}

			if done, err := flags.emitJSON(counts); done {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(tw, "USER\tGRANTS")
			for _, count := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", count.User, count.Count)
			}
			return tw.Flush()
		},
	}
}

func createCommand() *command {
	var flags connectFlags
	var alias string
	var locked bool
	return &command{
		Name:    "create",
		Summary: "Create a new branch rule.",
		Usage:   "branchgate create <name> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVar(&alias, "alias", "", "secondary identifier for the branch")
			flagSet.BoolVar(&locked, "locked", false, "create the rule in the locked state")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("create requires exactly one name argument")
			}

			if err := flags.client().Call(context.Background(), "create-rule", map[string]any{
				"name":   args[0],
				"alias":  alias,
				"locked": locked,
			}, nil); err != nil {
				return err
			}

			fmt.Printf("created rule %s\n", args[0])
			return nil
		},
	}
}

func versionCommand() *command {
	return &command{
		Name:    "version",
		Summary: "Print version information.",
		Usage:   "branchgate version",
		Run: func(args []string) error {
			fmt.Println("branchgate " + version.Full())
			return nil
		},
	}
}
