package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/active-inference/aifcore/aierrors"
	"github.com/active-inference/aifcore/config"
	"github.com/active-inference/aifcore/persistence"
	"github.com/spf13/cobra"
)

// Exit codes, per spec.md §6 "CLI surface".
const (
	exitOK             = 0
	exitConfigError    = 2
	exitRuntimeError   = 3
	exitPersistenceErr = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return exitConfigError
	}

	var statePath string
	root := &cobra.Command{
		Use:           "aifctl",
		Short:         "drive an active-inference agent population",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&statePath, "state", "./aifctl.state",
		"path to the persisted session (agent snapshots)")

	code := exitOK
	exit := func(c int) { code = c }

	root.AddCommand(runCmd(&cfg, &statePath, exit))
	root.AddCommand(stepCmd(&cfg, &statePath, exit))
	root.AddCommand(inspectCmd(&statePath, exit))
	root.AddCommand(saveCmd(&statePath, exit))
	root.AddCommand(loadCmd(&statePath, exit))
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if code == exitOK {
			code = exitRuntimeError
		}
	}
	return code
}

func runCmd(cfg *config.Config, statePath *string, exit func(int)) *cobra.Command {
	var configPath string
	c := &cobra.Command{
		Use:   "run",
		Short: "build a fresh agent population from --config and step it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				exit(exitConfigError)
				return fmt.Errorf("run: --config is required")
			}
			scenario, err := LoadScenario(configPath)
			if err != nil {
				exit(exitConfigError)
				return err
			}

			sess, err := NewSessionFromScenario(scenario, cfg.Logger)
			if err != nil {
				exit(exitConfigError)
				return err
			}

			ticks := scenario.Ticks
			if ticks <= 0 {
				ticks = 1
			}
			if err := stepSession(sess, ticks); err != nil {
				exit(exitRuntimeError)
				return err
			}

			if err := persistSession(sess, *statePath); err != nil {
				exit(exitPersistenceErr)
				return err
			}
			fmt.Printf("ran %d tick(s) over %d agent(s); state written to %s\n",
				ticks, len(sess.Scheduler.Handles()), *statePath)
			return nil
		},
	}
	c.Flags().StringVar(&configPath, "config", "", "path to a ScenarioConfig JSON document")
	return c
}

func stepCmd(cfg *config.Config, statePath *string, exit func(int)) *cobra.Command {
	var n int
	c := &cobra.Command{
		Use:   "step",
		Short: "advance the persisted session by --n ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := reloadSession(*statePath, cfg)
			if err != nil {
				exit(exitPersistenceErr)
				return err
			}
			if n <= 0 {
				n = 1
			}
			if err := stepSession(sess, n); err != nil {
				exit(exitRuntimeError)
				return err
			}
			if err := persistSession(sess, *statePath); err != nil {
				exit(exitPersistenceErr)
				return err
			}
			fmt.Printf("stepped %d tick(s); session now at tick %d\n", n, sess.Scheduler.Tick())
			return nil
		},
	}
	c.Flags().IntVar(&n, "n", 1, "number of ticks to advance")
	return c
}

func inspectCmd(statePath *string, exit func(int)) *cobra.Command {
	var agentID string
	c := &cobra.Command{
		Use:   "inspect",
		Short: "print the StateSummary of --agent ID from the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				exit(exitConfigError)
				return fmt.Errorf("inspect: --agent is required")
			}
			store, err := persistence.OpenFileStore(*statePath)
			if err != nil {
				exit(exitPersistenceErr)
				return err
			}
			snap, err := store.LoadAgent(context.Background(), agentID)
			if err != nil {
				exit(exitPersistenceErr)
				return err
			}
			rec := persistence.FromSnapshot(snap)
			out, err := json.MarshalIndent(summarize(rec), "", "  ")
			if err != nil {
				exit(exitRuntimeError)
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	c.Flags().StringVar(&agentID, "agent", "", "agent id to inspect")
	return c
}

func saveCmd(statePath *string, exit func(int)) *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "save",
		Short: "export the persisted session to --path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				exit(exitConfigError)
				return fmt.Errorf("save: --path is required")
			}
			data, err := os.ReadFile(*statePath)
			if err != nil {
				exit(exitPersistenceErr)
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				exit(exitPersistenceErr)
				return err
			}
			fmt.Printf("saved session %s to %s\n", *statePath, path)
			return nil
		},
	}
	c.Flags().StringVar(&path, "path", "", "destination for the exported session")
	return c
}

func loadCmd(statePath *string, exit func(int)) *cobra.Command {
	var path string
	c := &cobra.Command{
		Use:   "load",
		Short: "import --path as the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				exit(exitConfigError)
				return fmt.Errorf("load: --path is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				exit(exitPersistenceErr)
				return err
			}
			if err := os.WriteFile(*statePath, data, 0o644); err != nil {
				exit(exitPersistenceErr)
				return err
			}
			fmt.Printf("loaded %s as session %s\n", path, *statePath)
			return nil
		},
	}
	c.Flags().StringVar(&path, "path", "", "source session to import")
	return c
}

// stepSession advances sess by n ticks, surfacing the first per-tick
// scheduler error (spec.md §7 "the scheduler never aborts on a single-
// agent failure"; Step itself only returns an error on world-snapshot
// failure, which is fatal for the whole run).
func stepSession(sess *Session, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(n)*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		if err := sess.Scheduler.Step(ctx); err != nil {
			return aierrors.New(aierrors.ExternalFailure, "main.stepSession", err)
		}
	}
	return nil
}

// persistSession writes every handle's Record to a FileStore at path.
func persistSession(sess *Session, path string) error {
	store, err := persistence.OpenFileStore(path)
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, h := range sess.Scheduler.Handles() {
		if err := store.SaveAgent(ctx, persistence.ToSnapshot(h.Record)); err != nil {
			return err
		}
	}
	return store.Flush()
}

// reloadSession rebuilds a Session from every agent snapshot in path,
// reconstructing the runtime wiring persistence does not carry.
func reloadSession(path string, cfg *config.Config) (*Session, error) {
	store, err := persistence.OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	ids, err := store.ListAgents(ctx, persistence.Filter{})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("reloadSession: no agents persisted at %s", path)
	}

	// An empty Agents list is fine here: NewSessionFromScenario only
	// wires the World/Messaging/Scheduler trio, the rehydrated handles
	// below are registered onto it afterward.
	sess, err := NewSessionFromScenario(ScenarioConfig{Seed: cfg.Seed}, cfg.Logger)
	if err != nil {
		return nil, err
	}
	sess.Scheduler.SetWorkers(maxInt(cfg.NumWorkers, 1))

	for _, id := range ids {
		snap, err := store.LoadAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		rec := persistence.FromSnapshot(snap)
		sess.Scheduler.Register(rehydrateHandle(rec))
	}
	return sess, nil
}
