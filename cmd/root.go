package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"pushit/pkg/config"
	"pushit/pkg/console"
	"pushit/pkg/log"
	"pushit/pkg/model"
	"pushit/pkg/plan"
	"pushit/pkg/repo"
	"pushit/pkg/system"
	"pushit/pkg/workflow"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X pushit/cmd.Version=...".
var Version = "dev"

var (
	cfgFile     string
	logLevel    string
	logFile     string
	remote      string
	branch      string
	abortRebase bool
	dryRun      bool
	jsonOutput  bool
	printConfig bool
	configDiff  bool

	settings  model.Settings
	cmdRunner system.CommandRunner = &system.LiveCommandRunner{}
	head                           = repo.Head
	inspect                        = repo.Inspect
	getwd                          = os.Getwd

	rootCmd = &cobra.Command{
		Use:   "pushit [flags] [message...]",
		Short: "pushit stages, commits, rebases and pushes in one go",
		Long: `pushit runs "git add .", "git commit", "git pull --rebase" and "git push"
against one remote and branch, streaming git's output as it goes and stopping
at the first command that fails. Any arguments form the commit message.
Flags are only read before the first message word.

Settings are read from .pushit.yaml (or --config), then PUSHIT_* environment
variables, then flags.`,
		Args:          cobra.ArbitraryArgs,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			settings = loaded

			level, err := log.ParseLevel(settings.LogLevel)
			if err != nil {
				return err
			}
			logger := log.NewSlogLoggerWithFile(level, cmd.ErrOrStderr(), settings.LogFile)
			cmd.SetContext(log.WithLogger(cmd.Context(), logger))
			logger.Debug("Resolved settings", "remote", settings.Remote, "branch", settings.Branch, "abort_rebase", settings.AbortRebaseOnFailure)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if printConfig {
				out, err := config.Marshal(settings)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			if configDiff {
				out, changed, err := config.Diff(model.DefaultSettings(), settings)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Settings match the built-in defaults.")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			dir, err := getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			message := plan.ResolveMessage(args, settings.DefaultMessage)
			logger := log.FromContext(cmd.Context())

			if dryRun {
				return printPlan(cmd, dir, message, logger)
			}

			return workflow.Run(cmd.Context(), workflow.Options{
				Dir:      dir,
				Message:  message,
				Settings: settings,
				Runner:   cmdRunner,
				Console:  console.New(cmd.OutOrStdout()),
				Logger:   logger,
				Head:     head,
			})
		},
	}
)

// Execute runs the root command and exits with the status of the first
// failed git command, or 1 for any other error.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if closeErr := closeLogger(rootCmd); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", closeErr)
	}
	if err != nil && !isStepFailure(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// closeLogger releases the log file opened for the run, if any. Cobra
// skips post-run hooks when RunE fails, so this runs after Execute.
func closeLogger(cmd *cobra.Command) error {
	if cmd.Context() == nil {
		return nil
	}
	if closer, ok := log.FromContext(cmd.Context()).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var failed *workflow.StepFailedError
	if errors.As(err, &failed) && failed.ExitCode != 0 {
		return failed.ExitCode
	}
	return 1
}

func isStepFailure(err error) bool {
	var failed *workflow.StepFailedError
	return errors.As(err, &failed)
}

// loadSettings layers flags over the config file and environment.
func loadSettings(cmd *cobra.Command) (model.Settings, error) {
	explicit := cmd.Flags().Changed("config")
	path := cfgFile
	if !explicit {
		path = config.DefaultFile
	}

	s, err := config.LoadConfig(path, explicit, log.NewSlogLogger(slogLevelFromFlag(), cmd.ErrOrStderr()))
	if err != nil {
		return model.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("remote") {
		s.Remote = remote
	}
	if flags.Changed("branch") {
		s.Branch = branch
	}
	if flags.Changed("abort-rebase-on-failure") {
		s.AbortRebaseOnFailure = abortRebase
	}
	if flags.Changed("log-level") {
		s.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		s.LogFile = logFile
	}

	if errs := s.Validate(); len(errs) > 0 {
		return model.Settings{}, errs
	}
	return s, nil
}

// slogLevelFromFlag picks the level used while the config itself loads.
func slogLevelFromFlag() slog.Level {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

func printPlan(cmd *cobra.Command, dir, message string, logger log.Logger) error {
	steps := plan.Build(settings, message)

	var changes []string
	clean := false
	if info, err := inspect(dir); err != nil {
		logger.Debug("Skipping repository check", "error", err)
	} else {
		clean = info.Clean()
		for _, c := range info.Changes {
			changes = append(changes, c.String())
		}
	}

	if jsonOutput {
		stepsForJSON := []stepForJSON{}
		for _, step := range steps {
			s := stepForJSON{
				Kind:    string(step.Kind),
				Command: step.Description(),
				Args:    append([]string{step.Command.Name}, step.Command.Args...),
				Details: []string{},
			}
			if step.Kind == plan.KindStage && changes != nil {
				s.Details = changes
			}
			stepsForJSON = append(stepsForJSON, s)
		}
		jsonBytes, err := json.MarshalIndent(stepsForJSON, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan to JSON: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dry run enabled. The following commands would be run in %s:\n", dir)
	for _, step := range steps {
		fmt.Fprintf(cmd.OutOrStdout(), "=> %s\n", step.Description())
		if step.Kind == plan.KindStage {
			for _, change := range changes {
				fmt.Fprintf(cmd.OutOrStdout(), "   - %s\n", change)
			}
			if clean {
				fmt.Fprintln(cmd.OutOrStdout(), "   (working tree clean, git commit will fail)")
			}
		}
	}
	if settings.AbortRebaseOnFailure {
		fmt.Fprintf(cmd.OutOrStdout(), "If the pull fails: %s\n", plan.RebaseAbort())
	}
	return nil
}

func init() {
	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	flags.StringVar(&remote, "remote", model.DefaultRemote, "Remote to pull from and push to")
	flags.StringVar(&branch, "branch", model.DefaultBranch, "Branch to pull and push")
	flags.BoolVar(&abortRebase, "abort-rebase-on-failure", false, "Run git rebase --abort when the pull fails")
	flags.BoolVar(&dryRun, "dry-run", false, "Show the commands that would run without executing them")
	flags.BoolVar(&jsonOutput, "json", false, "Output the plan in JSON format (only valid with --dry-run)")
	flags.BoolVar(&printConfig, "print-config", false, "Print the effective settings as YAML and exit")
	flags.BoolVar(&configDiff, "config-diff", false, "Show how the effective settings differ from the defaults and exit")
	rootCmd.MarkFlagsMutuallyExclusive("print-config", "config-diff", "dry-run")
	// Everything after the first message word belongs to the message.
	flags.SetInterspersed(false)
}
