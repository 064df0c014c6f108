package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peshell/pesh/core/assist"
	"github.com/peshell/pesh/core/config"
	"github.com/peshell/pesh/core/interp"
	"github.com/peshell/pesh/core/shell"
	"github.com/peshell/pesh/core/state"
)

var (
	cfgPath     string
	commandLine string

	// lastStatus is the exit status of the shell run by the root command;
	// Execute passes it through to the process exit code.
	lastStatus int
)

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault is for the shell itself, which must start even
// without a config directory.
func loadConfigOrDefault() *config.Configuration {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return config.Default()
	}
	return configuration
}

// rootCmd runs the shell: a script file with arguments, a -c command
// string, or an interactive session when stdin is a terminal.
var rootCmd = &cobra.Command{
	Use:   "pesh [script [args...]]",
	Short: "A small POSIX-style command interpreter.",
	Long: `pesh runs POSIX-style command lines: pipelines, redirections,
if/while, && and ||, background lists and shell functions.

With no arguments it reads commands interactively; with a script path it
runs the script; with -c it runs the given command string.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		configuration := loadConfigOrDefault()

		switch {
		case commandLine != "":
			lastStatus = runCommandString(configuration, commandLine, args)
		case len(args) > 0:
			status, err := runScript(configuration, args[0], args[1:])
			if err != nil {
				return err
			}
			lastStatus = status
		default:
			status, err := runInteractive(configuration)
			if err != nil {
				return err
			}
			lastStatus = status
		}
		return nil
	},
}

func runCommandString(configuration *config.Configuration, src string, args []string) int {
	in := newInterp(configuration, localEnv(configuration, args, false), "pesh")
	status := in.Run(src)
	in.Wait()
	return status
}

func runScript(configuration *config.Configuration, path string, args []string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("pesh: %s: %v", path, err)
	}
	in := newInterp(configuration, localEnv(configuration, args, false), path)
	status := in.Run(string(src))
	in.Wait()
	return status, nil
}

func runInteractive(configuration *config.Configuration) (int, error) {
	isPty := term.IsTerminal(int(os.Stdin.Fd()))
	env := localEnv(configuration, nil, true)
	in := newInterp(configuration, env, "pesh")

	sess, err := shell.New(configuration, in, os.Stdin, os.Stdout, os.Stderr, isPty)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	status := sess.Run()
	in.Wait()
	return status, nil
}

func newInterp(configuration *config.Configuration, env *state.Environment, name string) *interp.Interp {
	opts := interp.Options{
		Name: name,
		Env:  env,
	}
	if endpoint := configuration.Assist.Endpoint; endpoint != "" {
		opts.Assist = assist.New(endpoint, configuration.Assist.RatePerSec)
	}
	return interp.New(opts)
}

// localEnv builds the initial environment for a shell running as a local
// process: the inherited OS environment plus the standard seed
// variables.
func localEnv(configuration *config.Configuration, args []string, interactive bool) *state.Environment {
	env := state.NewFromEnviron(os.Environ(), args)
	env.Interactive = interactive

	if _, ok := env.Get(shell.EnvPath); !ok {
		env.SetExported(shell.EnvPath, configuration.DefaultPath)
	}
	if _, ok := env.Get(shell.EnvHostname); !ok {
		host, err := os.Hostname()
		if err != nil {
			host = "localhost"
		}
		env.SetExported(shell.EnvHostname, host)
	}
	if cwd, err := os.Getwd(); err == nil {
		env.Cwd = cwd
	} else {
		env.Cwd = "/"
	}
	env.Set(shell.EnvPWD, env.Cwd)

	prompt := configuration.Prompt
	if prompt == "" {
		prompt = shell.DefaultPrompt
	}
	env.Set(shell.EnvPrompt, prompt)
	env.Set(shell.EnvPrompt2, configuration.ContinuationPrompt)
	env.SetExported("PESH", "pesh")

	return env
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return lastStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run this command string and exit")
}
