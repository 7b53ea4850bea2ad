package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/illarion/passvault/cmd"
	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("passvault", flag.ExitOnError)
	configPath := global.String("config", "", "Path to config file")
	vaultsDir := global.String("dir", "", "Vaults directory (overrides config)")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	command, args := args[0], args[1:]

	switch command {
	case "help", "-h", "--help":
		if len(args) == 0 {
			printUsage()
			return
		}
		printCommandHelp(args[0])
		return
	case "completion":
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: passvault completion <bash|zsh|fish>")
			os.Exit(1)
		}
		if err := cmd.Completion(os.Stdout, args[0]); err != nil {
			cmd.HandleError(err)
		}
		return
	}

	run, ok := commands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	app := loadApp(*configPath, *vaultsDir)

	// Lock the open vault and zero its key on interrupt
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		select {
		case <-done:
			// Context ended by stop after a normal return
		default:
			app.Close()
			os.Exit(130)
		}
	}()

	err := run(app, args)
	close(done)
	app.Close()
	if err != nil {
		cmd.HandleError(err)
	}
}

func loadApp(configPath, vaultsDir string) *cmd.App {
	cfg, err := config.Load(configPath)
	if err != nil {
		cmd.HandleError(err)
	}
	if vaultsDir != "" {
		cfg.VaultsDir = vaultsDir
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	app, err := cmd.NewApp(cfg, logger)
	if err != nil {
		cmd.HandleError(err)
	}
	return app
}

type runFunc func(app *cmd.App, args []string) error

var commands = map[string]runFunc{
	"create":  runCreate,
	"list":    runList,
	"add":     runAdd,
	"get":     runGet,
	"search":  runSearch,
	"update":  runUpdate,
	"rm":      runRm,
	"stats":   runStats,
	"export":  runExport,
	"delete":  runDelete,
	"rename":  runRename,
	"backup":  runBackup,
	"restore": runRestore,
	"diff":    runDiff,
	"passwd":  runPasswd,
	"compact": runCompact,
	"status":  runStatus,
	"keyring": runKeyring,
}

// parseArgs parses flags placed anywhere among args and returns the
// positional arguments. It exits with usage unless exactly want
// positionals remain (want < 0 accepts any number).
func parseArgs(fs *flag.FlagSet, args []string, want int) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if want >= 0 && len(positional) != want {
		printCommandHelp(fs.Name())
		os.Exit(1)
	}
	return positional
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid entry id: %q", s)
	}
	return id, nil
}

// entryFlags registers the entry field flags on fs. The returned func
// reports the fields that were given.
func entryFlags(fs *flag.FlagSet) func() cmd.EntryFields {
	name := fs.String("name", "", "Entry name")
	user := fs.String("user", "", "Username")
	url := fs.String("url", "", "URL")
	notes := fs.String("notes", "", "Notes")
	askPassword := fs.Bool("password", false, "Prompt for the entry password")
	askAPIKey := fs.Bool("api-key", false, "Prompt for an API key")

	return func() cmd.EntryFields {
		f := cmd.EntryFields{AskPassword: *askPassword, AskAPIKey: *askAPIKey}
		fs.Visit(func(fl *flag.Flag) {
			switch fl.Name {
			case "name":
				f.Name = name
			case "user":
				f.Username = user
			case "url":
				f.URL = url
			case "notes":
				f.Notes = notes
			}
		})
		return f
	}
}

func runCreate(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	description := fs.String("description", "", "Vault description")
	saveKeyring := fs.Bool("keyring", false, "Store the master password in the OS keyring")
	pos := parseArgs(fs, args, 1)
	return app.Create(pos[0], *description, *saveKeyring)
}

func runList(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	names := fs.Bool("names", false, "Print vault names only")
	parseArgs(fs, args, 0)
	return app.List(*names)
}

func runAdd(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fields := entryFlags(fs)
	pos := parseArgs(fs, args, -1)
	if len(pos) < 1 || len(pos) > 2 {
		printCommandHelp("add")
		os.Exit(1)
	}
	f := fields()
	if len(pos) == 2 && f.Name == nil {
		f.Name = &pos[1]
	}
	return app.Add(pos[0], f)
}

func runGet(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.Int("id", 0, "Entry id")
	name := fs.String("name", "", "Filter by name substring")
	show := fs.Bool("show", false, "Show secrets")
	pos := parseArgs(fs, args, 1)
	return app.Get(pos[0], core.EntryFilter{ID: *id, Name: *name}, *show)
}

func runSearch(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	show := fs.Bool("show", false, "Show secrets")
	pos := parseArgs(fs, args, 2)
	return app.Search(pos[0], pos[1], *show)
}

func runUpdate(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	fields := entryFlags(fs)
	pos := parseArgs(fs, args, 2)
	id, err := parseID(pos[1])
	if err != nil {
		return err
	}
	return app.Update(pos[0], id, fields())
}

func runRm(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)
	id, err := parseID(pos[1])
	if err != nil {
		return err
	}
	return app.Remove(pos[0], id)
}

func runStats(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	pos := parseArgs(fs, args, 1)
	return app.Stats(pos[0])
}

func runExport(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", core.ExportJSON, "Export format")
	output := fs.String("o", "", "Write to file instead of stdout")
	pos := parseArgs(fs, args, 1)
	return app.Export(pos[0], *format, *output)
}

func runDelete(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	force := fs.Bool("force", false, "Delete without confirmation")
	pos := parseArgs(fs, args, 1)
	return app.Delete(pos[0], *force)
}

func runRename(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)
	return app.Rename(pos[0], pos[1])
}

func runBackup(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)
	return app.Backup(pos[0], pos[1])
}

func runRestore(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)
	return app.Restore(pos[0], pos[1])
}

func runDiff(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)
	return app.Diff(pos[0], pos[1])
}

func runPasswd(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	pos := parseArgs(fs, args, 1)
	return app.Passwd(pos[0])
}

func runCompact(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	pos := parseArgs(fs, args, 1)
	return app.Compact(pos[0])
}

func runStatus(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	pos := parseArgs(fs, args, -1)
	switch len(pos) {
	case 0:
		return app.Status("")
	case 1:
		return app.Status(pos[0])
	default:
		printCommandHelp("status")
		os.Exit(1)
	}
	return nil
}

func runKeyring(app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("keyring", flag.ExitOnError)
	pos := parseArgs(fs, args, 2)

	switch pos[0] {
	case "save":
		return app.KeyringSave(pos[1])
	case "delete":
		return app.KeyringDelete(pos[1])
	case "status":
		return app.KeyringStatus(pos[1])
	default:
		return fmt.Errorf("unknown keyring subcommand: %s (use save, delete or status)", pos[0])
	}
}
