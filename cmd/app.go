package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/registry"
	"github.com/illarion/passvault/internal/storage"
)

// PasswordSource reads secrets interactively
type PasswordSource interface {
	// Prompt reads one secret
	Prompt(prompt string) ([]byte, error)
	// PromptConfirm reads a new secret twice and checks both match
	PromptConfirm(label string) ([]byte, error)
}

type terminalSource struct{}

func (terminalSource) Prompt(prompt string) ([]byte, error) {
	return core.ReadPassword(prompt)
}

func (terminalSource) PromptConfirm(label string) ([]byte, error) {
	return core.ReadPasswordConfirm(label)
}

// App carries what every command needs
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *registry.Registry
	In        io.Reader
	Out       io.Writer
	Passwords PasswordSource
}

// NewApp opens the vault registry described by cfg
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	backend, err := storage.NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.VaultsDir, backend,
		registry.WithLogger(logger),
		registry.WithSessionOptions(
			core.WithAutoSave(cfg.AutoSave),
			core.WithKeyRetention(cfg.RetainKey),
		),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  reg,
		In:        os.Stdin,
		Out:       os.Stdout,
		Passwords: terminalSource{},
	}, nil
}

// Close locks any open vault and releases the registry
func (a *App) Close() error {
	return a.Registry.Close()
}
