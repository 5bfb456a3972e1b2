// Package app wires workspace resolution shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"os"

	"devfirm/internal/config"
	"devfirm/internal/db"
	"devfirm/internal/engine"
	"devfirm/internal/migrate"
)

// ResolveConfig loads devfirm.yml from the workspace, falling back to the
// default config when the file does not exist. companyOverride, when set,
// replaces the company name from the file.
func ResolveConfig(workspace, companyOverride string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		name := companyOverride
		if name == "" {
			name = "devfirm"
		}
		return config.Default(name), nil
	}
	if companyOverride != "" {
		cfg.Company.Name = companyOverride
	}
	return cfg, nil
}

// WriteDefaultConfig writes devfirm.yml into the workspace. It refuses to
// overwrite an existing file.
func WriteDefaultConfig(workspace, companyName string) (string, error) {
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config %s already exists", path)
	} else if !os.IsNotExist(err) {
		return path, err
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault(companyName)), 0o644); err != nil {
		return path, err
	}
	return path, nil
}

// OpenEngine opens the workspace database, runs migrations, and builds an
// engine from the resolved config. The caller owns the returned close func.
func OpenEngine(workspace, companyOverride string) (*engine.Engine, func(), error) {
	cfg, err := ResolveConfig(workspace, companyOverride)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	e := engine.New(conn, cfg)
	return e, func() { conn.Close() }, nil
}

// WithLoadedEngine opens the engine, loads the saved company, runs fn, and
// persists the state afterwards.
func WithLoadedEngine(ctx context.Context, workspace, companyOverride string, fn func(context.Context, *engine.Engine) error) error {
	e, closeDB, err := OpenEngine(workspace, companyOverride)
	if err != nil {
		return err
	}
	defer closeDB()
	if err := e.Load(ctx); err != nil {
		return err
	}
	if err := fn(ctx, e); err != nil {
		return err
	}
	return e.Save(ctx)
}
