// Package app assembles the application stack shared by the CLI
// commands: database, migrations, repo, media store, mailer and engine.
package app

import (
	"database/sql"

	"maintline/internal/config"
	"maintline/internal/db"
	"maintline/internal/engine"
	"maintline/internal/events"
	"maintline/internal/mail"
	"maintline/internal/media"
	"maintline/internal/migrate"
	"maintline/internal/repo"
)

type Env struct {
	DB     *sql.DB
	Repo   *repo.Repo
	Store  *media.Store
	Config *config.Config
	Engine *engine.Engine
}

// Open builds a ready-to-use environment for a workspace: the database
// is opened and migrated, and the media root defaults into the workspace
// unless the config names one.
func Open(workspace, configPath string) (*Env, error) {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	r := repo.New(conn)
	root := cfg.Media.Root
	if root == "" {
		root = db.MediaRoot(workspace)
	}
	store := &media.Store{Root: root}
	e := engine.New(conn, r, events.NewWriter(nil), mail.FromConfig(cfg.Email), store, cfg)
	return &Env{DB: conn, Repo: r, Store: store, Config: cfg, Engine: e}, nil
}

func (e *Env) Close() error {
	return e.DB.Close()
}
