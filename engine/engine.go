// Package engine is the composition root: it wires the remote store client,
// the realtime channel, the task store, the permission-gated coordinator and
// the reconciler into one mount/unmount lifecycle per project view.
package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/board"
	"boardsync/coordinator"
	"boardsync/domain"
	"boardsync/realtime"
	"boardsync/reconcile"
	"boardsync/remote"
)

// Engine owns the session-scoped collaborators shared across project
// mounts: the store client and the realtime channel.
type Engine struct {
	cfg      Config
	client   *remote.Client
	notifier coordinator.Notifier
	logger   *log.Logger

	rc *redis.Client
	rt *realtime.Manager
}

// New builds an engine from config. Token supplies the session bearer
// token; notifier receives user-facing failure toasts and may be nil.
func New(cfg Config, token remote.TokenSource, notifier coordinator.Notifier, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	opts, err := cfg.RedisOptions()
	if err != nil {
		return nil, fmt.Errorf("parsing redis connection string: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		client:   remote.NewClient(cfg.APIBaseURL, token, &http.Client{}, logger),
		notifier: notifier,
		logger:   logger,
		rc:       redis.NewClient(opts),
	}, nil
}

// Start establishes the session realtime channel. It must be called once
// before the first Mount.
func (e *Engine) Start(ctx context.Context) {
	e.rt = realtime.Establish(ctx, e.rc, e.cfg.EventsChannel, e.logger)
}

// Close tears the realtime channel and the redis connection down.
func (e *Engine) Close() {
	realtime.SignOut()
	e.rt = nil
	if err := e.rc.Close(); err != nil {
		e.logger.WithError(err).Warn("closing redis client")
	}
}

// ProjectSession is one mounted project view: a live board kept current by
// the reconciler, plus a coordinator applying the viewer's mutations.
type ProjectSession struct {
	Project     domain.Project
	Role        domain.Role
	Board       *board.Store
	Coordinator *coordinator.Coordinator

	reconciler *reconcile.Reconciler
}

// Mount fetches the project, seeds the board and starts reconciliation.
// Realtime events arriving before the initial fetch lands are dropped;
// the fetch itself supersedes them.
func (e *Engine) Mount(ctx context.Context, projectID string) (*ProjectSession, error) {
	if e.rt == nil {
		return nil, fmt.Errorf("engine not started")
	}
	view, err := e.client.FetchProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", projectID, err)
	}

	b := board.New(view.Project.StageIDs())
	rec := reconcile.New(projectID, b, e.client, e.cfg.Debounce, e.logger)
	rec.Start(ctx, e.rt)

	b.ReplaceAll(view.TasksByStage)
	rec.MarkLoaded()

	coord := coordinator.New(projectID, view.Role, b, e.client, coordinator.Options{
		ReturnStage: e.cfg.ReturnStage,
		Notifier:    e.notifier,
		Logger:      e.logger,
	})

	e.logger.WithFields(log.Fields{
		"project_id": projectID,
		"role":       view.Role,
		"stages":     len(view.Project.Stages),
	}).Info("project mounted")

	return &ProjectSession{
		Project:     view.Project,
		Role:        view.Role,
		Board:       b,
		Coordinator: coord,
		reconciler:  rec,
	}, nil
}

// Unmount stops reconciliation and discards pending refetches. The board
// remains readable but is no longer kept current.
func (s *ProjectSession) Unmount() {
	s.reconciler.Stop()
}
