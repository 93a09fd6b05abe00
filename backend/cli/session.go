package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"selfpaced/backend/progress"
	"selfpaced/backend/utils"
)

// httpClient is the transport for every session; tests replace it.
var httpClient progress.HTTPDoer

// session is one progressctl invocation: local state, the server client
// and the engine and facade on top of them.
type session struct {
	settings *Settings
	logger   *zap.Logger
	backend  *progress.SQLiteBackend
	client   *progress.RemoteClient
	engine   *progress.Engine
	facade   *progress.Facade
	identity progress.Identity
}

func openSession(ctx context.Context, settings *Settings) (*session, error) {
	logger, err := utils.InitLogger(utils.LoggerConfig{Level: settings.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	backend, err := progress.OpenSQLiteBackend(settings.StatePath)
	if err != nil {
		return nil, err
	}

	opts := []progress.ClientOption{
		progress.WithToken(settings.Token),
		progress.WithClientLogger(logger),
	}
	if httpClient != nil {
		opts = append(opts, progress.WithHTTPClient(httpClient))
	}
	client := progress.NewRemoteClient(settings.ServerURL, opts...)

	store := progress.NewLocalStore(backend, settings.Namespace, progress.WithStoreLogger(logger))
	engine := progress.NewEngine(store, client,
		progress.WithEngineLogger(logger),
		progress.WithStatusListener(func(s progress.Status) {
			logger.Debug("sync status", zap.String("status", string(s)))
		}),
	)

	s := &session{
		settings: settings,
		logger:   logger,
		backend:  backend,
		client:   client,
		engine:   engine,
		facade:   progress.NewFacade(engine, settings.Units),
	}

	// An unreachable identity provider only means local-only mode.
	id, err := client.Identity(ctx)
	if err != nil {
		logger.Warn("identity lookup failed, working locally", zap.Error(err))
	}
	s.identity = id
	return s, nil
}

// bootstrap merges local and remote state once the identity is known.
func (s *session) bootstrap(ctx context.Context) error {
	_, err := s.engine.Bootstrap(ctx, s.identity)
	return err
}

// email is the signed-in email, or ErrNoIdentity in local-only mode.
func (s *session) email() (string, error) {
	if !s.identity.Known() {
		return "", progress.ErrNoIdentity
	}
	return progress.NormalizeEmail(s.identity.Email), nil
}

// Close waits for background pushes before releasing the local database.
func (s *session) Close() error {
	s.engine.Wait()
	_ = s.logger.Sync()
	return s.backend.Close()
}
