package app

import (
	"time"

	"github.com/go-redis/redis"
	"gorm.io/gorm"

	"github.com/talkie-app/sttd/internal/config"
	"github.com/talkie-app/sttd/internal/dispatch"
	"github.com/talkie-app/sttd/internal/repository/transcript"
	"github.com/talkie-app/sttd/internal/server"
	"github.com/talkie-app/sttd/internal/session"
	"github.com/talkie-app/sttd/pkg/Logger"
	"github.com/talkie-app/sttd/pkg/engine"
	"github.com/talkie-app/sttd/pkg/engine/sherpa"
	"github.com/talkie-app/sttd/pkg/engine/vosk"
	"github.com/talkie-app/sttd/pkg/engine/whisper"
)

// App represents the application with all its dependencies
type App struct {
	Config     *config.Settings
	Logger     *Logger.Logger
	DB         *gorm.DB
	RC         *redis.Client
	Engines    *engine.Registry
	Objects    *session.Registry
	Dispatcher *dispatch.Dispatcher
	// repos
	TranscriptRepo transcript.Repository
	ServerDeps     server.Dependencies
}

// NewApp creates a new application instance with all dependencies properly wired
func NewApp(cfg *config.Settings, logger *Logger.Logger, db *gorm.DB, rc *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		RC:     rc,
	}

	if err := app.setupDependencies(); err != nil {
		return nil, err
	}

	return app, nil
}

// setupDependencies initializes all application dependencies
func (a *App) setupDependencies() error {
	// 1. engine drivers
	a.Engines = engine.NewRegistry()
	a.Engines.Register(vosk.NewDriver())
	a.Engines.Register(sherpa.NewDriver(a.Config.Engines.SherpaServerURL))
	a.Engines.Register(whisper.NewDriver(a.Config.Engines.WhisperURL, a.Config.Engines.WhisperLanguage))
	if !vosk.Available() {
		a.Logger.Warn("vosk backend not compiled in; vosk model loads will fail")
	}

	// 2. object registry + dispatcher
	a.Objects = session.NewRegistry(a.Logger)
	a.Dispatcher = dispatch.New(a.Objects, a.Engines, a.Logger)

	// 3. transcript persistence
	if a.DB != nil {
		ttl := time.Duration(a.Config.PartialTTLSecs) * time.Second
		a.TranscriptRepo = transcript.NewGormTranscriptRepo(a.DB, a.RC, ttl)
	} else {
		a.Logger.Warn("database disabled; transcripts will not be persisted")
		a.TranscriptRepo = transcript.NopRepository{}
	}

	a.ServerDeps = server.NewServerDependencies(
		a.Dispatcher,
		a.Objects,
		a.TranscriptRepo,
		a.Logger,
		a.Config,
	)

	return nil
}

// GetServerDependencies returns the server dependencies
func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}

// Shutdown tears down every live STT object.
func (a *App) Shutdown() {
	a.Objects.Shutdown()
}
