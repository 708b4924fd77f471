// Package server wires and runs the main docseal service: database and
// migrations, envelope storage, code delivery, the KDC client and the HTTP
// API, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docseal/internal/engine/bls"
	"github.com/dmitrijs2005/docseal/internal/httpx"
	"github.com/dmitrijs2005/docseal/internal/logging"
	"github.com/dmitrijs2005/docseal/internal/server/blobstore"
	"github.com/dmitrijs2005/docseal/internal/server/config"
	"github.com/dmitrijs2005/docseal/internal/server/httpapi"
	"github.com/dmitrijs2005/docseal/internal/server/kdcclient"
	"github.com/dmitrijs2005/docseal/internal/server/notify"
	"github.com/dmitrijs2005/docseal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docseal/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	registration *services.RegistrationService
	server       *httpx.Server
}

// NewApp connects to the database, applies migrations and builds the
// services. The returned App owns the database handle.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel).With("service", "docseal")

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	var blobs blobstore.Store
	if c.EnvelopeStorage == config.StorageS3 {
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		blobs = store
	}

	var sender notify.Sender
	if c.SMTPAddr != "" {
		sender = notify.NewSMTPSender(c.SMTPAddr, c.SMTPUser, c.SMTPPassword, c.MailFrom)
	} else {
		logger.Warn(ctx, "no SMTP relay configured, writing one-time codes to stderr")
		sender = notify.NewConsoleSender(os.Stderr)
	}

	params, err := loadParams(c.PublicParamsFile)
	if err != nil {
		return nil, err
	}
	if params == nil {
		logger.Warn(ctx, "public parameters file not found, GET /params disabled", "file", c.PublicParamsFile)
	}

	registration := services.NewRegistrationService(db, rm, sender, logger, c)
	kdc := kdcclient.New(c.KDCURL, c.KDCAPIKey, c.KDCTimeout)

	router, err := httpapi.NewRouter(httpapi.Deps{
		Registrar:        registration,
		KeyRelay:         services.NewKeyRelayService(kdc, logger),
		Documents:        services.NewDocumentService(db, rm, blobs, c.MaxEnvelopeBytes, logger),
		Params:           params,
		SecretKey:        []byte(c.SecretKey),
		MaxEnvelopeBytes: c.MaxEnvelopeBytes,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		registration: registration,
		server:       httpx.NewServer(c.EndpointAddr, router, logger),
	}, nil
}

// loadParams reads and checks the public parameters. A missing file is not
// an error; the result is then nil.
func loadParams(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	params, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("public parameters: %w", err)
	}
	if err := bls.ValidateParams(params); err != nil {
		return nil, fmt.Errorf("public parameters %s: %w", path, err)
	}
	return params, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.registration.RunJanitor(ctx, app.config.PendingCleanupInterval)
	}()

	err := app.server.Run(ctx)
	cancelFunc()
	wg.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(context.Background(), "db close failed", "error", cerr)
	}
	return err
}
