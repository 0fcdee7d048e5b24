package cmd

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/uploadurl/internal/telemetry"
	"github.com/storacha/uploadurl/pkg/config"
	"github.com/storacha/uploadurl/pkg/presigner"
	"github.com/storacha/uploadurl/pkg/server"
	"github.com/storacha/uploadurl/pkg/service/objects"
	"github.com/storacha/uploadurl/pkg/service/uploads"
	"github.com/storacha/uploadurl/pkg/store/objectstore"
)

var ServeCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the upload URL endpoints, and an object store accepting uploads made with the issued URLs.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to configuration file.",
			EnvVars: []string{"UPLOADURL_CONFIG"},
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultServicePort,
			Usage:   "Port to bind the server to.",
		},
		&cli.StringFlag{
			Name:    "public-url",
			Aliases: []string{"u"},
			Usage:   "URL the server is publicly accessible at. Upload URLs are signed for this endpoint.",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level for all subsystems.",
		},
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "Bucket upload URLs are signed for.",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "Region used to scope signatures.",
		},
		&cli.StringFlag{
			Name:  "access-key-id",
			Usage: "Access key ID used to sign upload URLs.",
		},
		&cli.StringFlag{
			Name:  "secret-access-key",
			Usage: "Secret access key used to sign upload URLs.",
		},
		&cli.StringFlag{
			Name:  "legacy-bucket",
			Usage: "Bucket the fixed key endpoint signs upload URLs for.",
		},
		&cli.StringFlag{
			Name:  "legacy-object-key",
			Usage: "Object key the fixed key endpoint signs upload URLs for.",
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory to store uploaded objects in. Objects are kept in memory when not set.",
		},
		&cli.Int64Flag{
			Name:  "max-object-size",
			Usage: "Largest object accepted, in bytes.",
		},
		&cli.StringFlag{
			Name:  "sentry-dsn",
			Usage: "Sentry DSN errors are reported to.",
		},
		&cli.StringFlag{
			Name:  "sentry-environment",
			Usage: "Environment errors are reported under.",
		},
	},
	Action: func(cCtx *cli.Context) error {
		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}

		if cfg.Server.LogLevel != "" {
			if err := logging.SetLogLevel("*", cfg.Server.LogLevel); err != nil {
				return fmt.Errorf("setting log level: %w", err)
			}
		}

		telemetry.SetupErrorReporting(cfg.Sentry.DSN, cfg.Sentry.Environment)

		pubURL, err := url.Parse(cfg.Server.PublicURL)
		if err != nil {
			return fmt.Errorf("parsing public URL: %w", err)
		}

		reqSigner, err := presigner.NewS3RequestPresigner(
			cfg.Bucket.AccessKeyID,
			cfg.Bucket.SecretAccessKey,
			*pubURL,
			cfg.Bucket.Region,
		)
		if err != nil {
			return fmt.Errorf("creating presigner: %w", err)
		}

		var ds datastore.Datastore
		if cfg.Store.DataDir != "" {
			objectsDir, err := mkdirp(cfg.Store.DataDir, "objects")
			if err != nil {
				return err
			}
			lds, err := leveldb.NewDatastore(objectsDir, nil)
			if err != nil {
				return fmt.Errorf("opening object datastore: %w", err)
			}
			defer lds.Close()
			ds = lds
		} else {
			log.Warn("Data directory is not configured, uploaded objects will be kept in memory")
			ds = dssync.MutexWrap(datastore.NewMapDatastore())
		}

		objectStore := objectstore.NewDsObjectStore(ds, objectstore.WithMaxObjectSize(cfg.Store.MaxObjectSize))
		objectsSrv, err := objects.NewServer(reqSigner, objectStore)
		if err != nil {
			return fmt.Errorf("creating object server: %w", err)
		}

		svc, err := uploads.New(reqSigner, uploads.WithBucket(cfg.Bucket.Name))
		if err != nil {
			return fmt.Errorf("creating upload service: %w", err)
		}

		legacySvc, err := uploads.New(
			reqSigner,
			uploads.WithBucket(cfg.Bucket.LegacyName),
			uploads.WithObjectKey(cfg.Bucket.LegacyObjectKey),
		)
		if err != nil {
			return fmt.Errorf("creating legacy upload service: %w", err)
		}

		ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			time.Sleep(time.Millisecond * 50)
			PrintHero(pubURL.String())
		}()

		return server.ListenAndServe(
			ctx,
			fmt.Sprintf(":%d", cfg.Server.Port),
			server.WithUploadService(svc),
			server.WithLegacyUploadService(legacySvc),
			server.WithObjectServer(objectsSrv),
		)
	},
}
