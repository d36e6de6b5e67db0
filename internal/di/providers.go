package di

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jose-valero/psforever-bot/internal/adapters/discord"
	"github.com/jose-valero/psforever-bot/internal/adapters/httpapi"
	"github.com/jose-valero/psforever-bot/internal/adapters/psforever"
	"github.com/jose-valero/psforever-bot/internal/app"
	"github.com/jose-valero/psforever-bot/internal/app/service"
	"github.com/jose-valero/psforever-bot/internal/app/stats"
	"github.com/jose-valero/psforever-bot/internal/domain"
	"github.com/jose-valero/psforever-bot/internal/infra/config"
	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
	"github.com/jose-valero/psforever-bot/internal/infra/logging"
	"github.com/jose-valero/psforever-bot/internal/infra/metrics"
	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

// Docs agrupa los tres documentos persistidos.
type Docs struct {
	Enlist *docstore.Document[domain.EnlistDocument]
	Alert  *docstore.Document[domain.AlertDocument]
	Config *docstore.Document[docstore.Tree]
}

func ProvideLogger(cfg config.Config) zerolog.Logger {
	return logging.New(os.Stdout, cfg.LogLevel, cfg.LogPretty)
}

func ProvideMetrics(cfg config.Config) metrics.Recorder {
	return metrics.New(cfg.MetricsEnabled)
}

// ProvideBlobStore abre el backend elegido por STORAGE_DRIVER y migra el esquema.
func ProvideBlobStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.BlobStore, func(), error) {
	var blobs storage.BlobStore
	switch cfg.StorageDriver {
	case "memory":
		blobs = storage.NewMemoryBlobs()
	case "postgres":
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(db, "postgres"); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		blobs = storage.NewPostgresBlobs(db)
	case "sqlite":
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(db, "sqlite3"); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		blobs = storage.NewSQLiteBlobs(db)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	log.Info().Str("driver", cfg.StorageDriver).Str("prefix", cfg.StoragePrefix).Msg("storage ready")
	return blobs, func() { _ = blobs.Close() }, nil
}

func ProvideDocs(cfg config.Config, blobs storage.BlobStore, rec metrics.Recorder, log zerolog.Logger) (Docs, error) {
	policy, err := cfg.Flush()
	if err != nil {
		return Docs{}, err
	}
	opts := []docstore.Option{
		docstore.WithPolicy(policy),
		docstore.WithLogger(logging.Module(log, "storage")),
		docstore.WithObserver(rec),
	}
	return Docs{
		Enlist: docstore.New(blobs, cfg.StoragePrefix, "enlist", domain.EnlistDocument{Subscriptions: []domain.QuorumSubscriber{}}, opts...),
		Alert:  docstore.New(blobs, cfg.StoragePrefix, "alert", domain.AlertDocument{Subscriptions: []domain.AlertSubscription{}}, opts...),
		Config: docstore.New(blobs, cfg.StoragePrefix, "config", service.DefaultConfigTree(), opts...),
	}, nil
}

func ProvideSession(cfg config.Config) (*discordgo.Session, error) {
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return s, nil
}

func ProvidePlatform(s *discordgo.Session, cfg config.Config, log zerolog.Logger) *discord.Platform {
	return discord.NewPlatform(s, cfg.DMCacheMB, logging.Module(log, "discord"))
}

func ProvideStatsClient(cfg config.Config) *psforever.Client {
	return psforever.New(cfg.StatsBaseURL)
}

func ProvidePoller(client *psforever.Client, cfg config.Config, rec metrics.Recorder, log zerolog.Logger) *stats.Poller {
	return stats.NewPoller(client, cfg.StatsInterval, logging.Module(log, "stats"), rec)
}

func ProvideQuorum(cfg config.Config, p *discord.Platform, poller *stats.Poller, docs Docs, rec metrics.Recorder, log zerolog.Logger) *service.QuorumTracker {
	return service.NewQuorumTracker(service.QuorumConfig{
		ChannelID:  cfg.ChannelID,
		MinPlayers: cfg.MinPlayers,
		Expiry:     cfg.QuorumExpiry,
	}, p, poller, docs.Enlist, logging.Module(log, "enlist"), service.WithQuorumRecorder(rec))
}

func ProvideAlerts(cfg config.Config, p *discord.Platform, poller *stats.Poller, docs Docs, rec metrics.Recorder, log zerolog.Logger) *service.AlertScheduler {
	var limiter *rate.Limiter
	if cfg.AlertDMRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.AlertDMRate), 1)
	}
	return service.NewAlertScheduler(docs.Alert, p, poller, logging.Module(log, "alert"),
		service.WithAlertRecorder(rec),
		service.WithPresence(p),
		service.WithDMLimiter(limiter),
	)
}

func ProvideSetup(cfg config.Config, alerts *service.AlertScheduler, p *discord.Platform, log zerolog.Logger) *service.AlertSetup {
	return service.NewAlertSetup(alerts, p, logging.Module(log, "alert-setup"), cfg.SetupTimeout)
}

func ProvideConfigService(docs Docs, log zerolog.Logger) *service.ConfigService {
	return service.NewConfigService(docs.Config, logging.Module(log, "config"))
}

// ProvideReport: el canal sale del documento config y, si está vacío, del entorno.
func ProvideReport(cfg config.Config, p *discord.Platform, conf *service.ConfigService, log zerolog.Logger) *service.ReportService {
	channel := func() string {
		if id := conf.String(service.ReportChannelPath); id != "" {
			return id
		}
		return cfg.ReportChannelID
	}
	return service.NewReportService(p, channel, logging.Module(log, "report"))
}

// ProvideApp fija el orden de arranque; config va primero porque report lo lee.
func ProvideApp(log zerolog.Logger, conf *service.ConfigService, quorum *service.QuorumTracker, alerts *service.AlertScheduler, report *service.ReportService) *app.App {
	return app.New(log, conf, quorum, alerts, report)
}

func ProvideServices(quorum *service.QuorumTracker, alerts *service.AlertScheduler, setup *service.AlertSetup, report *service.ReportService, conf *service.ConfigService) discord.Services {
	return discord.Services{Quorum: quorum, Alerts: alerts, Setup: setup, Report: report, Config: conf}
}

func ProvideRouter(s *discordgo.Session, p *discord.Platform, svc discord.Services, a *app.App, log zerolog.Logger) *discord.Router {
	return discord.NewRouter(s, p, svc, a.Active, logging.Module(log, "router"))
}

func ProvideHTTP(poller *stats.Poller, rec metrics.Recorder, a *app.App, log zerolog.Logger) *httpapi.Server {
	return httpapi.New(poller, rec.Handler(), a.ActiveNames, logging.Module(log, "http"))
}
