package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/muelita-bot/internal/appointments"
	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/internal/media"
	"github.com/wolfman30/muelita-bot/internal/notify"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// ExporterDeps carries the shared clients appointment sinks may need.
type ExporterDeps struct {
	AWS     *aws.Config
	Pool    *pgxpool.Pool
	Email   notify.EmailSender
	Logger  *logging.Logger
	Metrics *metrics.BotMetrics
}

// BuildExporter fans appointment requests out to every configured sink.
// With nothing configured, requests are only logged.
func BuildExporter(ctx context.Context, cfg *appconfig.Config, deps ExporterDeps) (*appointments.MultiExporter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var sinks []appointments.Sink

	if id := strings.TrimSpace(cfg.GoogleSheetsSpreadsheetID); id != "" {
		svc, err := appointments.NewSheetsService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sheets: %w", err)
		}
		exporter, err := appointments.NewSheetsExporter(svc, id, cfg.GoogleSheetsRange)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: sheets: %w", err)
		}
		sinks = append(sinks, appointments.Sink{Name: "sheets", Exporter: exporter})
	}

	if deps.Pool != nil {
		sinks = append(sinks, appointments.Sink{Name: "postgres", Exporter: appointments.NewPostgresLedger(deps.Pool)})
	}

	if table := strings.TrimSpace(cfg.AppointmentsDynamoTable); table != "" {
		if deps.AWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config is required for dynamo export")
		}
		exporter, err := appointments.NewDynamoExporter(dynamodb.NewFromConfig(*deps.AWS), table)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: dynamo: %w", err)
		}
		sinks = append(sinks, appointments.Sink{Name: "dynamo", Exporter: exporter})
	}

	if deps.Email != nil && strings.TrimSpace(cfg.ClinicNotifyEmail) != "" {
		sinks = append(sinks, appointments.Sink{
			Name:     "email",
			Exporter: notify.NewAppointmentNotifier(deps.Email, cfg.ClinicNotifyEmail, logger),
		})
	}

	if len(sinks) == 0 {
		logger.Warn("no appointment sinks configured; requests will only be logged")
		sinks = append(sinks, appointments.Sink{Name: "log", Exporter: appointments.NewLogExporter(logger)})
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name)
	}
	logger.Info("appointment sinks configured", "sinks", names)
	return appointments.NewMultiExporter(logger, deps.Metrics, sinks...), nil
}

// BuildEmailSender prefers SendGrid, then SES, then a logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	if cfg.SESFromEmail != "" && awsCfg != nil {
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}

// BuildMediaSource presigns the sample document from MEDIA_BUCKET when set,
// otherwise serves MEDIA_URL as-is.
func BuildMediaSource(cfg *appconfig.Config, clinic conversation.ClinicProfile, awsCfg *aws.Config, logger *logging.Logger) (conversation.MediaSource, error) {
	static := conversation.StaticMediaSource{Media: clinic.SampleDocument}
	if cfg == nil {
		return static, nil
	}
	if strings.TrimSpace(cfg.MediaURL) != "" {
		static.Media.URL = cfg.MediaURL
	}
	if strings.TrimSpace(cfg.MediaBucket) == "" {
		return static, nil
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: aws config is required for MEDIA_BUCKET")
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointURL != ""
	})
	return media.NewS3SourceFromClient(client, media.S3SourceConfig{
		Bucket:  cfg.MediaBucket,
		Key:     cfg.MediaKey,
		Caption: clinic.SampleDocument.Caption,
		TTL:     cfg.MediaPresignTTL,
	}, logger)
}
