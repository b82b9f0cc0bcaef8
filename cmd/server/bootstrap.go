package main

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/config"
	"github.com/peerhub/peerhub/internal/handlers"
	"github.com/peerhub/peerhub/internal/services"
	"github.com/peerhub/peerhub/internal/storage"
	"github.com/peerhub/peerhub/pkg/logger"
)

// application wires every service and handler together.
type application struct {
	cfg    *config.Config
	queue  services.TaskQueue
	worker *services.Worker

	auth *services.AuthService
	logs *services.SystemLogService

	authHandler       *handlers.AuthHandler
	projectHandler    *handlers.ProjectHandler
	membershipHandler *handlers.MembershipHandler
	invitationHandler *handlers.InvitationHandler
	uploadHandler     *handlers.UploadHandler
	promptHandler     *handlers.PromptHandler
	messageHandler    *handlers.MessageHandler
	profileHandler    *handlers.ProfileHandler
	systemLogHandler  *handlers.SystemLogHandler
}

func buildApplication(ctx context.Context, cfg *config.Config, db *gorm.DB) (*application, error) {
	store, err := storage.NewS3Store(ctx, &cfg.AWS)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, err
	}
	transcriber := services.NewTranscriptionService(db, store,
		transcribe.NewFromConfig(awsCfg), cfg.AWS.Bucket)

	queue := services.NewTaskQueue(&cfg.Redis, transcriber)
	var worker *services.Worker
	if queue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, transcriber)
	}

	presignTTL := time.Duration(cfg.AWS.PresignExpireMin) * time.Minute
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}

	var ldapSvc *services.LDAPService
	if cfg.LDAP.Enabled {
		ldapSvc = services.NewLDAPService(&cfg.LDAP)
		logger.Infof("ldap login enabled against %s", cfg.LDAP.Host)
	}

	logs := services.NewSystemLogService(db)
	auth := services.NewAuthService(db, &cfg.JWT, ldapSvc)
	visibility := services.NewVisibilityService(db)
	memberships := services.NewMembershipService(db)
	invitations := services.NewInvitationService(db)
	projects := services.NewProjectService(db, store, presignTTL)
	uploads := services.NewUploadService(db, store, queue, transcriber, presignTTL)
	prompts := services.NewPromptService(db)
	messages := services.NewMessageService(db)
	profiles := services.NewProfileService(db)
	users := services.NewUserService(db)

	return &application{
		cfg:    cfg,
		queue:  queue,
		worker: worker,
		auth:   auth,
		logs:   logs,

		authHandler:       handlers.NewAuthHandler(auth, logs),
		projectHandler:    handlers.NewProjectHandler(projects, visibility, logs),
		membershipHandler: handlers.NewMembershipHandler(memberships, logs),
		invitationHandler: handlers.NewInvitationHandler(invitations),
		uploadHandler:     handlers.NewUploadHandler(uploads, logs),
		promptHandler:     handlers.NewPromptHandler(prompts),
		messageHandler:    handlers.NewMessageHandler(messages),
		profileHandler:    handlers.NewProfileHandler(profiles, users),
		systemLogHandler:  handlers.NewSystemLogHandler(logs),
	}, nil
}

func (app *application) shutdown() {
	if app.worker != nil {
		app.worker.Shutdown()
	}
	if err := app.queue.Close(); err != nil {
		logger.Warnf("closing task queue: %v", err)
	}
	services.StopLogCleanupScheduler()
}
