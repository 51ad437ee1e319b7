// Package app wires the service together and routes admin-ajax style
// requests: one endpoint, dispatched through an explicit command table keyed
// by the action parameter.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/time/rate"

	"github.com/getup/bannersync/internal/auth"
	"github.com/getup/bannersync/internal/banner"
	"github.com/getup/bannersync/internal/crypto"
	"github.com/getup/bannersync/internal/handler"
	"github.com/getup/bannersync/internal/secret"
	"github.com/getup/bannersync/internal/store"
	"github.com/getup/bannersync/internal/syncer"
	"github.com/getup/bannersync/internal/taxonomy"
)

// remoteCallTimeout bounds every provider call; timeouts surface as ordinary
// transport faults and are never retried.
const remoteCallTimeout = 30 * time.Second

// action is one entry in the command table.
type action struct {
	method string
	handle func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// App holds the wired dependencies and the action table.
type App struct {
	actions map[string]action
	runner  *syncer.Runner
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// NewApp initializes the application dependencies from the environment.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	var dynamoClient *dynamodb.Client
	var encryptor crypto.Encryptor
	var resolver secret.Resolver
	if devMode {
		// In-memory records, pass-through encryption, env secrets.
		encryptor = crypto.NewMockEncryptor()
		resolver = secret.NewEnvResolver()
		fmt.Println("Using in-memory storage, MockEncryptor and EnvResolver (DEV_MODE=true)")
	} else {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			panic(fmt.Sprintf("unable to load SDK config, %v", err))
		}
		dynamoClient = dynamodb.NewFromConfig(cfg)
		encryptor = crypto.NewKMSService(kms.NewFromConfig(cfg), envDefault("KMS_KEY_ID", "alias/bannersync-token-key"))
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	jwtSecret, err := resolver.GetSecret(ctx, envDefault("ADMIN_JWT_SECRET_PARAM", "/bannersync/admin-jwt-secret"))
	if err != nil {
		// Serving with an empty HMAC key would let anyone forge an admin
		// token, so an unresolved secret stops startup.
		if !devMode {
			panic(fmt.Sprintf("unable to resolve admin JWT secret: %v", err))
		}
		log.Printf("WARNING: failed to resolve ADMIN_JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}

	baseURL := envDefault("BASE_URL", "http://localhost:8080")
	redirectURL := envDefault("OAUTH_REDIRECT_URL", baseURL+"/admin-ajax?action=oauth_redirect")
	settingsURL := envDefault("SETTINGS_URL", baseURL+"/admin/settings")

	records := store.New(dynamoClient, envDefault("RECORDS_TABLE", "BannerSyncRecords"))
	terms := taxonomy.NewStore(dynamoClient, envDefault("TERMS_TABLE", "BannerSyncTerms"))
	lock := syncer.NewLock(dynamoClient, envDefault("LOCK_TABLE", "BannerSyncLocks"))

	flow := auth.NewFlow(records, encryptor, redirectURL)
	lifecycle := auth.NewLifecycle(records, auth.GoogleEndpoints(), remoteCallTimeout)
	nonces := auth.NewNonceStore(records, auth.DefaultNonceTTL)

	uploadsDir := envDefault("UPLOADS_DIR", "./uploads")
	uploadsURL := envDefault("UPLOADS_URL", baseURL+"/uploads")
	syncDir := filepath.Join(uploadsDir, "EnCours")

	runner := syncer.NewRunner(flow, lifecycle, records, lock, syncDir,
		envDefault("SYNC_REMOTE_PATH", syncer.DefaultRemotePath))

	bannerService := banner.NewService(uploadsDir, uploadsURL, terms)

	adminHandler := handler.NewAdminHandler(flow, lifecycle, records, nonces, jwtSecret, settingsURL)
	bannersHandler := handler.NewBannersHandler(bannerService, handler.NewRateLimiter(rate.Limit(5), 10))
	syncHandler := handler.NewSyncHandler(runner, jwtSecret)

	return &App{
		runner: runner,
		actions: map[string]action{
			"banner_settings":   {method: "GET", handle: adminHandler.Settings},
			"save_settings":     {method: "POST", handle: adminHandler.SaveSettings},
			"oauth_grant":       {method: "GET", handle: adminHandler.Grant},
			"oauth_redirect":    {method: "GET", handle: adminHandler.Callback},
			"revoke_token":      {method: "POST", handle: adminHandler.Revoke},
			"get_local_banners": {method: "POST", handle: bannersHandler.List},
			"sync_now":          {method: "POST", handle: syncHandler.Trigger},
		},
	}
}

// HandleRequest dispatches an API Gateway request through the action table.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	actionName := req.QueryStringParameters["action"]
	fmt.Printf("Request: %s %s action=%s\n", req.HTTPMethod, req.Path, actionName)

	if req.HTTPMethod == "OPTIONS" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
	}

	act, ok := app.actions[actionName]
	if !ok {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("Unknown action: %q", actionName),
		}, nil
	}
	if req.HTTPMethod != act.method {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Body:       fmt.Sprintf("Method %s not allowed for action %q", req.HTTPMethod, actionName),
		}, nil
	}

	resp, err := act.handle(ctx, req)
	if err != nil {
		log.Printf("Handler error: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}, nil
	}
	return resp, nil
}

// HandleScheduled runs the recurring sync pass. The schedule itself lives
// with the host (EventBridge rule, or the local server's ticker); the
// handler is idempotent and a pass already in flight makes it a no-op.
func (app *App) HandleScheduled(ctx context.Context, event events.CloudWatchEvent) error {
	res, err := app.runner.Run(ctx)
	if err != nil {
		log.Printf("scheduled sync failed: %v", err)
		return nil // the next tick retries; the schedule must not be disabled
	}
	if res.Unauthorized {
		log.Printf("scheduled sync skipped: not authorized")
	}
	if res.SubfolderMissing {
		log.Printf("scheduled sync: subfolder not found")
	}
	return nil
}

// Runner exposes the sync runner for the local server's ticker.
func (app *App) Runner() *syncer.Runner {
	return app.runner
}
