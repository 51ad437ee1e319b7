// The syncjob binary is the scheduled Lambda entrypoint, invoked hourly by
// an EventBridge rule. Creating or removing the rule plays the role the
// original activation/deactivation hooks did.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/getup/bannersync/internal/app"
)

func main() {
	application := app.NewApp(context.Background())
	lambda.Start(application.HandleScheduled)
}
