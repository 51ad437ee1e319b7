package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/getup/bannersync/internal/app"
)

func main() {
	application := app.NewApp(context.Background())
	lambda.Start(application.HandleRequest)
}
