package main

import (
	"context"
	"errors"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"pocketplan/logging"
)

func main() {
	_ = godotenv.Load()
	logging.Setup()
	log.Info("storage init starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	table := os.Getenv("TASKS_TABLE")
	if table == "" {
		log.Fatal("missing TASKS_TABLE")
	}

	if err := createTable(context.Background(), connStr, table); err != nil {
		log.Fatalf("create table: %v", err)
	}

	log.Info("storage init complete")
}

func createTable(ctx context.Context, connStr, name string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	c := svc.NewClient(name)
	_, err = c.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return err
		}
	}
	return nil
}
