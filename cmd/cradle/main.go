package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quailhollow/cradle/internal/backup"
	"github.com/quailhollow/cradle/internal/database"
	"github.com/quailhollow/cradle/internal/logging"
	"github.com/quailhollow/cradle/internal/push"
	"github.com/quailhollow/cradle/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("CRADLE_LOG_LEVEL"))

	port := os.Getenv("CRADLE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CRADLE_DB_PATH")
	if dbPath == "" {
		dbPath = "cradle.db"
	}

	backupDir := os.Getenv("CRADLE_BACKUP_DIR")
	if backupDir == "" {
		backupDir = "backups"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("CRADLE_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CRADLE_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		pushCfg.VAPIDPublicKey = pub
		pushCfg.VAPIDPrivateKey = priv
		logger.Warn("no VAPID keys configured, generated ephemeral pair; subscriptions will not survive restarts",
			"publicKey", pub)
	}

	var replicator *backup.Replicator
	if bucket := os.Getenv("CRADLE_S3_BUCKET"); bucket != "" {
		client := s3.New(s3.Options{
			Region: envOr("CRADLE_S3_REGION", "us-east-1"),
			Credentials: credentials.NewStaticCredentialsProvider(
				os.Getenv("CRADLE_S3_ACCESS_KEY"),
				os.Getenv("CRADLE_S3_SECRET_KEY"),
				"",
			),
			BaseEndpoint: endpointOrNil(os.Getenv("CRADLE_S3_ENDPOINT")),
			UsePathStyle: true,
		})
		replicator = backup.NewReplicator(client, bucket, logger)
		logger.Info("backup replication enabled", "bucket", bucket)
	}

	srv := server.New(db, server.Config{
		BackupDir:        backupDir,
		BackupInterval:   6 * time.Hour,
		DispatchInterval: 30 * time.Second,
		Push:             pushCfg,
	}, replicator, logger)

	if err := srv.BackupService().Init(); err != nil {
		log.Fatalf("failed to initialize backups: %v", err)
	}

	ctx := context.Background()
	srv.Dispatcher().Start(ctx)
	defer srv.Dispatcher().Stop()
	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Cradle running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func endpointOrNil(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}
