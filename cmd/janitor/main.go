package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/infra/logging"
	"github.com/jose-valero/psforever-bot/internal/infra/storage"
)

// documentos que el bot usa hoy; el resto bajo el prefijo es basura de versiones anteriores
var keep = []string{"enlist", "alert", "config"}

type Result struct {
	Prefix  string `json:"prefix"`
	Deleted int64  `json:"deleted"`
}

func prefix() string {
	for _, k := range []string{"STORAGE_PREFIX", "APP_ENV"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return "development"
}

func handler(ctx context.Context) (Result, error) {
	log := logging.New(os.Stdout, os.Getenv("LOG_LEVEL"), false).With().Str("module", "janitor").Logger()
	res := Result{Prefix: prefix()}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Warn().Msg("no DATABASE_URL")
		return res, nil
	}

	db, err := storage.OpenPostgres(ctx, dsn)
	if err != nil {
		return res, fmt.Errorf("open: %w", err)
	}
	blobs := storage.NewPostgresBlobs(db)
	defer blobs.Close()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res.Deleted, err = prune(cctx, blobs, res.Prefix, log)
	return res, err
}

// prune borra los documentos bajo prefix que no están en keep.
func prune(ctx context.Context, blobs storage.BlobStore, prefix string, log zerolog.Logger) (int64, error) {
	keys := make([]string, 0, len(keep))
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		k := storage.ObjectKey(prefix, name)
		keys = append(keys, k)
		kept[k] = true
	}

	all, err := blobs.Keys(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	for _, k := range all {
		if !kept[k] {
			log.Debug().Str("key", k).Msg("orphan document")
		}
	}

	n, err := blobs.DeleteExcept(ctx, prefix, keys)
	if err != nil {
		return 0, fmt.Errorf("prune documents: %w", err)
	}
	log.Info().Str("prefix", prefix).Int64("deleted", n).Msg("orphan documents pruned")
	return n, nil
}

func main() { lambda.Start(handler) }
