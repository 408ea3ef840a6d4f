package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmassist-backend/models"
	"pharmassist-backend/repository"
	"pharmassist-backend/storage"
)

type regulationWriter interface {
	Upsert(ctx context.Context, doc *models.RegulationDocument) error
}

type regulationLister interface {
	List(ctx context.Context) ([]models.RegulationDocument, error)
}

func importCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "import <key>",
		Short: "Import a regulation corpus JSON array from storage, upserting by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCorpusStore(cmd.Context(), func(ctx context.Context, store storage.Storage, repo *repository.RegulationRepository, logger *zap.Logger) error {
				n, err := importCorpus(ctx, store, args[0], repo)
				if err != nil {
					return err
				}
				logger.Info("Corpus imported", zap.String("key", args[0]), zap.Int("documents", n))
				return nil
			})
		},
	}
}

func exportCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "export <key>",
		Short: "Export the regulation corpus to storage as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCorpusStore(cmd.Context(), func(ctx context.Context, store storage.Storage, repo *repository.RegulationRepository, logger *zap.Logger) error {
				n, err := exportCorpus(ctx, repo, store, args[0])
				if err != nil {
					return err
				}
				logger.Info("Corpus exported", zap.String("key", args[0]), zap.Int("documents", n))
				return nil
			})
		},
	}
}

func withCorpusStore(ctx context.Context, fn func(context.Context, storage.Storage, *repository.RegulationRepository, *zap.Logger) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, err := storage.NewStorageFromEnv()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	db, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, store, repository.NewRegulationRepository(db), logger)
}

func importCorpus(ctx context.Context, store storage.Storage, key string, repo regulationWriter) (int, error) {
	docs, err := storage.ReadCorpus(ctx, store, key)
	if err != nil {
		return 0, err
	}
	for i := range docs {
		if err := repo.Upsert(ctx, &docs[i]); err != nil {
			return i, fmt.Errorf("failed to upsert %q: %w", docs[i].Title, err)
		}
	}
	return len(docs), nil
}

func exportCorpus(ctx context.Context, repo regulationLister, store storage.Storage, key string) (int, error) {
	docs, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := storage.WriteCorpus(ctx, store, key, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
