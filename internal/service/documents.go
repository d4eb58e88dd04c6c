package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bongitrade/policy-service/internal/domain"
	"github.com/bongitrade/policy-service/internal/storage"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

// documentKeeper stores claim uploads and removes them again when the
// surrounding transaction fails.
type documentKeeper struct {
	store        storage.Store
	maxDocuments int
	logger       *zap.Logger
}

func (k documentKeeper) validate(uploads []storage.Upload) error {
	if len(uploads) == 0 {
		return apperrors.NewValidationError("at least one document is required", map[string]any{"field": "documents"})
	}
	if k.maxDocuments > 0 && len(uploads) > k.maxDocuments {
		return apperrors.NewValidationError(
			fmt.Sprintf("at most %d documents are allowed", k.maxDocuments),
			map[string]any{"field": "documents", "max": k.maxDocuments},
		)
	}
	return nil
}

func (k documentKeeper) save(ctx context.Context, policyID string, uploads []storage.Upload) ([]domain.Document, error) {
	prefix := "claims/" + policyID
	docs := make([]domain.Document, 0, len(uploads))
	for _, upload := range uploads {
		doc, err := k.store.Save(ctx, prefix, upload)
		if err != nil {
			k.discard(ctx, docs)
			return nil, apperrors.NewInternalError(fmt.Errorf("store document: %w", err))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (k documentKeeper) discard(ctx context.Context, docs []domain.Document) {
	ctx = context.WithoutCancel(ctx)
	for _, doc := range docs {
		if err := k.store.Delete(ctx, doc.StorageKey); err != nil {
			k.logger.Warn("failed to remove orphaned document", zap.String("storage_key", doc.StorageKey), zap.Error(err))
		}
	}
}
