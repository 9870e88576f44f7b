package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/dmr-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes best effort audit entries on behalf of one service.
type auditTrail struct {
	store  auditLogger
	logger *zap.Logger
	source string
}

func newAuditTrail(store auditLogger, logger *zap.Logger, source string) auditTrail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return auditTrail{store: store, logger: logger, source: source}
}

func (a auditTrail) emit(ctx context.Context, caller *models.Caller, action, resource, resourceID string, oldValues, newValues interface{}) {
	if a.store == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: marshalAudit(oldValues),
		NewValues: marshalAudit(newValues),
		IPAddress: "system",
		UserAgent: a.source,
	}
	if caller != nil {
		id := caller.AccountID
		entry.UserID = &id
	}
	if resourceID != "" {
		id := resourceID
		entry.ResourceID = &id
	}
	if err := a.store.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("failed to create audit log", zap.String("action", action), zap.Error(err))
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
