package worker

import (
	"github.com/kbalyzer/kbalyzer-api/internal/service"
)

// StartAuditWorker subscribes the audit log to security events.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
