package worker

import (
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/service"
)

// StartAuditWorker registers audit handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
