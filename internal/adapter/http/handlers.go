package http

import (
	"github.com/zasterix/zasterix/internal/domain/tool"
	"github.com/zasterix/zasterix/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Sessions  *service.SessionService
	Templates *service.TemplateService
	Audit     *service.AuditService
	Progress  *service.ProgressService
	Coach     *service.CoachService
	Tools     *tool.Registry

	// DeepLinkScheme is the URL scheme of rendered app links.
	DeepLinkScheme string
}
