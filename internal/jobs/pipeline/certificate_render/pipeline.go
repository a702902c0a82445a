package certificate_render

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursepass-backend/internal/data/repos"
	"github.com/yungbote/coursepass-backend/internal/observability"
	"github.com/yungbote/coursepass-backend/internal/platform/logger"
	"github.com/yungbote/coursepass-backend/internal/platform/mailer"
	"github.com/yungbote/coursepass-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	students  repos.StudentRepo
	diplomas  repos.DiplomaRepo
	templates *services.TemplateCatalog
	renderer  services.CertificateRenderer
	store     services.ArtifactStore
	mail      mailer.Mailer
	tracer    trace.Tracer
}

func New(
	baseLog *logger.Logger,
	students repos.StudentRepo,
	diplomas repos.DiplomaRepo,
	templates *services.TemplateCatalog,
	renderer services.CertificateRenderer,
	store services.ArtifactStore,
	mail mailer.Mailer,
) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", "certificate_render"),
		students:  students,
		diplomas:  diplomas,
		templates: templates,
		renderer:  renderer,
		store:     store,
		mail:      mail,
		tracer:    observability.Tracer("coursepass/jobs/certificate_render"),
	}
}

func (p *Pipeline) Type() string { return "certificate_render" }
