package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoicegw/internal/archive"
	"invoicegw/internal/invoice"
	"invoicegw/internal/model"
	"invoicegw/internal/repository"
	"invoicegw/internal/workspace"
)

// Result is a finished conversion artifact ready to stream back: the raw
// bytes, their content type, and the literal download filename.
type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ConvertService dispatches one engine operation per request. Each call
// resolves parameters, materializes a workspace, invokes exactly one engine
// operation, and assembles a Result; the workspace is released on every
// exit path. No retries: engine exports are not safe to repeat blindly.
type ConvertService interface {
	Validate(ctx context.Context, src *model.Upload, noNotices bool, logAppend string) (*invoice.ValidationResult, error)
	Extract(ctx context.Context, pdf *model.Upload) (*Result, error)
	A3Only(ctx context.Context, pdf *model.Upload) (*Result, error)
	Combine(ctx context.Context, pdf, xml *model.Upload, req invoice.CombineRequest) (*Result, error)
	Visualize(ctx context.Context, xml *model.Upload, format, language string) (*Result, error)
	Upgrade(ctx context.Context, xml *model.Upload) (*Result, error)
	ToUBL(ctx context.Context, xml *model.Upload) (*Result, error)
	RecentJobs(ctx context.Context, limit int) ([]model.Job, error)
}

type convertService struct {
	engine invoice.Engine
	store  archive.Archiver
	jobs   repository.JobRepository
}

// NewConvertService constructs a ConvertService.
func NewConvertService(engine invoice.Engine, store archive.Archiver, jobs repository.JobRepository) ConvertService {
	return &convertService{engine: engine, store: store, jobs: jobs}
}

func (s *convertService) Validate(ctx context.Context, src *model.Upload, noNotices bool, logAppend string) (*invoice.ValidationResult, error) {
	start := time.Now()

	filename := workspace.SafeFilename(src.Filename)
	if filename == "" {
		filename = "source"
	}

	res, err := s.engine.Validate(ctx, src.Data, filename, noNotices, logAppend)
	if err == nil && !res.OptionsOK {
		// An unrecognized option set means the report cannot be trusted.
		err = invoice.Invalidf("Validation options not recognized")
	}

	detail := ""
	if err == nil && !res.Valid {
		detail = "document invalid"
	}
	s.record(ctx, "validate", start, "", detail, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *convertService) Extract(ctx context.Context, pdf *model.Upload) (*Result, error) {
	return s.run(ctx, "extract", func(ws *workspace.Workspace) (string, string, string, error) {
		pdfPath, err := ws.WriteInput(pdf.Filename, pdf.Data, "input.pdf")
		if err != nil {
			return "", "", "", err
		}
		out := ws.Resolve("output.xml")
		if err := s.engine.Extract(ctx, pdfPath, out); err != nil {
			return "", "", "", err
		}
		return out, "application/xml", "extracted.xml", nil
	})
}

func (s *convertService) A3Only(ctx context.Context, pdf *model.Upload) (*Result, error) {
	return s.run(ctx, "a3only", func(ws *workspace.Workspace) (string, string, string, error) {
		pdfPath, err := ws.WriteInput(pdf.Filename, pdf.Data, "input.pdf")
		if err != nil {
			return "", "", "", err
		}
		out := ws.Resolve("output.pdf")
		if err := s.engine.A3Only(ctx, pdfPath, out); err != nil {
			return "", "", "", err
		}
		return out, "application/pdf", "converted.pdf", nil
	})
}

func (s *convertService) Combine(ctx context.Context, pdf, xml *model.Upload, req invoice.CombineRequest) (*Result, error) {
	// Resolve before any filesystem work: an inconsistent configuration
	// must never reach the engine or produce output writes.
	cfg, err := invoice.Resolve(req)
	if err != nil {
		s.record(ctx, "combine", time.Now(), "", "", err)
		return nil, err
	}

	return s.run(ctx, "combine", func(ws *workspace.Workspace) (string, string, string, error) {
		pdfPath, err := ws.WriteInput(pdf.Filename, pdf.Data, "input.pdf")
		if err != nil {
			return "", "", "", err
		}
		xmlPath, err := ws.WriteInput(xml.Filename, xml.Data, "input.xml")
		if err != nil {
			return "", "", "", err
		}
		out := ws.Resolve("output.pdf")
		if err := s.engine.Combine(ctx, pdfPath, xmlPath, out, cfg); err != nil {
			return "", "", "", err
		}
		return out, "application/pdf", "combined.pdf", nil
	})
}

func (s *convertService) Visualize(ctx context.Context, xml *model.Upload, format, language string) (*Result, error) {
	if format != "html" && format != "pdf" {
		err := invoice.Invalidf("format must be html or pdf")
		s.record(ctx, "visualize", time.Now(), "", "", err)
		return nil, err
	}
	lang, err := invoice.ParseLanguage(language)
	if err != nil {
		s.record(ctx, "visualize", time.Now(), "", "", err)
		return nil, err
	}

	return s.run(ctx, "visualize", func(ws *workspace.Workspace) (string, string, string, error) {
		xmlPath, err := ws.WriteInput(xml.Filename, xml.Data, "input.xml")
		if err != nil {
			return "", "", "", err
		}
		if format == "pdf" {
			out := ws.Resolve("output.pdf")
			if err := s.engine.VisualizePDF(ctx, xmlPath, out); err != nil {
				return "", "", "", err
			}
			return out, "application/pdf", "visualization.pdf", nil
		}
		out := ws.Resolve("output.html")
		if err := s.engine.VisualizeHTML(ctx, xmlPath, out, lang); err != nil {
			return "", "", "", err
		}
		return out, "text/html", "visualization.html", nil
	})
}

func (s *convertService) Upgrade(ctx context.Context, xml *model.Upload) (*Result, error) {
	return s.run(ctx, "upgrade", func(ws *workspace.Workspace) (string, string, string, error) {
		xmlPath, err := ws.WriteInput(xml.Filename, xml.Data, "input.xml")
		if err != nil {
			return "", "", "", err
		}
		out := ws.Resolve("output.xml")
		if err := s.engine.Upgrade(ctx, xmlPath, out); err != nil {
			return "", "", "", err
		}
		return out, "application/xml", "upgraded.xml", nil
	})
}

func (s *convertService) ToUBL(ctx context.Context, xml *model.Upload) (*Result, error) {
	return s.run(ctx, "ubl", func(ws *workspace.Workspace) (string, string, string, error) {
		xmlPath, err := ws.WriteInput(xml.Filename, xml.Data, "input.xml")
		if err != nil {
			return "", "", "", err
		}
		out := ws.Resolve("output.xml")
		if err := s.engine.ToUBL(ctx, xmlPath, out); err != nil {
			return "", "", "", err
		}
		return out, "application/xml", "ubl.xml", nil
	})
}

// artifactLinkTTL bounds how long a job-listing download link stays valid.
const artifactLinkTTL = 15 * time.Minute

func (s *convertService) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	jobs, err := s.jobs.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if !s.store.Enabled() {
		return jobs, nil
	}
	for i := range jobs {
		if jobs[i].ArchiveKey == "" {
			continue
		}
		u, err := s.store.PresignGet(ctx, jobs[i].ArchiveKey, artifactLinkTTL)
		if err != nil {
			log.Printf("presign %s: %v", jobs[i].ArchiveKey, err)
			continue
		}
		jobs[i].ArchiveURL = u
	}
	return jobs, nil
}

// run wraps one file-producing operation with the common lifecycle:
// workspace acquisition with guaranteed release, output read-back,
// best-effort archiving, and job recording.
func (s *convertService) run(ctx context.Context, op string, fn func(ws *workspace.Workspace) (outPath, contentType, filename string, err error)) (*Result, error) {
	start := time.Now()

	ws, err := workspace.New()
	if err != nil {
		s.record(ctx, op, start, "", "", err)
		return nil, err
	}
	defer ws.Close()

	outPath, contentType, filename, err := fn(ws)
	if err != nil {
		s.record(ctx, op, start, "", "", err)
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		err = fmt.Errorf("read operation output: %w", err)
		s.record(ctx, op, start, "", "", err)
		return nil, err
	}

	key := s.archiveArtifact(ctx, op, filename, contentType, data)
	s.record(ctx, op, start, key, "", nil)

	return &Result{Data: data, ContentType: contentType, Filename: filename}, nil
}

// archiveArtifact stores a copy of the produced artifact when an archive
// is configured. Failures are logged, never surfaced.
func (s *convertService) archiveArtifact(ctx context.Context, op, filename, contentType string, data []byte) string {
	if !s.store.Enabled() {
		return ""
	}
	key := op + "/" + uuid.NewString() + filepath.Ext(filename)
	if _, err := s.store.Store(ctx, key, data, contentType); err != nil {
		log.Printf("archive %s: %v", key, err)
		return ""
	}
	return key
}

// record persists a job-history row best-effort.
func (s *convertService) record(ctx context.Context, op string, start time.Time, archiveKey, detail string, opErr error) {
	status := model.JobStatusOK
	if opErr != nil {
		status = model.JobStatusFailed
		detail = opErr.Error()
	}
	job := &model.Job{
		ID:         uuid.NewString(),
		Operation:  op,
		Status:     status,
		Detail:     detail,
		ArchiveKey: archiveKey,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.jobs.Create(ctx, job); err != nil {
		log.Printf("record job %s/%s: %v", op, status, err)
	}
}
