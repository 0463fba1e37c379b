// Package seed загрузка шаблонов аудитов из YAML и встроенная библиотека шаблонов.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/models"
)

//go:embed library/*.yaml
var library embed.FS

// LoadTemplates читает шаблоны из YAML, по одному на документ (разделитель ---).
func LoadTemplates(r io.Reader) ([]models.TemplateDraft, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []models.TemplateDraft
	for i := 1; ; i++ {
		var d models.TemplateDraft
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("template #%d: %w", i, err)
		}
		if err := audits.ValidateDraft(d); err != nil {
			return nil, fmt.Errorf("template #%d (%s): %w", i, d.Name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func LoadTemplateFile(path string) ([]models.TemplateDraft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	drafts, err := LoadTemplates(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return drafts, nil
}

// Library встроенные шаблоны.
func Library() ([]models.TemplateDraft, error) {
	var out []models.TemplateDraft
	err := fs.WalkDir(library, "library", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return err
		}
		f, err := library.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		drafts, err := LoadTemplates(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, drafts...)
		return nil
	})
	return out, err
}

// TemplateService то, что нужно от audits.Service для засева.
type TemplateService interface {
	ListTemplates(ctx context.Context, orgID string) ([]models.TemplateSummary, error)
	CreateTemplate(ctx context.Context, orgID string, d models.TemplateDraft) audits.TemplateResult
}

// SeedTemplates создаёт шаблоны организации; шаблоны с уже существующим
// именем пропускаются, так что повторный запуск безопасен.
func SeedTemplates(ctx context.Context, svc TemplateService, log *zap.Logger, orgID string, drafts []models.TemplateDraft) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	existing, err := svc.ListTemplates(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	names := make(map[string]bool, len(existing))
	for _, t := range existing {
		names[strings.ToLower(t.Name)] = true
	}

	created := 0
	for _, d := range drafts {
		key := strings.ToLower(strings.TrimSpace(d.Name))
		if names[key] {
			log.Info("template already exists, skip", zap.String("name", d.Name))
			continue
		}
		res := svc.CreateTemplate(ctx, orgID, d)
		if !res.Success {
			return created, fmt.Errorf("create template %q: %s", d.Name, res.Error)
		}
		names[key] = true
		created++
		log.Info("template seeded",
			zap.String("name", d.Name),
			zap.String("template_id", res.TemplateID))
	}
	return created, nil
}
