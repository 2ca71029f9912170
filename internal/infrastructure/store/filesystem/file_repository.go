package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"diagram2code/internal/domain/entity"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/encoder"
	"diagram2code/internal/infrastructure/metrics"
	"diagram2code/internal/infrastructure/validator"
)

const (
	storeName       = "filesystem"
	descriptionFile = "description.md"
	metadataFile    = "metadata.json"
	imageBaseName   = "diagram"
	templateBase    = "template"
)

// FileRepository writes each conversion's outputs under <basePath>/<conversion id>/.
type FileRepository struct {
	basePath string
}

var _ repository.ArtifactStore = (*FileRepository)(nil)

type Metadata struct {
	ConversionID string                      `json:"conversion_id"`
	ImageName    string                      `json:"image_name"`
	MediaType    string                      `json:"media_type"`
	State        entity.ConversionState      `json:"state"`
	Edited       bool                        `json:"edited"`
	Files        []string                    `json:"files"`
	Findings     []*entity.ValidationFinding `json:"findings,omitempty"`
	SavedAt      time.Time                   `json:"saved_at"`
}

func NewFileRepository(basePath string) (*FileRepository, error) {
	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	return &FileRepository{basePath: basePath}, nil
}

// Save writes the description, the template and, when payload is non-empty, the
// original image. Files from an earlier save are overwritten.
func (r *FileRepository) Save(ctx context.Context, c *entity.Conversion, payload entity.EncodedPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metrics.IncStoreOp(storeName, "put")

	dir := filepath.Join(r.basePath, c.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create conversion directory: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	if !payload.IsEmpty() {
		raw, err := encoder.DecodePayload(payload)
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		if err := write(imageBaseName+imageExtension(payload.MediaType), raw); err != nil {
			return err
		}
	}

	if err := removeMatching(filepath.Join(dir, descriptionFile)); err != nil {
		return err
	}
	if c.Description.Completed {
		if err := write(descriptionFile, []byte(c.Description.Text)); err != nil {
			return err
		}
	}

	// a stale template of the other format, or one edited away, must not linger
	if err := removeMatching(filepath.Join(dir, templateBase+".*")); err != nil {
		return err
	}
	if c.HasTemplate() {
		name := templateBase + "." + string(validator.DetectFormat(c.TemplateText()))
		if err := write(name, []byte(c.TemplateText())); err != nil {
			return err
		}
	}

	meta := Metadata{
		ConversionID: c.ID,
		ImageName:    c.ImageName,
		MediaType:    c.MediaType,
		State:        c.State,
		Edited:       c.Edited,
		Files:        written,
		Findings:     c.Findings,
		SavedAt:      time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func removeMatching(pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale file %s: %w", filepath.Base(m), err)
		}
	}
	return nil
}

func imageExtension(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

func (r *FileRepository) Delete(ctx context.Context, conversionID string) error {
	metrics.IncStoreOp(storeName, "delete")

	if err := os.RemoveAll(filepath.Join(r.basePath, conversionID)); err != nil {
		return fmt.Errorf("failed to delete conversion directory: %w", err)
	}
	return nil
}
