package filesystem

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagram2code/internal/domain/entity"
)

func (r *FileRepository) metadata(conversionID string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(r.basePath, conversionID, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("artifacts for %s: %w", conversionID, entity.ErrNotFound)
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewFileRepository_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := NewFileRepository(path)
	assert.Error(t, err)
}

func TestSaveAndDelete(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "artifacts")
	repo, err := NewFileRepository(base)
	require.NoError(t, err)
	assert.Equal(t, base, repo.basePath)

	raw := []byte("\x89PNG\r\n\x1a\nnot-really-pixels")
	payload := entity.EncodedPayload{
		Data:      base64.StdEncoding.EncodeToString(raw),
		MediaType: "image/png",
		Size:      len(raw),
	}

	c := entity.NewConversion("diagram.png")
	c.MediaType = payload.MediaType
	c.Description.Succeed("Une architecture serverless.")
	c.Template.Succeed("{\"Resources\": {}}")
	c.SetState(entity.ConversionReady)

	require.NoError(t, repo.Save(ctx, c, payload))

	dir := filepath.Join(base, c.ID)
	img, err := os.ReadFile(filepath.Join(dir, "diagram.png"))
	require.NoError(t, err)
	assert.Equal(t, raw, img)

	desc, err := os.ReadFile(filepath.Join(dir, "description.md"))
	require.NoError(t, err)
	assert.Equal(t, "Une architecture serverless.", string(desc))

	tmpl, err := os.ReadFile(filepath.Join(dir, "template.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\"Resources\": {}}", string(tmpl))

	meta, err := repo.metadata(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, meta.ConversionID)
	assert.Equal(t, entity.ConversionReady, meta.State)
	assert.ElementsMatch(t, []string{"diagram.png", "description.md", "template.json"}, meta.Files)

	// an edit re-saves without the image
	c.EditTemplate("Resources:\n  Topic:\n    Type: AWS::SNS::Topic")
	require.NoError(t, repo.Save(ctx, c, entity.EncodedPayload{}))
	_, err = os.Stat(filepath.Join(dir, "template.yaml"))
	require.NoError(t, err)
	meta, err = repo.metadata(c.ID)
	require.NoError(t, err)
	assert.True(t, meta.Edited)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	_, err = repo.metadata(c.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSave_RemovesStaleTemplate(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	c := entity.NewConversion("diagram.png")
	c.Template.Succeed("Resources:\n  Topic:\n    Type: AWS::SNS::Topic")
	c.SetState(entity.ConversionReady)
	require.NoError(t, repo.Save(ctx, c, entity.EncodedPayload{}))

	dir := filepath.Join(repo.basePath, c.ID)
	assert.ElementsMatch(t, []string{"metadata.json", "template.yaml"}, listDir(t, dir))

	c.EditTemplate(`{"Resources": {"Topic": {"Type": "AWS::SNS::Topic"}}}`)
	require.NoError(t, repo.Save(ctx, c, entity.EncodedPayload{}))
	assert.ElementsMatch(t, []string{"metadata.json", "template.json"}, listDir(t, dir))

	c.EditTemplate("")
	require.NoError(t, repo.Save(ctx, c, entity.EncodedPayload{}))
	assert.ElementsMatch(t, []string{"metadata.json"}, listDir(t, dir))

	meta, err := repo.metadata(c.ID)
	require.NoError(t, err)
	assert.Empty(t, meta.Files)
}
