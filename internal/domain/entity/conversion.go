package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ConversionState string

const (
	ConversionIdle                ConversionState = "idle"
	ConversionEncoding            ConversionState = "encoding"
	ConversionAwaitingDescription ConversionState = "awaiting_description"
	ConversionAwaitingTemplate    ConversionState = "awaiting_template"
	ConversionReady               ConversionState = "ready"
	ConversionFailed              ConversionState = "failed"
)

func (s ConversionState) IsTerminal() bool {
	return s == ConversionReady || s == ConversionFailed
}

// Conversion is one diagram-to-template request and everything it produced.
type Conversion struct {
	ID          string               `json:"id" bson:"id"`
	ImageName   string               `json:"image_name" bson:"image_name"`
	MediaType   string               `json:"media_type" bson:"media_type"`
	ImageSize   int                  `json:"image_size" bson:"image_size"`
	State       ConversionState      `json:"state" bson:"state"`
	Error       string               `json:"error,omitempty" bson:"error,omitempty"`
	Description InferenceResult      `json:"description" bson:"description"`
	Template    InferenceResult      `json:"template" bson:"template"`
	Findings    []*ValidationFinding `json:"findings,omitempty" bson:"findings,omitempty"`
	Edited      bool                 `json:"edited" bson:"edited"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" bson:"updated_at"`
}

func NewConversion(imageName string) *Conversion {
	now := time.Now()
	return &Conversion{
		ID:        uuid.New().String(),
		ImageName: imageName,
		State:     ConversionIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Conversion) SetState(state ConversionState) {
	c.State = state
	c.UpdatedAt = time.Now()
}

// TemplateText is the text that a deploy would submit.
func (c *Conversion) TemplateText() string {
	return c.Template.Text
}

// HasTemplate reports whether the conversion holds a deployable template.
func (c *Conversion) HasTemplate() bool {
	return strings.TrimSpace(c.Template.Text) != ""
}

// EditTemplate replaces the generated template with user-supplied text.
func (c *Conversion) EditTemplate(text string) {
	c.Template.Text = text
	c.Template.Completed = true
	c.Template.Error = ""
	c.Edited = true
	c.UpdatedAt = time.Now()
}
