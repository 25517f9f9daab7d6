package services

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"warnengine/internal/models"
)

// RenderedMessage is the channel-ready text of one notification.
type RenderedMessage struct {
	Subject   string
	Body      string
	ShortBody string
}

// TemplateData is what warning templates can reference.
type TemplateData struct {
	Code            string
	Title           string
	Severity        models.WarningSeverity
	Message         string
	Action          string
	EntityType      models.EntityType
	EntityID        string
	CurrentValue    string
	ThresholdValue  string
	DifferenceValue string
	Unit            models.ThresholdUnit
	Escalated       bool
	Details         models.JSONB
}

// TemplateRenderer turns a warning into channel text.
type TemplateRenderer interface {
	Render(def *models.WarningDefinition, channel models.NotificationChannel, data TemplateData) (*RenderedMessage, error)
}

const (
	defaultSubjectTemplate = `[{{.Severity}}] {{.Title}}`
	defaultBodyTemplate    = `{{.Message}}

Current value: {{.CurrentValue}} (threshold {{.ThresholdValue}} {{.Unit}})
{{- if .Action}}
Suggested action: {{.Action}}{{end}}
{{- if .Escalated}}
This warning was escalated to you because it was not handled in time.{{end}}`
	defaultShortTemplate = `{{.Title}}: {{.CurrentValue}}/{{.ThresholdValue}} {{.Unit}}`
)

type compiledTemplates struct {
	subject *template.Template
	body    *template.Template
	short   *template.Template
}

type textTemplateRenderer struct {
	mu        sync.RWMutex
	templates map[string]*compiledTemplates
}

// NewTemplateRenderer returns a text/template renderer. A definition whose
// description contains template actions uses it as the body template.
// Compiled templates are cached per definition version, so edits take
// effect without explicit invalidation.
func NewTemplateRenderer() TemplateRenderer {
	return &textTemplateRenderer{templates: make(map[string]*compiledTemplates)}
}

func (r *textTemplateRenderer) Render(def *models.WarningDefinition, channel models.NotificationChannel, data TemplateData) (*RenderedMessage, error) {
	tpl, err := r.compiled(def, channel)
	if err != nil {
		return nil, err
	}

	subject, err := execute(tpl.subject, data)
	if err != nil {
		return nil, err
	}
	short, err := execute(tpl.short, data)
	if err != nil {
		return nil, err
	}
	body := short
	if channel == models.ChannelEmail || channel == models.ChannelInApp || channel == models.ChannelWebhook {
		if body, err = execute(tpl.body, data); err != nil {
			return nil, err
		}
	}
	return &RenderedMessage{Subject: subject, Body: body, ShortBody: short}, nil
}

func (r *textTemplateRenderer) compiled(def *models.WarningDefinition, channel models.NotificationChannel) (*compiledTemplates, error) {
	key := def.CacheKey() + ":" + string(channel)

	r.mu.RLock()
	tpl, ok := r.templates[key]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	bodySource := defaultBodyTemplate
	if strings.Contains(def.Description, "{{") {
		bodySource = def.Description
	}

	var err error
	tpl = &compiledTemplates{}
	if tpl.subject, err = template.New(key + ":subject").Parse(defaultSubjectTemplate); err != nil {
		return nil, err
	}
	if tpl.body, err = template.New(key + ":body").Parse(bodySource); err != nil {
		return nil, fmt.Errorf("definition %s has an invalid template: %w", def.Code, err)
	}
	if tpl.short, err = template.New(key + ":short").Parse(defaultShortTemplate); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.templates[key] = tpl
	r.mu.Unlock()
	return tpl, nil
}

func execute(tpl *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
