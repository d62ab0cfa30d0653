package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- Schema shapes shared between the pipeline services and the LLM ---

type SchemaField struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string | number | boolean | date
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

type WidgetSchema struct {
	Fields []SchemaField `json:"fields"`
}

// DateField returns the name of the first date-typed field.
func (s *WidgetSchema) DateField() (string, bool) {
	for _, f := range s.Fields {
		if f.Type == "date" {
			return f.Name, true
		}
	}
	return "", false
}

// Validate enforces the chronological-display requirement: every widget
// schema carries at least one date-typed field.
func (s *WidgetSchema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = true
	}
	if _, ok := s.DateField(); !ok {
		return fmt.Errorf("schema is missing a date-typed field")
	}
	return nil
}

// IsSupersetOf reports whether s keeps every field of old unchanged and adds
// only optional fields, i.e. the evolution is backward-compatible with
// already-stored items.
func (s *WidgetSchema) IsSupersetOf(old *WidgetSchema) bool {
	oldByName := make(map[string]SchemaField, len(old.Fields))
	for _, of := range old.Fields {
		oldByName[of.Name] = of
	}
	kept := 0
	for _, nf := range s.Fields {
		of, ok := oldByName[nf.Name]
		if !ok {
			// New fields must be optional: old items do not carry them.
			if nf.Required {
				return false
			}
			continue
		}
		if nf.Type != of.Type {
			return false
		}
		kept++
	}
	return kept == len(oldByName)
}

// --- Structured LLM outputs ---

type TagExtractionOutput struct {
	Tags []string `json:"tags"`
}

type ClusterAssignment struct {
	ConversationId string   `json:"conversation_id"`
	Categories     []string `json:"categories"`
}

type TagClusteringOutput struct {
	Assignments []ClusterAssignment `json:"assignments"`
}

type WidgetSpecOutput struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Schema      WidgetSchema             `json:"schema"`
	Component   string                   `json:"component"`
	Items       []map[string]interface{} `json:"items"`
}

type DataOperation struct {
	Op         string                 `json:"op"` // add | update | delete
	Data       map[string]interface{} `json:"data,omitempty"`
	TargetDate string                 `json:"target_date,omitempty"`
	TargetType string                 `json:"target_type,omitempty"`
}

type UpdateAnalysisOutput struct {
	SchemaChanged bool            `json:"schema_changed"`
	Schema        *WidgetSchema   `json:"schema,omitempty"`
	Component     string          `json:"component,omitempty"`
	Operations    []DataOperation `json:"operations"`
}

// --- Pipeline trigger results (observability counts) ---

type TagExtractionResult struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	TagsProduced   int       `json:"tags_produced"`
}

type TagClusteringResult struct {
	Conversations        int `json:"conversations"`
	CategoriesCreated    int `json:"categories_created"`
	CategoriesTotal      int `json:"categories_total"`
	GenerationsTriggered int `json:"generations_triggered"`
	UpdatesTriggered     int `json:"updates_triggered"`
}

type WidgetGenerationResult struct {
	WidgetId       uuid.UUID `json:"widget_id"`
	Skipped        bool      `json:"skipped"`
	ItemsExtracted int       `json:"items_extracted"`
}

type WidgetUpdateResult struct {
	WidgetId      uuid.UUID `json:"widget_id"`
	Skipped       bool      `json:"skipped"`
	SchemaEvolved bool      `json:"schema_evolved"`
	Added         int       `json:"added"`
	Updated       int       `json:"updated"`
	Deleted       int       `json:"deleted"`
	Retriggered   int       `json:"retriggered"`
}

type RegenerateAllResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// PipelineJob is the payload on the watermill job topic. Delay lets a
// publisher stagger fan-out so the completion service is not hit all at once.
type PipelineJob struct {
	Type           string        `json:"type"`
	ConversationId uuid.UUID     `json:"conversation_id,omitempty"`
	GlobalTagId    uuid.UUID     `json:"global_tag_id,omitempty"`
	WidgetId       uuid.UUID     `json:"widget_id,omitempty"`
	Delay          time.Duration `json:"delay,omitempty"`
}
