// Package schema describes the fields of each data-collection form. The
// workflow is generic over a Form: it never hard-codes field names.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"gopkg.in/yaml.v3"
)

var ErrUnknownField = errors.New("unknown field")

// ValueError reports a raw value that does not parse as the field's kind.
type ValueError struct {
	Field string
	Kind  models.FieldKind
	Raw   string
}

func (err *ValueError) Error() string {
	return fmt.Sprintf("field %q: %q is not a valid %s", err.Field, err.Raw, err.Kind)
}

type Field struct {
	Name    string           `yaml:"name"`
	Label   string           `yaml:"label"`
	Kind    models.FieldKind `yaml:"kind"`
	Options []string         `yaml:"options"`
	Default string           `yaml:"default"`
}

type Form struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Location string   `yaml:"location"`
	Required []string `yaml:"required"`
	Fields   []Field  `yaml:"fields"`

	index map[string]int
}

// Parse decodes and validates one YAML form definition.
func Parse(data []byte) (*Form, error) {
	form := &Form{}
	if err := yaml.Unmarshal(data, form); err != nil {
		return nil, fmt.Errorf("decode form schema: %w", err)
	}
	if err := form.validate(); err != nil {
		return nil, err
	}
	return form, nil
}

func (form *Form) validate() error {
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return errors.New("form schema name is required")
	}
	if len(form.Fields) == 0 {
		return fmt.Errorf("form %s has no fields", form.Name)
	}

	form.index = make(map[string]int, len(form.Fields))
	for position, field := range form.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return fmt.Errorf("form %s: field %d has no name", form.Name, position)
		}
		if _, duplicate := form.index[field.Name]; duplicate {
			return fmt.Errorf("form %s: duplicate field %q", form.Name, field.Name)
		}
		switch field.Kind {
		case models.FieldText, models.FieldNumber, models.FieldDate:
		case models.FieldChoice:
			if len(field.Options) == 0 {
				return fmt.Errorf("form %s: choice field %q has no options", form.Name, field.Name)
			}
			if field.Default != "" && !field.allows(field.Default) {
				return fmt.Errorf("form %s: default %q of %q is not an option", form.Name, field.Default, field.Name)
			}
		default:
			return fmt.Errorf("form %s: field %q has unknown kind %q", form.Name, field.Name, field.Kind)
		}
		if field.Label == "" {
			form.Fields[position].Label = field.Name
		}
		form.index[field.Name] = position
	}

	for _, name := range form.Required {
		if _, ok := form.index[name]; !ok {
			return fmt.Errorf("form %s: required field %q is not declared", form.Name, name)
		}
	}
	if form.Location != "" {
		if _, ok := form.index[form.Location]; !ok {
			return fmt.Errorf("form %s: location field %q is not declared", form.Name, form.Location)
		}
	}
	if form.Title == "" {
		form.Title = form.Name
	}
	return nil
}

func (field Field) allows(option string) bool {
	for _, candidate := range field.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

func (form *Form) Field(name string) (Field, bool) {
	position, ok := form.index[name]
	if !ok {
		return Field{}, false
	}
	return form.Fields[position], true
}

func (form *Form) DateFields() []string {
	names := make([]string, 0, 1)
	for _, field := range form.Fields {
		if field.Kind == models.FieldDate {
			names = append(names, field.Name)
		}
	}
	return names
}

// Defaults returns a fresh buffer holding every field's initial value.
func (form *Form) Defaults() models.FormBuffer {
	buffer := make(models.FormBuffer, len(form.Fields))
	for _, field := range form.Fields {
		switch field.Kind {
		case models.FieldNumber, models.FieldDate:
			buffer[field.Name] = models.NullValue(field.Kind)
		case models.FieldChoice:
			buffer[field.Name] = models.ChoiceValue(field.Default)
		default:
			buffer[field.Name] = models.TextValue(field.Default)
		}
	}
	return buffer
}

// ParseValue converts a raw host-supplied value into the field's typed value.
// An empty string clears the field.
func (form *Form) ParseValue(name string, raw string) (models.FieldValue, error) {
	field, ok := form.Field(name)
	if !ok {
		return models.FieldValue{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	trimmed := strings.TrimSpace(raw)

	switch field.Kind {
	case models.FieldNumber:
		if trimmed == "" {
			return models.NullValue(models.FieldNumber), nil
		}
		number, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.FieldValue{}, &ValueError{Field: name, Kind: field.Kind, Raw: raw}
		}
		return models.NumberValue(number), nil
	case models.FieldDate:
		if trimmed == "" {
			return models.NullValue(models.FieldDate), nil
		}
		parsed, err := time.Parse(models.DateLayout, trimmed)
		if err != nil {
			return models.FieldValue{}, &ValueError{Field: name, Kind: field.Kind, Raw: raw}
		}
		return models.DateValue(parsed), nil
	case models.FieldChoice:
		if trimmed == "" {
			return models.ChoiceValue(""), nil
		}
		if !field.allows(trimmed) {
			return models.FieldValue{}, &ValueError{Field: name, Kind: field.Kind, Raw: raw}
		}
		return models.ChoiceValue(trimmed), nil
	default:
		return models.TextValue(raw), nil
	}
}

// MissingRequired lists the required fields that are empty in buffer, in
// declaration order.
func (form *Form) MissingRequired(buffer models.FormBuffer) []string {
	missing := make([]string, 0)
	for _, name := range form.Required {
		value, ok := buffer[name]
		if !ok || value.IsEmpty() {
			missing = append(missing, name)
		}
	}
	return missing
}

// Columns returns the submission-log column order for buffer: declared fields
// first, then any extra buffer keys sorted, then the photo paths column.
func (form *Form) Columns(buffer models.FormBuffer) []string {
	columns := make([]string, 0, len(form.Fields)+1)
	for _, field := range form.Fields {
		columns = append(columns, field.Name)
	}

	for _, name := range buffer.SortedNames() {
		if _, declared := form.index[name]; !declared && name != models.PhotoPathsColumn {
			columns = append(columns, name)
		}
	}
	return append(columns, models.PhotoPathsColumn)
}

// Labels maps field names to their display labels. Unknown names are kept.
func (form *Form) Labels(names []string) []string {
	labels := make([]string, 0, len(names))
	for _, name := range names {
		if field, ok := form.Field(name); ok {
			labels = append(labels, field.Label)
			continue
		}
		labels = append(labels, name)
	}
	return labels
}
