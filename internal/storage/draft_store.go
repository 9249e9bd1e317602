package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"github.com/terraincognita07/dairyforms/internal/schema"
	"go.uber.org/zap"
)

var ErrCorruptDraft = errors.New("draft file is not valid json")

// DraftStore keeps a single in-progress buffer per form in one JSON file.
// Saving always replaces whatever draft was there before.
type DraftStore struct {
	path   string
	form   *schema.Form
	logger *zap.Logger
}

func NewDraftStore(path string, form *schema.Form, logger *zap.Logger) *DraftStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftStore{path: path, form: form, logger: logger}
}

func (store *DraftStore) Path() string {
	return store.path
}

func (store *DraftStore) Save(buffer models.FormBuffer) error {
	document := make(map[string]any, len(buffer))
	for name, value := range buffer {
		document[name] = draftJSONValue(value)
	}

	serialized, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := writeFileAtomic(store.path, serialized); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

// Load returns the stored draft. found is false when no draft exists. A
// malformed document yields ErrCorruptDraft.
func (store *DraftStore) Load() (models.FormBuffer, bool, error) {
	content, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read draft: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	document := map[string]any{}
	if err := decoder.Decode(&document); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptDraft, err)
	}

	buffer := make(models.FormBuffer, len(document))
	for name, raw := range document {
		buffer[name] = store.decodeValue(name, raw)
	}
	return buffer, true, nil
}

func (store *DraftStore) Delete() error {
	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (store *DraftStore) Exists() bool {
	_, err := os.Stat(store.path)
	return err == nil
}

func draftJSONValue(value models.FieldValue) any {
	if !value.Valid {
		if value.Kind == models.FieldText || value.Kind == models.FieldChoice {
			return ""
		}
		return nil
	}
	if value.Kind == models.FieldNumber {
		return value.Number
	}
	return value.String()
}

func (store *DraftStore) decodeValue(name string, raw any) models.FieldValue {
	kind := models.FieldText
	if field, ok := store.form.Field(name); ok {
		kind = field.Kind
	}

	switch kind {
	case models.FieldDate:
		text, _ := raw.(string)
		if strings.TrimSpace(text) == "" {
			return models.NullValue(models.FieldDate)
		}
		parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(text))
		if err != nil {
			store.logger.Warn("draft date field unparsable, clearing it",
				zap.String("form", store.form.Name),
				zap.String("field", name),
				zap.String("value", text))
			return models.NullValue(models.FieldDate)
		}
		return models.DateValue(parsed)
	case models.FieldNumber:
		number, ok := draftNumber(raw)
		if !ok {
			return models.NullValue(models.FieldNumber)
		}
		return models.NumberValue(number)
	case models.FieldChoice:
		return models.ChoiceValue(draftText(raw))
	default:
		return models.TextValue(draftText(raw))
	}
}

func draftNumber(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case json.Number:
		number, err := typed.Float64()
		return number, err == nil
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return number, err == nil
	default:
		return 0, false
	}
}

func draftText(raw any) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	}
}

func writeFileAtomic(path string, content []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}

	temporary, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(content); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Close(); err != nil {
		return err
	}
	return os.Rename(temporaryPath, path)
}
