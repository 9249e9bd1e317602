package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldDate   FieldKind = "date"
	FieldChoice FieldKind = "choice"
)

const DateLayout = "2006-01-02"

// FieldValue is one typed form value. Number and date values carry Valid=false
// when the field is present but null.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Date   time.Time
	Valid  bool
}

func TextValue(value string) FieldValue {
	return FieldValue{Kind: FieldText, Text: value, Valid: true}
}

func ChoiceValue(value string) FieldValue {
	return FieldValue{Kind: FieldChoice, Text: value, Valid: true}
}

func NumberValue(value float64) FieldValue {
	return FieldValue{Kind: FieldNumber, Number: value, Valid: true}
}

func DateValue(value time.Time) FieldValue {
	year, month, day := value.Date()
	return FieldValue{Kind: FieldDate, Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

func NullValue(kind FieldKind) FieldValue {
	return FieldValue{Kind: kind}
}

func (value FieldValue) IsEmpty() bool {
	switch value.Kind {
	case FieldNumber, FieldDate:
		return !value.Valid
	default:
		return !value.Valid || strings.TrimSpace(value.Text) == ""
	}
}

// String renders the value the way it is written to the draft and the submission log.
func (value FieldValue) String() string {
	if !value.Valid {
		return ""
	}
	switch value.Kind {
	case FieldNumber:
		return strconv.FormatFloat(value.Number, 'f', -1, 64)
	case FieldDate:
		return value.Date.Format(DateLayout)
	default:
		return value.Text
	}
}

// Equal compares kind, validity and the active payload. Dates compare as
// instants. go-cmp picks this method up when diffing buffers.
func (value FieldValue) Equal(other FieldValue) bool {
	if value.Kind != other.Kind || value.Valid != other.Valid {
		return false
	}
	if !value.Valid {
		return true
	}
	switch value.Kind {
	case FieldNumber:
		return value.Number == other.Number
	case FieldDate:
		return value.Date.Equal(other.Date)
	default:
		return value.Text == other.Text
	}
}

type fieldValueJSON struct {
	Kind  FieldKind `json:"kind"`
	Value any       `json:"value"`
}

func (value FieldValue) MarshalJSON() ([]byte, error) {
	encoded := fieldValueJSON{Kind: value.Kind}
	if value.Valid {
		switch value.Kind {
		case FieldNumber:
			encoded.Value = value.Number
		default:
			encoded.Value = value.String()
		}
	}
	return json.Marshal(encoded)
}

func (value *FieldValue) UnmarshalJSON(data []byte) error {
	var decoded struct {
		Kind  FieldKind       `json:"kind"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	kind := decoded.Kind
	if kind == "" {
		kind = FieldText
	}
	raw := strings.TrimSpace(string(decoded.Value))
	if raw == "" || raw == "null" {
		*value = NullValue(kind)
		return nil
	}

	switch kind {
	case FieldNumber:
		var number float64
		if err := json.Unmarshal(decoded.Value, &number); err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*value = NumberValue(number)
	case FieldDate:
		var text string
		if err := json.Unmarshal(decoded.Value, &text); err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		parsed, err := time.Parse(DateLayout, text)
		if err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		*value = DateValue(parsed)
	case FieldText, FieldChoice:
		var text string
		if err := json.Unmarshal(decoded.Value, &text); err != nil {
			return fmt.Errorf("decode %s value: %w", kind, err)
		}
		*value = FieldValue{Kind: kind, Text: text, Valid: true}
	default:
		return fmt.Errorf("unknown field kind %q", kind)
	}
	return nil
}
