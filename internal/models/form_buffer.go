package models

import "sort"

// FormBuffer holds the live field values of one submission being edited.
type FormBuffer map[string]FieldValue

func (buffer FormBuffer) Clone() FormBuffer {
	if buffer == nil {
		return nil
	}
	cloned := make(FormBuffer, len(buffer))
	for name, value := range buffer {
		cloned[name] = value
	}
	return cloned
}

// Value returns the stored value or an empty text value when the field is absent.
func (buffer FormBuffer) Value(name string) FieldValue {
	if value, ok := buffer[name]; ok {
		return value
	}
	return FieldValue{Kind: FieldText}
}

func (buffer FormBuffer) SortedNames() []string {
	names := make([]string, 0, len(buffer))
	for name := range buffer {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Strings renders every value with FieldValue.String.
func (buffer FormBuffer) Strings() map[string]string {
	rendered := make(map[string]string, len(buffer))
	for name, value := range buffer {
		rendered[name] = value.String()
	}
	return rendered
}
