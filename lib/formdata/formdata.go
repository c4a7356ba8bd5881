// Package formdata defines HTML forms and parses submitted values into typed field data.
package formdata

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/petclinic-e2e/lib/structx"
)

// DateLayout is the format of date fields. It matches the value of an HTML date input.
const DateLayout = "2006-01-02"

// the overwhelming majority of forms are not nested and do not have arrays

type Form struct {
	Fields []*Field
}

func (f *Form) New() *FormData {
	return f.Load(map[string]any{})
}

func (f *Form) Load(params map[string]any) *FormData {
	fd := &FormData{
		Form:        f,
		FieldValues: make(map[string]*FieldData),
	}

	for _, field := range f.Fields {
		fd.FieldValues[field.Name] = &FieldData{
			Value: params[field.Name],
		}
	}

	return fd
}

// LoadStruct loads field values from the StructField of each field in record.
func (f *Form) LoadStruct(record any) *FormData {
	params := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		if field.StructField != "" {
			params[field.Name] = structx.Get(record, field.StructField)
		}
	}
	return f.Load(params)
}

func (f *Form) Parse(params map[string]any) *FormData {
	fd := &FormData{
		Form:        f,
		FieldValues: make(map[string]*FieldData),
	}

	for _, field := range f.Fields {
		fieldData := &FieldData{}
		submittedValue, _ := params[field.Name].(string)
		submittedValue = strings.TrimSpace(submittedValue)
		fieldData.SubmittedValue = submittedValue

		switch {
		case submittedValue == "":
			if field.Required {
				fieldData.Error = "is required"
			}
		case field.Pattern != nil && !field.Pattern.MatchString(submittedValue):
			fieldData.Error = field.PatternMessage
			if fieldData.Error == "" {
				fieldData.Error = "is invalid"
			}
		case field.Type == "select" && !slices.Contains(field.Options, submittedValue):
			fieldData.Error = "is not a valid choice"
		default:
			switch field.Type {
			case "text", "longtext", "password", "select", "hidden":
				fieldData.Value = submittedValue
			case "duration":
				value, err := time.ParseDuration(submittedValue)
				if err != nil {
					fieldData.Error = err.Error()
				} else {
					fieldData.Value = value
				}
			case "number":
				value, err := strconv.ParseFloat(submittedValue, 64)
				if err != nil {
					fieldData.Error = err.Error()
				} else {
					fieldData.Value = value
				}
			case "date":
				value, err := time.Parse(DateLayout, submittedValue)
				if err != nil {
					fieldData.Error = "is not a valid date"
				} else {
					fieldData.Value = value
				}
			default:
				panic("unknown field type")
			}
		}
		fd.FieldValues[field.Name] = fieldData
	}

	return fd

}

type Field struct {
	Label    string
	Name     string
	Type     string
	Required bool

	// Pattern, if not nil, must match a non-empty submitted value. PatternMessage is the error when it does not.
	Pattern        *regexp.Regexp
	PatternMessage string

	// StructField is the name of the record field LoadStruct reads.
	StructField string

	// Options are the choices of a select field. A submitted value must be one of them.
	Options []string
}

type FormData struct {
	Form *Form

	FieldValues map[string]*FieldData
	Errors      []string
}

// Valid reports whether no field has an error and there are no form level errors.
func (fd *FormData) Valid() bool {
	if len(fd.Errors) > 0 {
		return false
	}
	for _, fieldData := range fd.FieldValues {
		if fieldData.Error != "" {
			return false
		}
	}
	return true
}

// String returns the value of the named field as a string. Dates are formatted with DateLayout.
func (fd *FormData) String(name string) string {
	fieldData, ok := fd.FieldValues[name]
	if !ok {
		return ""
	}
	switch value := fieldData.Value.(type) {
	case nil:
		return fieldData.SubmittedValue
	case string:
		return value
	case time.Time:
		return value.Format(DateLayout)
	default:
		return fmt.Sprint(value)
	}
}

// Time returns the value of the named date field or the zero time.
func (fd *FormData) Time(name string) time.Time {
	if fieldData, ok := fd.FieldValues[name]; ok {
		if t, ok := fieldData.Value.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

type FieldData struct {
	SubmittedValue string
	Value          any
	Error          string
}
