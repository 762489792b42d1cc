package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// Kind identifies which member of the Value union is populated
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindDate
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

const dateLayout = "2006-01-02"

// Value is a typed field value. The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  float64
	date time.Time
	list []string
}

// Null returns the empty value
func Null() Value { return Value{} }

// Text wraps a string value
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps a numeric value
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date wraps a calendar date
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// List wraps a multi-valued selection
func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), items...)}
}

func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no information: null, blank text or an
// empty list
func (v Value) IsNull() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return strings.TrimSpace(v.text) == ""
	case KindList:
		return len(v.list) == 0
	}
	return false
}

func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) Date() (time.Time, bool) { return v.date, v.kind == KindDate }

func (v Value) List() []string { return append([]string(nil), v.list...) }

// String renders the value the way forms and tables spell it
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(dateLayout)
	case KindList:
		return strings.Join(v.list, ", ")
	}
	return ""
}

// Raw returns the plain Go representation used by JSON and form pre-population
func (v Value) Raw() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindDate:
		return v.date.Format(dateLayout)
	case KindList:
		return v.List()
	}
	return nil
}

// Equal reports whether two values hold the same member and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.date.Equal(o.date)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}

func (v Value) clone() Value {
	if v.kind == KindList {
		v.list = append([]string(nil), v.list...)
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON decodes the natural JSON form. Strings stay text; callers
// that know the field type re-coerce with Coerce.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = Text(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", x, err)
		}
		*v = Number(f)
	case bool:
		*v = Text(strconv.FormatBool(x))
	case []any:
		*v = List(template.ToStringList(x)...)
	default:
		return fmt.Errorf("unsupported value %s", string(data))
	}
	return nil
}

// Coerce converts a raw submitted value into the Value member matching the
// field type. Values that do not parse are kept as text so nothing the
// inspector typed is lost; blank input becomes null.
func Coerce(fieldType template.FieldType, raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case Value:
		if x.kind == KindNull {
			return x
		}
		return Coerce(fieldType, x.Raw())
	case time.Time:
		if fieldType == template.FieldDate {
			return Date(x)
		}
		return Text(x.Format(time.RFC3339))
	}

	switch fieldType {
	case template.FieldNumber:
		if f, ok := template.ToFloat(raw); ok {
			return Number(f)
		}
	case template.FieldDate:
		if s, ok := raw.(string); ok {
			if t, ok := template.ParseDate(s); ok {
				return Date(t)
			}
		}
	case template.FieldMultiSelect:
		list := template.ToStringList(raw)
		if len(list) == 0 {
			return Null()
		}
		return List(list...)
	case template.FieldFile:
		switch raw.(type) {
		case []any, []string:
			list := template.ToStringList(raw)
			if len(list) == 0 {
				return Null()
			}
			return List(list...)
		}
	}

	s := template.ToOptionString(raw)
	if s == "" {
		return Null()
	}
	return Text(s)
}
