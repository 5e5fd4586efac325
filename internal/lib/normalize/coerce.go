// Package normalize приводит разнородные JSON-документы внешнего API к стабильным значениям.
//
// Все функции пакета тотальны: на неожиданный ввод они возвращают нулевое значение
// (nil, false или пустую строку) и никогда не паникуют.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ISOLayout формат дат в нормализованных записях, совпадает с Date.toISOString.
const ISOLayout = "2006-01-02T15:04:05.000Z"

var numberWrappers = []string{"$numberDecimal", "$numberDouble", "$numberInt", "$numberLong"}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Number приводит значение к float64. Поддерживаются числа, числовые строки
// и расширенный JSON MongoDB ($numberDecimal, $numberDouble, $numberInt, $numberLong).
func Number(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case map[string]any:
		for _, key := range numberWrappers {
			if inner, ok := val[key]; ok && inner != nil {
				return Number(inner)
			}
		}
	}
	return 0, false
}

// NumberPtr как Number, но возвращает nil вместо false.
func NumberPtr(v any) *float64 {
	f, ok := Number(v)
	if !ok {
		return nil
	}
	return &f
}

// NumberOr возвращает fallback, если значение не приводится к числу.
func NumberOr(v any, fallback float64) float64 {
	if f, ok := Number(v); ok {
		return f
	}
	return fallback
}

// Int приводит значение к целому, дробная часть отбрасывается.
func Int(v any) *int {
	f, ok := Number(v)
	if !ok {
		return nil
	}
	i := int(f)
	return &i
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Date приводит значение к ISO-строке в UTC. Поддерживаются строки в нескольких
// форматах, epoch в миллисекундах и обёртка {$date: ...}.
func Date(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return FormatTime(t)
			}
		}
		return nil
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return FormatTime(val)
	case map[string]any:
		if inner, ok := val["$date"]; ok {
			return Date(inner)
		}
	}
	ms, ok := Number(v)
	if !ok {
		return nil
	}
	return FormatTime(time.UnixMilli(int64(ms)))
}

// FormatTime форматирует время в ISOLayout.
func FormatTime(t time.Time) *string {
	s := t.UTC().Format(ISOLayout)
	return &s
}

// ID извлекает идентификатор из строки, числа или вложенных $oid, _id, id.
func ID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case map[string]any:
		for _, key := range []string{"$oid", "_id", "id"} {
			if inner, ok := val[key]; ok && inner != nil {
				if id := ID(inner); id != "" {
					return id
				}
			}
		}
	}
	return ""
}

// IDPtr как ID, но пустой результат превращается в nil.
func IDPtr(v any) *string {
	id := ID(v)
	if id == "" {
		return nil
	}
	return &id
}

// String возвращает строку только для строк и чисел.
func String(v any) *string {
	switch val := v.(type) {
	case string:
		return &val
	case json.Number:
		s := val.String()
		return &s
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return &s
	case int:
		s := strconv.Itoa(val)
		return &s
	}
	return nil
}

// TrimmedString как String, но обрезает пробелы и превращает пустую строку в nil.
func TrimmedString(v any) *string {
	s := String(v)
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Lower обрезает и переводит строку в нижний регистр, пустая строка даёт nil.
func Lower(v any) *string {
	s := TrimmedString(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(*s)
	return &lower
}

// Bool распознаёт булевы значения, числа и строки вида yes/no, active/inactive.
func Bool(v any) *bool {
	t, f := true, false
	switch val := v.(type) {
	case bool:
		return &val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "active", "enabled":
			return &t
		case "false", "0", "no", "inactive", "disabled":
			return &f
		}
		return nil
	}
	if n, ok := Number(v); ok {
		if n != 0 {
			return &t
		}
		return &f
	}
	return nil
}

// StatusLabel превращает код статуса в подпись: past_due -> Past Due.
// Пустой ввод даёт пустую строку.
func StatusLabel(status string) string {
	segments := strings.FieldsFunc(strings.TrimSpace(status), func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	for i, segment := range segments {
		r, size := utf8.DecodeRuneInString(segment)
		segments[i] = string(unicode.ToUpper(r)) + segment[size:]
	}
	return strings.Join(segments, " ")
}

// StatusLabelPtr как StatusLabel для nullable значений.
func StatusLabelPtr(status *string) *string {
	if status == nil {
		return nil
	}
	label := StatusLabel(*status)
	if label == "" {
		return nil
	}
	return &label
}

// Object возвращает значение как JSON-объект или nil.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Path возвращает вложенное значение по цепочке ключей объектов.
func Path(v any, keys ...string) any {
	cur := v
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// FirstString возвращает первую непустую строку среди значений.
func FirstString(values ...any) *string {
	for _, v := range values {
		if s := TrimmedString(v); s != nil {
			return s
		}
	}
	return nil
}

// Coalesce возвращает первое значение, отличное от nil.
func Coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
