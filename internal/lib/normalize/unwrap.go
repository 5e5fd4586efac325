package normalize

// Extractor пытается достать массив элементов из тела ответа.
type Extractor func(v any) ([]any, bool)

// EnvelopeKeys ключи конвертов, в которых внешний API возвращает коллекции,
// в порядке приоритета.
var EnvelopeKeys = []string{"data", "items", "results", "rows", "payload", "users", "payments", "plans", "result"}

// ObjectKeys ключи конвертов для ответов с одной сущностью.
var ObjectKeys = []string{"data", "user", "payment", "plan", "item", "result"}

// Extractors упорядоченный список извлекателей: голый массив, массив под ключом
// конверта, массив под ключом конверта на один уровень глубже.
var Extractors = buildExtractors()

func buildExtractors() []Extractor {
	list := []Extractor{bareArray}
	for _, key := range EnvelopeKeys {
		list = append(list, keyed(key, bareArray))
	}
	for _, key := range EnvelopeKeys {
		list = append(list, keyed(key, firstOf(list[1:len(EnvelopeKeys)+1])))
	}
	return list
}

func bareArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func keyed(key string, next Extractor) Extractor {
	return func(v any) ([]any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		inner, ok := m[key]
		if !ok || inner == nil {
			return nil, false
		}
		return next(inner)
	}
}

func firstOf(extractors []Extractor) Extractor {
	return func(v any) ([]any, bool) {
		for _, extract := range extractors {
			if arr, ok := extract(v); ok {
				return arr, true
			}
		}
		return nil, false
	}
}

// Unwrap возвращает элементы коллекции из тела ответа, какой бы конверт ни использовал
// сервер. Если ни один извлекатель не подошёл, возвращается пустой срез.
func Unwrap(v any) []any {
	for _, extract := range Extractors {
		if arr, ok := extract(v); ok {
			if arr == nil {
				return []any{}
			}
			return arr
		}
	}
	return []any{}
}

// UnwrapObject возвращает документ сущности из ответа, снимая один уровень конверта.
// Если конверта нет, возвращается сам объект; не объект даёт nil.
func UnwrapObject(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := m["_id"]; ok {
		return m
	}
	if _, ok := m["id"]; ok {
		return m
	}
	for _, key := range ObjectKeys {
		if inner, ok := m[key].(map[string]any); ok {
			return inner
		}
	}
	return m
}
