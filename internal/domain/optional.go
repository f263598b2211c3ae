package domain

import "encoding/json"

// Optional — поле директивы обновления: либо не передано (Absent), либо задано (Set).
// Заданное нулевое значение означает явную очистку поля, а не "без изменений".
type Optional[T any] struct {
	value T
	set   bool
}

// Some возвращает заданное значение.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None возвращает отсутствующее значение.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// IsSet сообщает, было ли поле передано.
func (o Optional[T]) IsSet() bool { return o.set }

// Get возвращает значение и признак его наличия.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// OrElse возвращает значение или def, если поле не передано.
func (o Optional[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

// UnmarshalJSON вызывается только для присутствующих ключей, поэтому любой ключ,
// включая null, делает поле заданным.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		var zero T
		o.value = zero
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

// MarshalJSON кодирует отсутствующее поле как null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
