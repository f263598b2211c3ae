package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_SomeNone(t *testing.T) {
	some := Some("x")
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	none := None[string]()
	assert.False(t, none.IsSet())
	assert.Equal(t, "fallback", none.OrElse("fallback"))
	assert.Equal(t, "x", some.OrElse("fallback"))
}

func TestOptional_JSONPresence(t *testing.T) {
	var payload struct {
		Status  Optional[string] `json:"status"`
		Message Optional[string] `json:"message"`
		Gift    Optional[bool]   `json:"gift"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"message": null, "gift": false}`), &payload))

	assert.False(t, payload.Status.IsSet(), "absent key stays absent")

	msg, ok := payload.Message.Get()
	assert.True(t, ok, "explicit null is a clear directive")
	assert.Empty(t, msg)

	gift, ok := payload.Gift.Get()
	assert.True(t, ok)
	assert.False(t, gift)
}

func TestOptional_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Optional[int] `json:"a"`
		B Optional[int] `json:"b"`
	}{A: Some(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":null}`, string(data))
}
