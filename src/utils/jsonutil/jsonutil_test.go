package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertSettingsMap(t *testing.T) {
	type settings struct {
		ShaderDefs []string `json:"shaderDefs"`
	}
	in := map[string]interface{}{"shaderDefs": []interface{}{"FOG"}}

	out, err := Convert[settings](in)
	require.NoError(t, err)
	assert.Equal(t, []string{"FOG"}, out.ShaderDefs)
}

func TestConvertTypeMismatch(t *testing.T) {
	_, err := Convert[int]("123")
	assert.Error(t, err)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull([]byte(" null ")))
	assert.False(t, IsNull([]byte("{}")))
}

func TestDecodeStrict(t *testing.T) {
	type p struct {
		A int `json:"a"`
	}
	v, err := DecodeStrict[p]([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, v.A)

	_, err = DecodeStrict[p]([]byte(`{"a":1,"b":2}`))
	assert.Error(t, err)
}
