package subject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/wire"
)

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindTransform, KindData} {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}

	_, err := ParseKind("skeleton")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestSchema_Construction(t *testing.T) {
	assert.Nil(t, NewSchema(nil))
	assert.Nil(t, PositionalSchema(0))

	s := NewSchema([]string{"Speed", "Load"})
	assert.Equal(t, []string{"Speed", "Load"}, s.Names())
	assert.Equal(t, ValueFloat32, s[1].Type)

	assert.Equal(t, []string{"Property0", "Property1", "Property2"}, PositionalSchema(3).Names())
}

func TestSchema_Checks(t *testing.T) {
	s := NewSchema([]string{"Speed", "Load"})

	assert.NoError(t, s.CheckCount(2))
	assert.ErrorIs(t, s.CheckCount(3), errors.ErrPropertyCountMismatch)

	assert.NoError(t, s.CheckNames([]string{"Speed", "Load"}))
	assert.ErrorIs(t, s.CheckNames([]string{"Load", "Speed"}), errors.ErrSchemaMismatch)
	assert.ErrorIs(t, s.CheckNames([]string{"Speed"}), errors.ErrPropertyCountMismatch)

	assert.True(t, s.Equal(NewSchema([]string{"Speed", "Load"})))
	assert.False(t, s.Equal(NewSchema([]string{"Load", "Speed"})))
	assert.True(t, Schema(nil).Equal(Schema{}))
}

func TestTransform_WireRoundTrip(t *testing.T) {
	w := wire.Transform{
		Position: [3]float64{100, -300, 200},
		Rotation: [4]float64{0.1, 0.2, 0.3, 0.9},
		Scale:    [3]float64{1, 2, 3},
	}
	tr := FromWire(w)
	assert.Equal(t, Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9}, tr.Rotation)
	assert.Equal(t, w, tr.Wire())
	assert.Equal(t, wire.Identity(), IdentityTransform().Wire())
}

func TestInfo_JSON(t *testing.T) {
	b, err := json.Marshal(Info{Name: "Forklift_01", Kind: KindTransform})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"transform"`)
}

func TestToken(t *testing.T) {
	tests := []struct {
		name, token string
	}{
		{"Forklift_01", "Forklift_01"},
		{"AGV-7", "AGV-7"},
		{"Line 1.Robot", "Line=201=2ERobot"},
		{"a>b*c", "a=3Eb=2Ac"},
		{"x=y", "x=3Dy"},
		{"", "="},
		{"Förder", "F=C3=B6rder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.token, Token(tt.name))
			back, err := ParseToken(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.name, back)
		})
	}
}

func TestParseToken_Invalid(t *testing.T) {
	for _, tok := range []string{"a=4", "a=zz", "a.b", "=4"} {
		_, err := ParseToken(tok)
		assert.ErrorIs(t, err, errors.ErrInvalidArgument, tok)
	}
}
