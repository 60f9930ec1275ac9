package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "two components", input: "16.0", want: []int{16, 0}},
		{name: "four components", input: "3.1.4024.12", want: []int{3, 1, 4024, 12}},
		{name: "surrounding whitespace", input: " 3.1.4022 ", want: []int{3, 1, 4022}},
		{name: "single component", input: "16", wantErr: true},
		{name: "five components", input: "1.2.3.4.5", wantErr: true},
		{name: "non numeric", input: "16.x", wantErr: true},
		{name: "empty component", input: "16..0", wantErr: true},
		{name: "signed component", input: "+3.1", wantErr: true},
		{name: "negative component", input: "3.-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Components())
		})
	}
}

func TestVersionAccessors(t *testing.T) {
	v := MustParse("3.1.4024.12")
	assert.Equal(t, 3, v.Major())
	assert.Equal(t, 1, v.Minor())
	assert.Equal(t, 4024, v.Build())
	assert.Equal(t, 12, v.Revision())
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, "3.1.4024.12", v.String())

	short := MustParse("16.0")
	assert.Equal(t, 0, short.Build())
	assert.Equal(t, "16.0", short.String())

	assert.True(t, Version{}.IsZero())
	assert.False(t, short.IsZero())
}

func TestComponentsIsACopy(t *testing.T) {
	v := MustParse("3.1.4024.12")
	c := v.Components()
	c[0] = 99
	assert.Equal(t, 3, v.Major())
}

func TestNewRejectsNegative(t *testing.T) {
	_, err := New(3, -1)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.1.4022.0", "3.1.4022.0", 0},
		{"3.1.4021.9", "3.1.4022.0", -1},
		{"3.1.4024.1", "3.1.4022.0", 1},
		{"3.2.0.0", "3.1.9999.9999", 1},
		{"3.1", "3.1.0.0", 0},
		{"3.1", "3.1.4022.0", -1},
		{"10.0", "9.9", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := MustParse(tt.a).Compare(MustParse(tt.b))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSupported(t *testing.T) {
	minimum := MustParse("3.1.4022.0")

	assert.True(t, IsSupported(MustParse("3.1.4022.0"), minimum), "minimum is inclusive")
	assert.False(t, IsSupported(MustParse("3.1.4021.9"), minimum))
	assert.True(t, IsSupported(MustParse("3.1.4024.12"), minimum))
	assert.True(t, IsSupported(MustParse("4.0"), minimum))
	assert.False(t, IsSupported(MustParse("3.1"), minimum))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("not.a.version") })
}

func TestMinimumTwinCAT(t *testing.T) {
	assert.Equal(t, "3.1.4022.0", MinimumTwinCAT.String())
}
