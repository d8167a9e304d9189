package services

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestInitials(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Luna", "L"},
		{"Luna Lovegood", "LL"},
		{"  spaced   out  ", "SO"},
		{"", "?"},
		{"Ámbar", "Á"},
		{"Ámbar Muñoz", "ÁM"},
		{"émile zola", "ÉZ"},
		{"夏目 漱石", "夏漱"},
	}
	for _, tc := range cases {
		got := initials(tc.name)
		assert.Equal(t, tc.want, got, "name=%q", tc.name)
		assert.True(t, utf8.ValidString(got), "name=%q", tc.name)
	}
}

func TestColorIndexStable(t *testing.T) {
	first := colorIndex("Luna", 6)
	assert.Equal(t, first, colorIndex("Luna", 6))
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 6)
	assert.Zero(t, colorIndex("anything", 0))
}
