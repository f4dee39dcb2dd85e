package cachecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirective_String(t *testing.T) {
	assert.Equal(t, "max-age=3600", MaxAge(3600).String())
	assert.Equal(t, "no-cache", NoCache().String())
	assert.Equal(t, "must-revalidate", MustRevalidate().String())
	assert.Equal(t, "no-store", NoStore().String())
	assert.Equal(t, "stale-while-revalidate=30", StaleWhileRevalidate(30).String())
}

func TestJoin(t *testing.T) {
	out := Join([]Directive{MaxAge(60), MustRevalidate()})
	assert.Equal(t, "max-age=60, must-revalidate", out)
}

func TestJoin_Empty(t *testing.T) {
	assert.Equal(t, "", Join(nil))
}
