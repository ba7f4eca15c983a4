package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", NotFoundError("missing", nil), KindNotFound},
		{"configuration", ConfigError("bad options", nil), KindConfiguration},
		{"geometry", GeometryError("zero size", nil), KindGeometry},
		{"render", RenderError("backend", errors.New("boom")), KindRender},
		{"annotation", AnnotationError("transport", nil), KindAnnotation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsKind(tt.err, tt.kind))
			for _, other := range []Kind{KindNotFound, KindConfiguration, KindGeometry, KindRender, KindAnnotation} {
				if other != tt.kind {
					assert.False(t, IsKind(tt.err, other))
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := RenderError("page 3", cause)

	assert.ErrorIs(t, err, cause)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindRender, de.Kind)
	assert.Contains(t, de.Error(), "render_failure")
	assert.Contains(t, de.Error(), "page 3")
	assert.Contains(t, de.Error(), "underlying")
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("render all: %w", GeometryError("zero width", nil))
	assert.True(t, IsKind(err, KindGeometry))
	assert.False(t, IsKind(errors.New("plain"), KindGeometry))
}
