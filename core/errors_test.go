package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("load artifact: %w", ErrArtifactNotFound)

	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same", ErrEmptyGraph, ErrEmptyGraph, true},
		{"wrapped", wrapped, ErrArtifactNotFound, true},
		{"same code other module", ErrStoreNotFound, ErrArtifactNotFound, false},
		{"equal value", NewDomainError(ModuleTrain, ErrorCodeNoTrainingData, "other text"), ErrNoTrainingData, true},
		{"plain error", errors.New("boom"), ErrModelMismatch, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("get: %w", ErrStoreNotFound)
	assert.True(t, IsStoreNotFound(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsStoreNotFound(ErrArtifactNotFound))
	assert.True(t, IsNotFound(ErrArtifactNotFound))

	assert.True(t, IsUnavailable(fmt.Errorf("x: %w", ErrModelUnavailable)))
	assert.False(t, IsUnavailable(ErrModelMismatch))

	assert.True(t, IsDomainError(wrapped))
	assert.False(t, IsDomainError(errors.New("boom")))
	assert.Nil(t, GetDomainError(nil))
	assert.Equal(t, ModuleStore, GetDomainError(wrapped).Module)
}
