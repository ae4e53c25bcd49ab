package route

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPartner(t *testing.T) {
	assert.Equal(t, lang.English, DefaultPartner(lang.Korean))
	assert.Equal(t, lang.Korean, DefaultPartner(lang.English))
	assert.Equal(t, lang.English, DefaultPartner(lang.Japanese))
	assert.Equal(t, lang.English, DefaultPartner(lang.Chinese))
	assert.Equal(t, lang.Unknown, DefaultPartner(lang.Unknown))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		policy Policy
		want   Direction
		reason Reason
	}{
		{
			name:   "auto korean",
			text:   "안녕하세요",
			policy: AutoPolicy(),
			want:   Direction{Source: lang.Korean, Target: lang.English, Detected: lang.Korean},
		},
		{
			name:   "auto english",
			text:   "Hello",
			policy: AutoPolicy(),
			want:   Direction{Source: lang.English, Target: lang.Korean, Detected: lang.English},
		},
		{
			name:   "auto japanese",
			text:   "こんにちは",
			policy: AutoPolicy(),
			want:   Direction{Source: lang.Japanese, Target: lang.English, Detected: lang.Japanese},
		},
		{
			name:   "auto chinese",
			text:   "你好",
			policy: AutoPolicy(),
			want:   Direction{Source: lang.Chinese, Target: lang.English, Detected: lang.Chinese},
		},
		{
			name:   "auto ignores explicit languages",
			text:   "Hello",
			policy: Policy{AutoDetect: true, Source: lang.Japanese, Target: lang.Chinese},
			want:   Direction{Source: lang.English, Target: lang.Korean, Detected: lang.English},
		},
		{
			name:   "auto undetectable",
			text:   "   ",
			policy: AutoPolicy(),
			reason: ReasonUndetectable,
		},
		{
			name:   "explicit pair",
			text:   "Hello",
			policy: Policy{Source: lang.English, Target: lang.Japanese},
			want:   Direction{Source: lang.English, Target: lang.Japanese},
		},
		{
			name:   "explicit same language",
			text:   "안녕",
			policy: Policy{Source: lang.Korean, Target: lang.Korean},
			reason: ReasonSameLanguage,
		},
		{
			name:   "explicit source default target",
			text:   "こんにちは",
			policy: Policy{Source: lang.Japanese},
			want:   Direction{Source: lang.Japanese, Target: lang.English},
		},
		{
			name:   "explicit source trusts caller over content",
			text:   "Hello",
			policy: Policy{Source: lang.Korean},
			want:   Direction{Source: lang.Korean, Target: lang.English},
		},
		{
			name:   "missing source",
			text:   "Hello",
			policy: Policy{Target: lang.Korean},
			reason: ReasonSourceRequired,
		},
		{
			name:   "missing source and target",
			text:   "Hello",
			policy: Policy{},
			reason: ReasonSourceRequired,
		},
		{
			name:   "unsupported target",
			text:   "Hello",
			policy: Policy{Source: lang.English, Target: lang.Code("de")},
			reason: ReasonUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.text, tt.policy)
			if tt.reason != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDirection))
				de, ok := IsInvalidDirection(err)
				require.True(t, ok)
				assert.Equal(t, tt.reason, de.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidDirectionError_Messages(t *testing.T) {
	tests := []struct {
		err  *InvalidDirectionError
		want string
	}{
		{&InvalidDirectionError{Reason: ReasonUndetectable}, "could not detect language"},
		{&InvalidDirectionError{Reason: ReasonSameLanguage, Source: lang.Korean}, "source and target must differ"},
		{&InvalidDirectionError{Reason: ReasonSourceRequired}, "source language required when auto-detect is disabled"},
		{&InvalidDirectionError{Reason: ReasonEmptyText}, "text must not be empty"},
		{&InvalidDirectionError{Reason: ReasonUnsupported, Source: lang.English, Target: "de"}, "unsupported language pair"},
		{&InvalidDirectionError{}, "invalid translation direction"},
	}
	for _, tt := range tests {
		assert.Contains(t, tt.err.Error(), tt.want)
	}
}

func TestModelError(t *testing.T) {
	cause := errors.New("out of memory")
	err := error(&ModelError{Source: lang.Korean, Target: lang.English, Err: cause})

	assert.True(t, errors.Is(err, ErrModel))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrInvalidDirection))
	assert.Contains(t, err.Error(), "ko -> en")
	assert.Contains(t, err.Error(), "out of memory")

	me, ok := IsModelError(err)
	require.True(t, ok)
	assert.Equal(t, cause, me.Err)

	_, ok = IsModelError(errors.New("plain"))
	assert.False(t, ok)
}
