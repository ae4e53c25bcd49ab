package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
	"github.com/MeKo-Tech/lotra/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestTranslateRequest_Policy(t *testing.T) {
	tests := []struct {
		name    string
		req     TranslateRequest
		want    route.Policy
		wantErr bool
	}{
		{"defaults to auto", TranslateRequest{}, route.Policy{AutoDetect: true}, false},
		{"explicit", TranslateRequest{SrcLang: "ko", TgtLang: "en", AutoDetect: ptr(false)},
			route.Policy{Source: lang.Korean, Target: lang.English}, false},
		{"nllb codes", TranslateRequest{SrcLang: "jpn_Jpan", AutoDetect: ptr(false)},
			route.Policy{Source: lang.Japanese}, false},
		{"auto ignores languages", TranslateRequest{SrcLang: "fr", TgtLang: "xx-invalid"},
			route.Policy{AutoDetect: true}, false},
		{"bad source", TranslateRequest{SrcLang: "xx-invalid", AutoDetect: ptr(false)}, route.Policy{}, true},
		{"bad target", TranslateRequest{SrcLang: "en", TgtLang: "de", AutoDetect: ptr(false)}, route.Policy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Policy()
			if tt.wantErr {
				var re *RequestError
				require.ErrorAs(t, err, &re)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateRequest_TextValue(t *testing.T) {
	_, err := TranslateRequest{}.TextValue()
	assert.EqualError(t, err, "No text provided")

	_, err = TranslateRequest{Text: ptr("  \n")}.TextValue()
	assert.EqualError(t, err, "Empty text")

	text, err := TranslateRequest{Text: ptr("hi")}.TextValue()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorType string
		reason    string
	}{
		{"request", &RequestError{Message: "Empty text"}, http.StatusBadRequest, ErrorTypeBadRequest, ""},
		{"direction", &route.InvalidDirectionError{Reason: route.ReasonSameLanguage, Source: lang.English},
			http.StatusBadRequest, ErrorTypeInvalidDirection, "same_language"},
		{"model", &route.ModelError{Source: lang.English, Target: lang.Korean, Err: errors.New("boom")},
			http.StatusInternalServerError, ErrorTypeModel, ""},
		{"timeout", &route.ModelError{Err: fmt.Errorf("decode: %w", context.DeadlineExceeded)},
			http.StatusGatewayTimeout, ErrorTypeTimeout, ""},
		{"other", errors.New("unexpected"), http.StatusInternalServerError, ErrorTypeInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ClassifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, resp.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.errorType, resp.ErrorType)
			assert.Equal(t, tt.reason, resp.Reason)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestTranslate(t *testing.T) {
	backend := testutil.NewFakeBackend()
	router := route.NewRouter(backend)

	status, body := Translate(context.Background(), router, TranslateRequest{Text: ptr("こんにちは")})
	require.Equal(t, http.StatusOK, status)
	resp := body.(TranslateResponse)
	assert.Equal(t, "[ja->en] こんにちは", resp.Translation)
	assert.Equal(t, "ja", resp.DetectedLang)
	assert.Equal(t, "ja", resp.SrcLang)
	assert.Equal(t, "en", resp.TgtLang)

	status, body = Translate(context.Background(), router, TranslateRequest{
		Text: ptr("Hello"), SrcLang: "en", TgtLang: "zh", AutoDetect: ptr(false),
	})
	require.Equal(t, http.StatusOK, status)
	resp = body.(TranslateResponse)
	assert.Empty(t, resp.DetectedLang)
	assert.Equal(t, "zh", resp.TgtLang)

	status, body = Translate(context.Background(), router, TranslateRequest{Text: ptr("")})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Empty text", body.(ErrorResponse).Error)
	assert.Len(t, backend.Calls(), 2)
}

func TestNewDetectResponse(t *testing.T) {
	resp := NewDetectResponse("한국어 text")
	assert.True(t, resp.Success)
	assert.Equal(t, "ko", resp.Language)
	assert.Equal(t, "Korean", resp.Name)
	assert.Equal(t, 3, resp.Scripts.Hangul)
	assert.Equal(t, 4, resp.Scripts.Latin)
}

func TestNewLanguagesResponse(t *testing.T) {
	resp := NewLanguagesResponse()
	assert.Equal(t, map[string]string{
		"en": "eng_Latn", "ko": "kor_Hang", "ja": "jpn_Jpan", "zh": "zho_Hans",
	}, resp.Languages)
}
