// Package api defines the JSON wire format shared by the HTTP server, the
// websocket endpoint and the Lambda function.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/lotra/internal/detect"
	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// Error types reported in ErrorResponse.ErrorType.
const (
	ErrorTypeBadRequest       = "bad_request"
	ErrorTypeInvalidDirection = "invalid_direction"
	ErrorTypeModel            = "model_error"
	ErrorTypeTimeout          = "timeout"
	ErrorTypeRateLimit        = "rate_limit"
	ErrorTypeInternal         = "internal_error"
)

// TranslateRequest is the body of a translation request. AutoDetect defaults
// to true when omitted.
type TranslateRequest struct {
	Text       *string `json:"text"`
	SrcLang    string  `json:"src_lang,omitempty"`
	TgtLang    string  `json:"tgt_lang,omitempty"`
	AutoDetect *bool   `json:"auto_detect,omitempty"`
}

// TranslateResponse is returned for a successful translation.
type TranslateResponse struct {
	Success      bool   `json:"success"`
	Translation  string `json:"translation"`
	DetectedLang string `json:"detected_lang,omitempty"`
	SrcLang      string `json:"src_lang"`
	TgtLang      string `json:"tgt_lang"`
}

// ErrorResponse is returned for any failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Code      int    `json:"code,omitempty"`
}

// DetectRequest is the body of a detection request.
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectResponse reports the detected language and script counts.
type DetectResponse struct {
	Success  bool           `json:"success"`
	Language string         `json:"language"`
	Name     string         `json:"name"`
	Scripts  detect.Profile `json:"scripts"`
}

// LanguagesResponse lists supported codes and their NLLB tokens.
type LanguagesResponse struct {
	Success   bool              `json:"success"`
	Languages map[string]string `json:"languages"`
}

// RequestError is a client error found while decoding a request.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// TextValue returns the request text, or an error when it is missing or blank.
func (r TranslateRequest) TextValue() (string, error) {
	if r.Text == nil {
		return "", &RequestError{Message: "No text provided"}
	}
	if strings.TrimSpace(*r.Text) == "" {
		return "", &RequestError{Message: "Empty text"}
	}
	return *r.Text, nil
}

// Policy converts the request fields into a routing policy. src_lang and
// tgt_lang are ignored under auto-detect, so they are not validated then.
func (r TranslateRequest) Policy() (route.Policy, error) {
	p := route.Policy{AutoDetect: true}
	if r.AutoDetect != nil {
		p.AutoDetect = *r.AutoDetect
	}
	if p.AutoDetect {
		return p, nil
	}
	var err error
	if p.Source, err = lang.Parse(r.SrcLang); err != nil {
		return route.Policy{}, &RequestError{Message: "src_lang: " + err.Error()}
	}
	if p.Target, err = lang.Parse(r.TgtLang); err != nil {
		return route.Policy{}, &RequestError{Message: "tgt_lang: " + err.Error()}
	}
	return p, nil
}

// NewTranslateResponse renders a routing result.
func NewTranslateResponse(res *route.Result) TranslateResponse {
	out := TranslateResponse{
		Success:     true,
		Translation: res.Translation,
		SrcLang:     string(res.Source),
		TgtLang:     string(res.Target),
	}
	if res.Detected != lang.Unknown {
		out.DetectedLang = string(res.Detected)
	}
	return out
}

// NewLanguagesResponse lists the supported languages.
func NewLanguagesResponse() LanguagesResponse {
	return LanguagesResponse{Success: true, Languages: lang.NLLBCodes()}
}

// NewDetectResponse runs detection over text.
func NewDetectResponse(text string) DetectResponse {
	code := detect.Detect(text)
	return DetectResponse{
		Success:  true,
		Language: string(code),
		Name:     code.Name(),
		Scripts:  detect.Scan(text),
	}
}

// ClassifyError maps an error from decoding or routing to an HTTP status and
// error body.
func ClassifyError(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Success: false, Error: err.Error()}

	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		resp.ErrorType = ErrorTypeBadRequest
		resp.Code = http.StatusBadRequest
	case errors.Is(err, route.ErrInvalidDirection):
		de, _ := route.IsInvalidDirection(err)
		resp.ErrorType = ErrorTypeInvalidDirection
		resp.Reason = string(de.Reason)
		resp.Code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		resp.ErrorType = ErrorTypeTimeout
		resp.Code = http.StatusGatewayTimeout
	case errors.Is(err, route.ErrModel):
		resp.ErrorType = ErrorTypeModel
		resp.Code = http.StatusInternalServerError
	default:
		resp.ErrorType = ErrorTypeInternal
		resp.Code = http.StatusInternalServerError
	}
	return resp.Code, resp
}

// Translate decodes req, routes it and returns either a TranslateResponse or
// an ErrorResponse together with the HTTP status.
func Translate(ctx context.Context, router *route.Router, req TranslateRequest) (int, any) {
	text, err := req.TextValue()
	if err != nil {
		return ClassifyError(err)
	}
	policy, err := req.Policy()
	if err != nil {
		return ClassifyError(err)
	}
	res, err := router.RouteAndTranslate(ctx, text, policy)
	if err != nil {
		return ClassifyError(err)
	}
	return http.StatusOK, NewTranslateResponse(res)
}
