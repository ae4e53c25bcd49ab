// Package lang defines the language codes shared by the CLI flags, the web API
// and the translation backends.
package lang

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Code is a supported language identifier. The zero value is Unknown.
type Code string

// Supported language codes.
const (
	Unknown  Code = ""
	English  Code = "en"
	Korean   Code = "ko"
	Japanese Code = "ja"
	Chinese  Code = "zh"
)

// ErrUnsupported is returned by Parse for values outside the supported set.
var ErrUnsupported = errors.New("unsupported language")

type info struct {
	nllb   string
	name   string
	native string
	tag    language.Tag
}

var table = map[Code]info{
	English:  {nllb: "eng_Latn", name: "English", native: "English", tag: language.English},
	Korean:   {nllb: "kor_Hang", name: "Korean", native: "한국어", tag: language.Korean},
	Japanese: {nllb: "jpn_Jpan", name: "Japanese", native: "日本語", tag: language.Japanese},
	Chinese:  {nllb: "zho_Hans", name: "Chinese", native: "中文", tag: language.SimplifiedChinese},
}

var ordered = []Code{English, Korean, Japanese, Chinese}

// Supported returns the supported codes in a stable order.
func Supported() []Code {
	out := make([]Code, len(ordered))
	copy(out, ordered)
	return out
}

// SupportedStrings returns the supported codes as plain strings.
func SupportedStrings() []string {
	out := make([]string, 0, len(ordered))
	for _, c := range ordered {
		out = append(out, string(c))
	}
	return out
}

// Parse converts user input into a Code. It accepts the two-letter codes,
// BCP-47 tags such as "ko-KR" or "zh_Hant" and NLLB codes such as "kor_Hang".
// The empty string parses to Unknown without error.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown, nil
	}

	lower := strings.ToLower(s)
	if _, ok := table[Code(lower)]; ok {
		return Code(lower), nil
	}
	for c, inf := range table {
		if strings.EqualFold(inf.nllb, s) {
			return c, nil
		}
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return Unknown, unsupported(s)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return Unknown, unsupported(s)
	}
	c := Code(base.String())
	if !c.IsSupported() {
		return Unknown, unsupported(s)
	}
	return c, nil
}

func unsupported(s string) error {
	return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, s, strings.Join(SupportedStrings(), ", "))
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsSupported reports whether c is one of the four supported codes.
func (c Code) IsSupported() bool {
	_, ok := table[c]
	return ok
}

// NLLB returns the NLLB-200 language token, e.g. "kor_Hang".
func (c Code) NLLB() string {
	return table[c].nllb
}

// Name returns the English display name.
func (c Code) Name() string {
	if c == Unknown {
		return "Unknown"
	}
	if inf, ok := table[c]; ok {
		return inf.name
	}
	return string(c)
}

// NativeName returns the language's own name for itself.
func (c Code) NativeName() string {
	if inf, ok := table[c]; ok {
		return inf.native
	}
	return c.Name()
}

// Tag returns the BCP-47 tag for c, or language.Und.
func (c Code) Tag() language.Tag {
	if inf, ok := table[c]; ok {
		return inf.tag
	}
	return language.Und
}

func (c Code) String() string {
	if c == Unknown {
		return "unknown"
	}
	return string(c)
}

// NLLBCodes maps each supported code to its NLLB token.
func NLLBCodes() map[string]string {
	out := make(map[string]string, len(table))
	for c, inf := range table {
		out[string(c)] = inf.nllb
	}
	return out
}
