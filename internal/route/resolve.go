// Package route decides which language pair a translation request uses and
// hands the resolved request to a translation backend.
package route

import (
	"github.com/MeKo-Tech/lotra/internal/detect"
	"github.com/MeKo-Tech/lotra/internal/lang"
)

// Policy controls how the direction of a request is chosen. A zero Source or
// Target means "unset".
type Policy struct {
	AutoDetect bool      `json:"auto_detect"`
	Source     lang.Code `json:"src_lang,omitempty"`
	Target     lang.Code `json:"tgt_lang,omitempty"`
}

// AutoPolicy returns a policy that detects the source language.
func AutoPolicy() Policy {
	return Policy{AutoDetect: true}
}

// Direction is a resolved (source, target) pair. Detected is set only when
// the source came from auto-detection.
type Direction struct {
	Source   lang.Code `json:"src_lang"`
	Target   lang.Code `json:"tgt_lang"`
	Detected lang.Code `json:"detected_lang,omitempty"`
}

// Request is a fully resolved unit of work for a backend.
// Source and Target always differ.
type Request struct {
	Text   string
	Source lang.Code
	Target lang.Code
}

// Korean and English pair with each other. Japanese and Chinese only default
// toward English.
var defaultPartners = map[lang.Code]lang.Code{
	lang.Korean:   lang.English,
	lang.English:  lang.Korean,
	lang.Japanese: lang.English,
	lang.Chinese:  lang.English,
}

// DefaultPartner returns the default target for source, or lang.Unknown if
// source is not supported.
func DefaultPartner(source lang.Code) lang.Code {
	return defaultPartners[source]
}

// Resolve determines the direction for text under policy p.
func Resolve(text string, p Policy) (Direction, error) {
	if p.AutoDetect {
		src := detect.Detect(text)
		if src == lang.Unknown {
			return Direction{}, &InvalidDirectionError{Reason: ReasonUndetectable}
		}
		return Direction{Source: src, Target: DefaultPartner(src), Detected: src}, nil
	}

	if p.Source == lang.Unknown {
		return Direction{}, &InvalidDirectionError{Reason: ReasonSourceRequired, Target: p.Target}
	}
	if !p.Source.IsSupported() || (p.Target != lang.Unknown && !p.Target.IsSupported()) {
		return Direction{}, &InvalidDirectionError{Reason: ReasonUnsupported, Source: p.Source, Target: p.Target}
	}

	tgt := p.Target
	if tgt == lang.Unknown {
		tgt = DefaultPartner(p.Source)
	}
	if tgt == p.Source {
		return Direction{}, &InvalidDirectionError{Reason: ReasonSameLanguage, Source: p.Source, Target: tgt}
	}
	return Direction{Source: p.Source, Target: tgt}, nil
}
