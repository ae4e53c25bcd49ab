package route

import (
	"testing"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genCode() gopter.Gen {
	return gen.OneConstOf(lang.Unknown, lang.English, lang.Korean, lang.Japanese, lang.Chinese)
}

// TestResolve_SourceNeverEqualsTarget verifies no successful resolution has
// identical languages on both sides.
func TestResolve_SourceNeverEqualsTarget(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("resolved source differs from target", prop.ForAll(
		func(text string, auto bool, src, tgt lang.Code) bool {
			dir, err := Resolve(text, Policy{AutoDetect: auto, Source: src, Target: tgt})
			if err != nil {
				_, ok := IsInvalidDirection(err)
				return ok
			}
			return dir.Source != dir.Target && dir.Source.IsSupported() && dir.Target.IsSupported()
		},
		gen.AnyString(),
		gen.Bool(),
		genCode(),
		genCode(),
	))

	properties.TestingRun(t)
}

// TestResolve_ExplicitWithoutSourceFails verifies explicit mode needs a source.
func TestResolve_ExplicitWithoutSourceFails(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("explicit mode without source is rejected", prop.ForAll(
		func(text string, tgt lang.Code) bool {
			_, err := Resolve(text, Policy{Target: tgt})
			de, ok := IsInvalidDirection(err)
			return ok && de.Reason == ReasonSourceRequired
		},
		gen.AnyString(),
		genCode(),
	))

	properties.TestingRun(t)
}

// TestResolve_DefaultTargetIsPartner verifies an unset target falls back to the
// source's default partner.
func TestResolve_DefaultTargetIsPartner(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("unset target uses default partner", prop.ForAll(
		func(src lang.Code) bool {
			if src == lang.Unknown {
				return true
			}
			dir, err := Resolve("text", Policy{Source: src})
			return err == nil && dir.Target == DefaultPartner(src)
		},
		genCode(),
	))

	properties.TestingRun(t)
}
