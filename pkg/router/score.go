package router

import (
	"github.com/vango-dev/routekit/pkg/routepath"
)

// Per-segment weights. Higher ranks first at the same position.
const (
	staticScore      = 1.0
	indexScore       = 0.75
	requiredScore    = 0.5
	optionalScore    = 0.4
	splatScore       = 0.25
	staticAfterBonus = 0.2

	bothAffixBonus = 0.05
	prefixBonus    = 0.02
	suffixBonus    = 0.01
	prefixLenBonus = 0.0002
	suffixLenBonus = 0.0001
)

// scorePattern scores a full chain pattern. A param followed anywhere later
// by a literal segment gets staticAfterBonus, and staticAfter reports
// whether that happened at all.
func scorePattern(segs []routepath.Segment) (scores []float64, optionals int, staticAfter bool) {
	scores = make([]float64, len(segs))
	for i, s := range segs {
		var base float64
		switch s.Kind {
		case routepath.Static:
			scores[i] = staticScore
			continue
		case routepath.Index:
			scores[i] = indexScore
			continue
		case routepath.Param:
			base = requiredScore
		case routepath.Optional:
			base = optionalScore
			optionals++
		case routepath.Splat:
			base = splatScore
		}
		for _, next := range segs[i+1:] {
			if next.Kind == routepath.Static {
				base += staticAfterBonus
				staticAfter = true
				break
			}
		}
		scores[i] = affixScore(s, base)
	}
	return scores, optionals, staticAfter
}

func affixScore(s routepath.Segment, base float64) float64 {
	switch {
	case s.Prefix != "" && s.Suffix != "":
		return base + bothAffixBonus + prefixLenBonus*float64(len(s.Prefix)) + suffixLenBonus*float64(len(s.Suffix))
	case s.Prefix != "":
		return base + prefixBonus + prefixLenBonus*float64(len(s.Prefix))
	case s.Suffix != "":
		return base + suffixBonus + suffixLenBonus*float64(len(s.Suffix))
	default:
		return base
	}
}

// compareCandidates orders a before b (negative), after b (positive) or
// equal (zero). Rules, first difference wins:
//
//  1. Scores over the common prefix of the two patterns, higher first. A
//     literal beats an index, which beats a required param, an optional
//     param and a splat, in that order.
//  2. Patterns of different length: fewer optional params first, unless
//     exactly one has a literal after its params, which then goes first.
//     Otherwise the longer pattern goes first.
//  3. Fewer skipped optional params first, so consuming a segment beats
//     skipping it.
//  4. Discovery order: declaration order, depth first.
func compareCandidates(a, b *Candidate) int {
	as, bs := a.node.scores, b.node.scores
	n := min(len(as), len(bs))
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			if as[i] > bs[i] {
				return -1
			}
			return 1
		}
	}

	if len(as) != len(bs) {
		ao, bo := a.node.optionals, b.node.optionals
		if ao != bo {
			switch {
			case a.node.staticAfter == b.node.staticAfter:
				return ao - bo
			case a.node.staticAfter:
				return -1
			default:
				return 1
			}
		}
		return len(bs) - len(as)
	}

	if a.Skipped != b.Skipped {
		return a.Skipped - b.Skipped
	}
	return a.Order - b.Order
}
