package collector

import (
	"math/rand"
	"testing"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/stretchr/testify/require"
)

// Algebraic laws of the composites, checked over random trees and entities.

var lawTags = []string{"a", "b", "c", "d"}

func randomCollector(rng *rand.Rand, depth int) Collector {
	if depth == 0 || rng.Intn(3) == 0 {
		switch rng.Intn(3) {
		case 0:
			return Must(Tag(lawTags[rng.Intn(len(lawTags))]))
		case 1:
			return Must(Path(lawTags[rng.Intn(len(lawTags))]))
		default:
			return Must(Name(lawTags[rng.Intn(len(lawTags))] + "*"))
		}
	}
	switch rng.Intn(3) {
	case 0:
		return Must(And(randomCollector(rng, depth-1), randomCollector(rng, depth-1)))
	case 1:
		return Must(Or(randomCollector(rng, depth-1), randomCollector(rng, depth-1)))
	default:
		return Must(Not(randomCollector(rng, depth-1)))
	}
}

func randomEntity(rng *rand.Rand) *core.Entity {
	var tags []string
	for _, tag := range lawTags {
		if rng.Intn(2) == 0 {
			tags = append(tags, tag)
		}
	}
	id := lawTags[rng.Intn(len(lawTags))] + `\` + lawTags[rng.Intn(len(lawTags))] + "x"
	return entity(id, nil, tags)
}

func TestCompositeLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		a := randomCollector(rng, 3)
		b := randomCollector(rng, 3)
		e := randomEntity(rng)
		ma, mb := Matches(a, e), Matches(b, e)

		require.Equal(t, ma && mb, Matches(Must(And(a, b)), e), "and(%s, %s) on %s", a, b, e.ID)
		require.Equal(t, ma || mb, Matches(Must(Or(a, b)), e), "or(%s, %s) on %s", a, b, e.ID)
		require.Equal(t, !ma, Matches(Must(Not(a)), e), "not(%s) on %s", a, e.ID)
		require.Equal(t, ma, Matches(Must(Not(Must(Not(a)))), e), "double negation of %s", a)
		require.Equal(t, ma, Matches(Must(And(a)), e), "unary and of %s", a)
		require.Equal(t, ma, Matches(Must(Or(a)), e), "unary or of %s", a)

		// De Morgan
		require.Equal(t,
			Matches(Must(Not(Must(And(a, b)))), e),
			Matches(Must(Or(Must(Not(a)), Must(Not(b)))), e),
		)
	}
}
