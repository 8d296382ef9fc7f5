package normalization

import (
	"math"

	"football-feature-lab/internal/domain"
)

// Market feature names.
const (
	FeatMarketHomeEdge     = "market_home_edge"
	FeatMarketExpPtsHome   = "market_expected_points_home"
	FeatMarketExpPtsAway   = "market_expected_points_away"
	FeatMarketEntropy      = "market_entropy"
	FeatMarketLogitHome    = "market_logit_home"
	FeatMarketMaxProb      = "market_max_prob"
	FeatProbEdge           = "prob_edge"
	marketProbabilityCount = 3
)

// MarketColumns lists the features written by AddMarketFeatures.
var MarketColumns = []string{
	FeatMarketHomeEdge, FeatMarketExpPtsHome, FeatMarketExpPtsAway,
	FeatMarketEntropy, FeatMarketLogitHome, FeatMarketMaxProb, FeatProbEdge,
}

// MarketProbabilities clamps the three forecast probabilities to
// [eps, 1-eps] and rescales them to sum to 1. ok is false when any is missing.
func MarketProbabilities(home, draw, away *float64, eps float64) (ph, pd, pa float64, ok bool) {
	if home == nil || draw == nil || away == nil {
		return 0, 0, 0, false
	}
	p := [marketProbabilityCount]float64{
		clamp(*home, eps, 1-eps),
		clamp(*draw, eps, 1-eps),
		clamp(*away, eps, 1-eps),
	}
	total := p[0] + p[1] + p[2]
	return p[0] / total, p[1] / total, p[2] / total, true
}

// AddMarketFeatures replaces the forecast columns with their normalized
// values and derives edge, expected points, entropy, logit and max
// probability. Rows with any forecast missing get none of these features.
func AddMarketFeatures(rows []*domain.FixtureFeatureSet, cfg Config) {
	for _, fs := range rows {
		m := fs.Match
		ph, pd, pa, ok := MarketProbabilities(m.ForecastHome, m.ForecastDraw, m.ForecastAway, cfg.ProbEpsilon)
		if !ok {
			continue
		}
		v := fs.Values
		v[ColForecastHome] = ph
		v[ColForecastDraw] = pd
		v[ColForecastAway] = pa
		v[FeatMarketHomeEdge] = ph - pa
		v[FeatMarketExpPtsHome] = 3*ph + pd
		v[FeatMarketExpPtsAway] = 3*pa + pd
		v[FeatMarketEntropy] = -(ph*math.Log(ph) + pd*math.Log(pd) + pa*math.Log(pa))
		v[FeatMarketLogitHome] = math.Log(ph / pa)
		v[FeatMarketMaxProb] = math.Max(ph, math.Max(pd, pa))
		v[FeatProbEdge] = ph - pa
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
