package trigger

import (
	"math"
	"sort"
)

// Selection maps trigger name to the final candidates selected under it.
type Selection map[string][]Scored

// applyAgentFit derives stop/target/risk-reward and the agent-fit score
// for one candidate.
func applyAgentFit(s *Scored) {
	price := s.Close
	atrPct := math.Max(s.ATRPct, 0)
	volumeRatio := math.Max(s.VolumeRatio20, 0)

	stopLossPct := clamp(1.2*atrPct, 0.02, 0.06)
	targetPct := math.Max(2*stopLossPct, 0.05)

	s.StopLossPct = stopLossPct
	s.TargetPct = targetPct
	s.RiskRewardRatio = targetPct / stopLossPct
	s.StopLossPrice = price * (1 - stopLossPct)
	s.TargetPrice = price * (1 + targetPct)

	rrScore := math.Min(s.RiskRewardRatio/2.0, 1.0)
	liqScore := math.Min(volumeRatio/2.5, 1.0)
	s.AgentFitScore = rrScore*0.65 + liqScore*0.35
}

// hybridRank attaches agent-fit metrics and the hybrid final score to one
// trigger's candidates and re-sorts by final_score descending.
func hybridRank(candidates []Scored) []Scored {
	out := make([]Scored, len(candidates))
	copy(out, candidates)

	lo, hi := out[0].CompositeScore, out[0].CompositeScore
	for _, c := range out[1:] {
		if c.CompositeScore < lo {
			lo = c.CompositeScore
		}
		if c.CompositeScore > hi {
			hi = c.CompositeScore
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1.0
	}

	for i := range out {
		applyAgentFit(&out[i])
		out[i].CompositeNorm = (out[i].CompositeScore - lo) / span
		out[i].FinalScore = out[i].CompositeNorm*0.3 + out[i].AgentFitScore*0.7
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out
}

// SelectFinal picks the final candidate set across triggers without symbol
// duplication, under a global position cap.
//
// Pass 1 takes the best unselected symbol from each trigger in fixed
// order. Pass 2 pools everything left and fills remaining slots by global
// final_score.
func SelectFinal(triggers map[string][]Scored, maxPositions int) Selection {
	ranked := make(map[string][]Scored, len(triggers))
	names := make([]string, 0, len(triggers))
	for _, name := range Order {
		candidates := triggers[name]
		if len(candidates) == 0 {
			continue
		}
		ranked[name] = hybridRank(candidates)
		names = append(names, name)
	}
	if len(ranked) == 0 {
		return nil
	}

	final := make(Selection)
	selected := make(map[string]bool)

	for _, name := range names {
		for _, c := range ranked[name] {
			if selected[c.Symbol] {
				continue
			}
			final[name] = append(final[name], c)
			selected[c.Symbol] = true
			break
		}
		if len(selected) >= maxPositions {
			return final
		}
	}

	type pooled struct {
		trigger   string
		candidate Scored
	}
	pool := make([]pooled, 0)
	for _, name := range names {
		for _, c := range ranked[name] {
			if selected[c.Symbol] {
				continue
			}
			pool = append(pool, pooled{trigger: name, candidate: c})
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].candidate.FinalScore > pool[j].candidate.FinalScore
	})

	for _, p := range pool {
		if len(selected) >= maxPositions {
			break
		}
		if selected[p.candidate.Symbol] {
			continue
		}
		final[p.trigger] = append(final[p.trigger], p.candidate)
		selected[p.candidate.Symbol] = true
	}

	return final
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
