package qa

// PickBest selects one candidate from an already-fetched list. No I/O. Ties
// keep the first-seen candidate so the choice stays deterministic. Unknown
// policies fall back to the first candidate, which is the nearest match for
// lists produced by FindCandidates.
func PickBest(candidates []Candidate, policy SelectionPolicy) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	best := candidates[0]
	switch policy {
	case PolicySimilarity:
		for _, c := range candidates[1:] {
			if c.Score > best.Score {
				best = c
			}
		}
	case PolicyRecency:
		for _, c := range candidates[1:] {
			if c.Record.AnswerTime.After(best.Record.AnswerTime) {
				best = c
				continue
			}
			if c.Record.AnswerTime.Equal(best.Record.AnswerTime) && c.Score > best.Score {
				best = c
			}
		}
	case PolicyLongest:
		for _, c := range candidates[1:] {
			if len(c.Record.AnswerText) > len(best.Record.AnswerText) {
				best = c
				continue
			}
			if len(c.Record.AnswerText) == len(best.Record.AnswerText) && c.Score > best.Score {
				best = c
			}
		}
	}
	return best, true
}
