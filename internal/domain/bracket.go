package domain

// Pure bracket arithmetic for balanced single-elimination trees. Bracket
// positions are 1-based within a round; positions 2k-1 and 2k feed the match
// at position k of the following round.

// FirstRoundPairs pairs participant ids in registration order. An odd
// trailing id is dropped; callers guarantee an even, power-of-two count.
func FirstRoundPairs(participantIDs []string) [][2]string {
	pairs := make([][2]string, 0, len(participantIDs)/2)
	for i := 1; i < len(participantIDs); i += 2 {
		pairs = append(pairs, [2]string{participantIDs[i-1], participantIDs[i]})
	}
	return pairs
}

// MatchesInRound returns how many matches round r holds for the bracket size.
func MatchesInRound(requiredPlayers, round int) int {
	return requiredPlayers >> round
}

// NextBracketPos returns the position in round r+1 fed by the given position.
func NextBracketPos(bracketPos int) int {
	return (bracketPos + 1) / 2
}

// WinnerSlot returns which player slot (1 or 2) of the next match the winner
// of the given bracket position fills: odd positions feed slot 1.
func WinnerSlot(bracketPos int) int {
	if bracketPos%2 == 1 {
		return 1
	}
	return 2
}
