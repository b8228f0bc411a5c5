package app

// PlayersPerMatch is the number of occupied seats a pong room needs before
// the game can start. Centralized so tests can reference the rule.
const PlayersPerMatch = 2
