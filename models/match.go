package models

// MatchStatus is the match-data feed's view of a match
type MatchStatus string

const (
	MatchStatusUpcoming MatchStatus = "upcoming"
	MatchStatusLive     MatchStatus = "live"
	MatchStatusFinished MatchStatus = "finished"
	MatchStatusVoided   MatchStatus = "voided"
	MatchStatusUnknown  MatchStatus = "unknown"
)

// Match is the subset of feed data the core needs for bet validation and
// display. IDs are the feed's match page paths, normalized by the feed client.
type Match struct {
	ID     string
	Event  string
	Series string
	Team1  string
	Team2  string
	Status MatchStatus
	Winner string
}

// IsOpenForBets checks whether new bets may be placed on the match
func (m *Match) IsOpenForBets() bool {
	return m.Status == MatchStatusUpcoming
}
