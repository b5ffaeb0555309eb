package musicbrainz

// MusicBrainz API response types.

// SearchResponse is the top-level response from the artist search endpoint.
type SearchResponse struct {
	Created string     `json:"created"`
	Count   int        `json:"count"`
	Offset  int        `json:"offset"`
	Artists []MBArtist `json:"artists"`
}

// MBArtist represents a MusicBrainz artist entity. Which of the nested lists
// are populated depends on the include flags of the lookup.
type MBArtist struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	SortName       string           `json:"sort-name"`
	Type           string           `json:"type"`
	Disambiguation string           `json:"disambiguation"`
	Country        string           `json:"country"`
	Score          int              `json:"score"`
	LifeSpan       MBLifeSpan       `json:"life-span"`
	Aliases        []MBAlias        `json:"aliases"`
	Rating         *MBRating        `json:"rating"`
	Tags           []MBTag          `json:"tags"`
	Genres         []MBGenre        `json:"genres"`
	ReleaseGroups  []MBReleaseGroup `json:"release-groups"`
}

// MBLifeSpan is the begin/end of an artist's activity. Dates may be
// partial ("1985" or "1985-04").
type MBLifeSpan struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
	Ended bool   `json:"ended"`
}

// MBAlias is an alternative name.
type MBAlias struct {
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
	Locale   string `json:"locale"`
	Primary  bool   `json:"primary"`
}

// MBRating is the community rating. Value is null when nobody has voted.
type MBRating struct {
	Value      *float64 `json:"value"`
	VotesCount int      `json:"votes-count"`
}

// MBTag represents a user-submitted tag.
type MBTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MBGenre represents a genre classification.
type MBGenre struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MBReleaseGroup represents a MusicBrainz release group entity.
type MBReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
}
