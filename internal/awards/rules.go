package awards

import "fmt"

// Rule selects the winners of one award from aggregated totals.
type Rule struct {
	Type        AwardType
	Kind        Kind
	Name        string
	Description string
	Evaluate    func(Aggregated) []Winner
}

// rules is the fixed award table, in display order.
var rules = []Rule{
	{PlayerOfTheWeek, KindWeekly, "Player of the Week", "Most points scored in the week", playerOfTheWeek},
	{QuarterlyFirepower, KindWeekly, "Quarterly Firepower", "Most points scored in a single quarter during the week", quarterlyFirepower},
	{WeeklyFTKing, KindWeekly, "Weekly FT King", "Most free throws made in the week", weeklyFTKing},
	{TriggerFinger, KindWeekly, "Trigger Finger", "Most field goal attempts in the week", triggerFinger},
	{WeeklyWhiffer, KindWeekly, "Weekly Whiffer", "Most missed shots of any kind in the week", weeklyWhiffer},
	{HotHandWeekly, KindWeekly, "Hot Hand Weekly", "Best field goal percentage in the week, minimum 10 attempts", hotHandWeekly},
	{ClutchMan, KindWeekly, "Clutch-Man", "Most made shots in fourth quarters during the week", clutchMan},

	{TopScorer, KindSeason, "Top Scorer", "Most points scored in the season", topScorer},
	{CharityStripeRegular, KindSeason, "Charity Stripe Regular", "Most free throw attempts in the season", charityStripeRegular},
	{HumanHighlightReel, KindSeason, "Human Highlight Reel", "Most made shots of any kind in the season", humanHighlightReel},
	{DefensiveTackle, KindSeason, "Defensive Tackle", "Most personal fouls in the season", defensiveTackle},
	{AirBallArtist, KindSeason, "Air Ball Artist", "Most missed three-pointers in the season", airBallArtist},
	{AirAssault, KindSeason, "Air Assault", "Most field goal attempts in the season", airAssault},
	{Sharpshooter, KindSeason, "Sharpshooter", "Best three-point percentage above a bar set by the top ten three-point makers", sharpshooter},
	{EfficiencyExpert, KindSeason, "Efficiency Expert", "Best field goal percentage above a bar set by the top ten field goal makers", efficiencyExpert},
}

var rulesByType = func() map[AwardType]Rule {
	m := make(map[AwardType]Rule, len(rules))
	for _, r := range rules {
		m[r.Type] = r
	}
	return m
}()

// Lookup returns the rule for an award type.
func Lookup(t AwardType) (Rule, error) {
	r, ok := rulesByType[t]
	if !ok {
		return Rule{}, fmt.Errorf("%q: %w", t, ErrUnknownAwardType)
	}
	return r, nil
}

// ParseAwardType validates a persisted or user-supplied award type string.
func ParseAwardType(s string) (AwardType, error) {
	r, err := Lookup(AwardType(s))
	if err != nil {
		return "", err
	}
	return r.Type, nil
}

// TypesOf lists the award types of one kind in display order.
func TypesOf(kind Kind) []AwardType {
	var out []AwardType
	for _, r := range rules {
		if r.Kind == kind {
			out = append(out, r.Type)
		}
	}
	return out
}

// CatalogueEntry describes an award for API consumers.
type CatalogueEntry struct {
	Type        AwardType `json:"type"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Catalogue returns every award in display order.
func Catalogue() []CatalogueEntry {
	out := make([]CatalogueEntry, 0, len(rules))
	for _, r := range rules {
		out = append(out, CatalogueEntry{Type: r.Type, Kind: r.Kind, Name: r.Name, Description: r.Description})
	}
	return out
}
