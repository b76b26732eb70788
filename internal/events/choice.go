package events

import (
	"fmt"

	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/realm"
)

// AutoExpiredChoice marks events closed by the scheduler without a decision.
const AutoExpiredChoice = "auto-expired"

// ChoiceResult is the effect of taking one branch of an event.
type ChoiceResult struct {
	ChoiceID         string
	ResourceChanges  realm.Resources // cost (negative) merged with grant (positive)
	LoyaltyChange    int
	XPGain           int
	Message          string
	ScheduleFollowup bool
	FollowupEventID  string
	Effect           *EffectGrant
}

// ProcessChoice resolves choiceID against event. The follow-up is a
// Bernoulli draw against the choice's follow-up chance.
func ProcessChoice(choiceID string, event *GameEvent, src entropy.Source) (ChoiceResult, error) {
	c, ok := event.Choice(choiceID)
	if !ok {
		return ChoiceResult{}, fmt.Errorf("event %s choice %q: %w", event.ID, choiceID, ErrInvalidChoice)
	}

	changes := realm.Resources{}
	for r, amt := range c.Cost {
		changes[r] -= amt
	}
	for r, amt := range c.Outcome.Resources {
		changes[r] += amt
	}

	res := ChoiceResult{
		ChoiceID:        c.ID,
		ResourceChanges: changes.Compact(),
		LoyaltyChange:   c.Outcome.LoyaltyChange,
		XPGain:          c.Outcome.XPGain,
		Message:         c.Outcome.Message,
		FollowupEventID: c.Outcome.FollowupEventID,
		Effect:          c.Outcome.Effect,
	}
	res.ScheduleFollowup = entropy.Chance(src, c.Outcome.FollowupChance)
	return res, nil
}

// AffordableChoice returns the first choice whose cost the stock covers.
// Immediate events auto-resolve with it.
func AffordableChoice(event *GameEvent, stock realm.Resources) (*Choice, bool) {
	for i := range event.Choices {
		if stock.Covers(event.Choices[i].Cost) {
			return &event.Choices[i], true
		}
	}
	return nil, false
}
