package domain

import "fmt"

// PolicyCard is one of the two policy kinds in the draw pile.
type PolicyCard int

const (
	PolicyLiberal PolicyCard = 0
	PolicyFascist PolicyCard = 1
)

const (
	// TotalPolicyCards is the full card economy across deck and enacted piles.
	TotalPolicyCards = 17
	// TotalLiberalCards is the liberal share of the full economy.
	TotalLiberalCards = 6
	// DeckReserve is the minimum deck size; drawing below it triggers a reshuffle.
	DeckReserve = 3
)

// RebuildDeck reassembles the draw pile from the unplayed-card budget and
// shuffles it. Called unconditionally at session start and whenever a draw
// leaves fewer than DeckReserve cards.
func (s *Session) RebuildDeck() {
	remaining := TotalPolicyCards - s.EnactedFascist - s.EnactedLiberal
	liberals := TotalLiberalCards - s.EnactedLiberal

	deck := make([]PolicyCard, remaining)
	for i := range deck {
		if i < liberals {
			deck[i] = PolicyLiberal
		} else {
			deck[i] = PolicyFascist
		}
	}
	s.Rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	s.Deck = deck
}

// PeekPolicies returns the top DeckReserve cards without removing them.
func (s *Session) PeekPolicies() []PolicyCard {
	return append([]PolicyCard(nil), s.Deck[:DeckReserve]...)
}

// DrawPolicies removes and returns the top n cards, rebuilding the deck if
// the draw leaves fewer than DeckReserve. The deck is sized to the
// unplayed-card budget, so underflow is a programming error.
func (s *Session) DrawPolicies(n int) []PolicyCard {
	if n > len(s.Deck) {
		panic(fmt.Sprintf("policy deck underflow: draw %d of %d", n, len(s.Deck)))
	}
	out := append([]PolicyCard(nil), s.Deck[:n]...)
	s.Deck = s.Deck[n:]
	if len(s.Deck) < DeckReserve {
		s.RebuildDeck()
	}
	return out
}

// DrawPolicy removes and returns the top card.
func (s *Session) DrawPolicy() PolicyCard {
	return s.DrawPolicies(1)[0]
}
