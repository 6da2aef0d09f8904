package domain

import (
	"testing"
)

func countCards(deck []PolicyCard) (liberal, fascist int) {
	for _, c := range deck {
		if c == PolicyLiberal {
			liberal++
		} else {
			fascist++
		}
	}
	return liberal, fascist
}

func TestRebuildDeckFullEconomy(t *testing.T) {
	sess := NewSession("deck-test", 10, false)
	sess.RebuildDeck()

	if len(sess.Deck) != TotalPolicyCards {
		t.Fatalf("deck size = %d, want %d", len(sess.Deck), TotalPolicyCards)
	}
	liberal, fascist := countCards(sess.Deck)
	if liberal != TotalLiberalCards {
		t.Fatalf("liberal cards = %d, want %d", liberal, TotalLiberalCards)
	}
	if fascist != TotalPolicyCards-TotalLiberalCards {
		t.Fatalf("fascist cards = %d, want %d", fascist, TotalPolicyCards-TotalLiberalCards)
	}
}

func TestRebuildDeckExcludesEnacted(t *testing.T) {
	sess := NewSession("deck-test", 10, false)
	sess.EnactedLiberal = 2
	sess.EnactedFascist = 3
	sess.RebuildDeck()

	if len(sess.Deck) != 12 {
		t.Fatalf("deck size = %d, want 12", len(sess.Deck))
	}
	liberal, fascist := countCards(sess.Deck)
	if liberal != 4 {
		t.Fatalf("liberal cards = %d, want 4", liberal)
	}
	if fascist != 8 {
		t.Fatalf("fascist cards = %d, want 8", fascist)
	}
}

func TestDrawPoliciesReshufflesBelowReserve(t *testing.T) {
	sess := NewSession("deck-test", 10, false)
	sess.RebuildDeck()

	// Draw down to four cards, then take three: the two leftover cards
	// must be folded back into a full-size rebuild.
	sess.DrawPolicies(13)
	if len(sess.Deck) != 4 {
		t.Fatalf("deck size = %d, want 4", len(sess.Deck))
	}
	sess.DrawPolicies(3)
	if len(sess.Deck) != TotalPolicyCards {
		t.Fatalf("deck size after reshuffle = %d, want %d", len(sess.Deck), TotalPolicyCards)
	}
}

func TestPeekPoliciesDoesNotConsume(t *testing.T) {
	sess := NewSession("deck-test", 10, false)
	sess.RebuildDeck()

	peeked := sess.PeekPolicies()
	if len(peeked) != DeckReserve {
		t.Fatalf("peeked = %d cards, want %d", len(peeked), DeckReserve)
	}
	if len(sess.Deck) != TotalPolicyCards {
		t.Fatalf("deck size after peek = %d, want %d", len(sess.Deck), TotalPolicyCards)
	}

	drawn := sess.DrawPolicies(DeckReserve)
	for i := range peeked {
		if drawn[i] != peeked[i] {
			t.Fatalf("drawn[%d] = %d, want peeked %d", i, drawn[i], peeked[i])
		}
	}
}

func TestDrawPoliciesUnderflowPanics(t *testing.T) {
	sess := NewSession("deck-test", 10, false)
	sess.RebuildDeck()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on deck underflow")
		}
	}()
	sess.DrawPolicies(TotalPolicyCards + 1)
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := NewSession("same-seed", 10, false)
	b := NewSession("same-seed", 10, false)
	a.RebuildDeck()
	b.RebuildDeck()

	for i := range a.Deck {
		if a.Deck[i] != b.Deck[i] {
			t.Fatalf("deck[%d] differs between identical seeds", i)
		}
	}
}
