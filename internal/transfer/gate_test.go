package transfer

import "testing"

func TestConsentGate_FirstRespondWins(t *testing.T) {
	g := newConsentGate()
	g.respond(true)
	g.respond(false) // must not overwrite

	select {
	case v := <-g.ch:
		if !v {
			t.Errorf("gate decision = %v, want true", v)
		}
	default:
		t.Fatal("gate channel was empty")
	}
}

func TestConsentGate_HeldDecisionBeforeAwait(t *testing.T) {
	g := newConsentGate()
	g.respond(false)

	v := <-g.ch
	if v {
		t.Errorf("gate decision = %v, want false", v)
	}
}
