package transfer

import "sync"

// consentGate is a single-shot notifier: the first call to respond
// wins, every subsequent call is a silent no-op, and an await that
// arrives after respond already fired still observes the decision —
// the channel is buffered by one, so a decision made before anyone is
// waiting is simply held until the first receive.
type consentGate struct {
	once sync.Once
	ch   chan bool
}

func newConsentGate() *consentGate {
	return &consentGate{ch: make(chan bool, 1)}
}

// respond records accepted as the gate's decision. Only the first
// call has any effect.
func (g *consentGate) respond(accepted bool) {
	g.once.Do(func() {
		g.ch <- accepted
	})
}
