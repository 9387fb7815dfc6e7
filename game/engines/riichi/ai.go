package riichi

// Decider picks a move for a seat the server acts for: AI seats and seats
// whose turn timer expired.
type Decider interface {
	Decide(gs GameState, seat int) (Action, bool)
}

// Tsumogiri is the stand-in strategy: it never calls, never declares, and
// discards whatever was just drawn. Predictable on purpose, so a replaced
// player's hand loses as little as possible to surprises.
type Tsumogiri struct {
	engine *Engine
}

func NewTsumogiri(e *Engine) *Tsumogiri { return &Tsumogiri{engine: e} }

func (t *Tsumogiri) Decide(gs GameState, seat int) (Action, bool) {
	return t.engine.DefaultAction(gs, seat)
}
