package workout

// ParentHierarchy returns the composite ancestors of the part, innermost
// first, stopping below the root workout.
func (p *partBase) ParentHierarchy() []Part {
	var chain []Part
	cur := p
	for cur.parent.Kind == ParentCircuit || cur.parent.Kind == ParentChoice {
		owner := cur.model.parts[cur.parent.ID]
		if owner == nil {
			break
		}
		chain = append(chain, owner)
		cur = owner.base()
	}
	return chain
}

// IsInCircuit reports whether a circuit is among the ancestors.
func (p *partBase) IsInCircuit() bool {
	_, _, ok := p.CircuitStatus()
	return ok
}

// IsInChoice reports whether a choice is among the ancestors.
func (p *partBase) IsInChoice() bool {
	_, _, ok := p.ChoiceStatus()
	return ok
}

// CircuitStatus returns the 1-based position and member count within the
// innermost enclosing circuit.
func (p *partBase) CircuitStatus() (pos, total int, ok bool) {
	return p.statusIn(KindCircuit)
}

// ChoiceStatus returns the 1-based position and alternative count within the
// innermost enclosing choice.
func (p *partBase) ChoiceStatus() (pos, total int, ok bool) {
	return p.statusIn(KindChoice)
}

func (p *partBase) statusIn(kind Kind) (pos, total int, ok bool) {
	child := p.order
	for _, anc := range p.ParentHierarchy() {
		if anc.Kind() == kind {
			return int(child) + 1, len(childIDs(anc)), true
		}
		child = anc.Order()
	}
	return 0, 0, false
}

// RestStatus tells which set rests apply to the exercise. Outside a circuit
// every rest but the final one is honored (rests between parts are explicit
// Rest parts). Inside a circuit rests apply only with HasCircuitRest, and the
// final round's rest only for the last member of the circuit.
func (e *Exercise) RestStatus() (hasGlobalRest, isLastWithExplicitRest bool) {
	pos, total, inCircuit := e.CircuitStatus()
	if !inCircuit {
		return true, false
	}
	return e.hasCircuitRest, e.hasCircuitRest && pos == total
}

// Choices lists the choices in the order an execution expects their
// selections: root-level parts first to last, descending into circuits.
func (w *Workout) Choices() []*Choice {
	var out []*Choice
	for _, p := range w.Parts() {
		switch p := p.(type) {
		case *Choice:
			out = append(out, p)
		case *Circuit:
			for _, member := range p.Members() {
				if ch, ok := member.(*Choice); ok {
					out = append(out, ch)
				}
			}
		}
	}
	return out
}
