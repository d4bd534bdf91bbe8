package workout

// Clone copies the workout and everything it owns into dst, keeping
// identities and timestamps. dst must not already hold any of them.
func (w *Workout) Clone(dst *Model) *Workout {
	c := dst.mustCreateWithID(KindWorkout, w.Meta).(*Workout)
	c.name, c.archived = w.name, w.archived
	for _, p := range w.Parts() {
		_ = c.Add(clonePart(dst, p))
	}
	dst.ClearModified()
	return c
}

func clonePart(dst *Model, p Part) Part {
	switch p := p.(type) {
	case *Rest:
		r := dst.mustCreateWithID(KindRest, p.Meta).(*Rest)
		r.duration = p.duration
		return r
	case *Exercise:
		return cloneExercise(dst, p)
	case *Circuit:
		c := dst.mustCreateWithID(KindCircuit, p.Meta).(*Circuit)
		for _, member := range p.Members() {
			_ = c.Add(clonePart(dst, member))
		}
		return c
	case *Choice:
		c := dst.mustCreateWithID(KindChoice, p.Meta).(*Choice)
		c.lastChosen = p.lastChosen
		for _, alt := range p.Alternatives() {
			_ = c.Add(cloneExercise(dst, alt))
		}
		return c
	}
	return nil
}

func cloneExercise(dst *Model, e *Exercise) *Exercise {
	c := dst.mustCreateWithID(KindExercise, e.Meta).(*Exercise)
	c.name, c.hasCircuitRest = e.name, e.hasCircuitRest
	for _, s := range e.Sets() {
		cs := dst.mustCreateWithID(KindSet, s.Meta).(*Set)
		cs.reps, cs.weight, cs.rest = s.reps, s.weight, s.rest
		_ = c.AddSet(cs)
	}
	return c
}

func (m *Model) mustCreateWithID(kind Kind, meta Meta) Entity {
	e, err := m.Create(kind, meta.ID)
	if err != nil {
		panic(err)
	}
	*e.Metadata() = meta
	return e
}
