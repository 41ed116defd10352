package model

// View is a read-only, possibly filtered window over a session's events.
// It references the underlying session rather than copying it; an empty
// view is valid and renders to a valid near-empty document.
type View struct {
	session   *Session
	positions []int
}

// All returns a view covering every event of the session in order.
func (s *Session) All() View {
	positions := make([]int, len(s.Events))
	for i := range s.Events {
		positions[i] = i
	}
	return View{session: s, positions: positions}
}

// Subset returns a view restricted to the given 1-based event indices.
// Indices outside 1..len(Events) are ignored; order is preserved as given.
func (s *Session) Subset(indices []int) View {
	positions := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > len(s.Events) {
			continue
		}
		positions = append(positions, idx-1)
	}
	return View{session: s, positions: positions}
}

// Session returns the session this view was derived from.
func (v View) Session() *Session { return v.session }

// Len returns the number of events visible through the view.
func (v View) Len() int { return len(v.positions) }

// At returns the i-th visible event (0-based position within the view).
func (v View) At(i int) Event { return v.session.Events[v.positions[i]] }

// Events materializes the visible events in view order.
func (v View) Events() []Event {
	events := make([]Event, len(v.positions))
	for i, pos := range v.positions {
		events[i] = v.session.Events[pos]
	}
	return events
}
