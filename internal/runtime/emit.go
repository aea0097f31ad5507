package runtime

import "github.com/aretw0/chatflow/pkg/domain"

// emitFor appends the transcript event a node produces when reached.
//
//	start              nothing, or a message when it carries text
//	message            message, verbatim
//	condition          annotation, verbatim
//	action             annotation, "[Action] " + text
//	input, question    message, verbatim
func (r *Run) emitFor(n domain.Node) {
	switch n.Kind {
	case domain.KindStart:
		if n.Text != "" {
			r.append(domain.EventMessage, n.ID, n.Text)
		}
	case domain.KindMessage, domain.KindInput, domain.KindQuestion:
		r.append(domain.EventMessage, n.ID, n.Text)
	case domain.KindCondition:
		r.append(domain.EventAnnotation, n.ID, n.Text)
	case domain.KindAction:
		r.append(domain.EventAnnotation, n.ID, domain.ActionPrefix+n.Text)
	}
}

// append adds an event to the transcript and schedules its delivery.
// User events are delivered without delay, but never ahead of earlier events.
func (r *Run) append(kind domain.EventKind, nodeID, text string) {
	ev := domain.Event{
		Seq:    len(r.transcript) + 1,
		Kind:   kind,
		NodeID: nodeID,
		Text:   text,
		At:     r.now(),
	}
	r.transcript = append(r.transcript, ev)

	delay := r.delay
	if kind == domain.EventUser {
		delay = 0
	}
	r.outbox.push(ev, delay)
}
