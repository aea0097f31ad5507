/*
Package chatflow is a toolkit for designing conversational flows as directed graphs
and previewing them as simulated chats.

A flow is made of typed nodes (start, message, input, question, condition, action)
joined by directed connections. Authors edit the graph through an Editor, persist it as
a versioned snapshot, and run a Preview that walks the graph and produces a transcript.

# Concept

The preview is a state machine. From the start node it follows outgoing connections,
emitting one transcript event per node reached, until it reaches a node that asks the
user something (input or question) or a node with no way forward. A reply resumes the
walk. When a node has several outgoing connections one is picked at random: conditions
are labels, not predicates. Use WithBranchSelector to plug a deterministic policy.

Bot events become visible after a short delay, in transcript order, through Events.

# Usage

	ctx := context.Background()
	studio := chatflow.New(chatflow.WithDelay(300 * time.Millisecond))

	ed, err := studio.Open(ctx, "acme")
	if err != nil {
		log.Fatal(err)
	}

	hi, _ := ed.AddStep(domain.KindMessage)
	ed.SetText(hi.ID, "Hi")
	start, _ := ed.Snapshot().Start()
	if _, err := ed.Connect(start.ID, hi.ID); err != nil {
		log.Fatal(err)
	}

	if err := studio.Save(ctx, "acme", ed); err != nil {
		log.Fatal(err)
	}

	preview := studio.Preview(ed.Snapshot())
	defer preview.Close()

	if err := preview.Reset(ctx); err != nil {
		log.Fatal(err)
	}
	for ev := range preview.Events() {
		fmt.Println(ev.Text)
		if len(preview.Visible()) == len(preview.Transcript()) {
			break
		}
	}
*/
package chatflow
