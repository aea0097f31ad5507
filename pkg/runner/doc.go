/*
Package runner drives a chatflow preview over a pair of streams.

It is the bridge between a Preview and the outside world: events are handed to an
IOHandler as soon as they become visible, and replies are read back from it whenever
the preview waits for the user.

# Key Components

  - Runner: the loop that waits for delivery, asks for input and submits replies.
  - IOHandler: decouples how events are shown and replies are read.
  - TextHandler: interactive terminal usage, with optional markdown rendering.
  - JSONHandler: one JSON object per line, for scripting and tests.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, preview); err != nil {
		log.Fatal(err)
	}
*/
package runner
