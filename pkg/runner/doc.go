/*
Package runner drives a running group from a stream of messages.

It acts as the bridge between a group (or a persisted session) and the outside world.
An IOHandler reads requests and writes results; the Runner feeds every message through
its interceptors, dispatches it and reports the change-set.

# Key Components

  - Runner: the read, dispatch and report loop.
  - Dispatcher: a running group (NewGroupDispatcher) or a stored session (NewSessionDispatcher).
  - TextHandler: interactive line input, e.g. "OPEN skipOpening=true".
  - JSONHandler: newline-delimited JSON for scripts and other processes.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, runner.NewGroupDispatcher(group)); err != nil {
		log.Fatal(err)
	}
*/
package runner
