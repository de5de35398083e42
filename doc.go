/*
Package scriptdeck launches named shell scripts from a managed panel, tracks
each script's run state, and terminates runs safely, gating dangerous
invocations behind confirmation.

The core is the execution lifecycle: each script identity maps to at most
one live run, runs are multiplexed across reusable terminal sessions, and
completion is inferred without access to a true process exit signal when the
execution surface is an opaque terminal.

# Architecture

The lifecycle manager (pkg/lifecycle) orchestrates four collaborators:

  - pkg/gate evaluates a candidate command against whitelist, blacklist,
    built-in destructive patterns, and suspicious heuristics.
  - pkg/pool owns the reusable execution surfaces and their reuse policy.
  - pkg/infer decides when a run leaves the running state, from the surface
    closing or a bounded quiet delay, whichever fires first.
  - adapters under pkg/adapters provide the surfaces (a supervised shell
    child by default) and optional run-history persistence.

Known accuracy limit: an opaque surface cannot report an exit status, so a
run whose surface closes is assumed successful. Surfaces that own their
child process report the real exit code instead.

# Usage

	app, err := scriptdeck.New("scriptdeck.yaml")
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	warnings, err := app.Lifecycle.Request(ctx, "/path/to/build.sh", "")
*/
package scriptdeck
