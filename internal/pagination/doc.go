/*
Package pagination drives multi-page retrieval for a single request script.

Engine.Run owns one State per call and loops, strictly sequentially:

	build request -> host check -> dispatch -> normalize payload
	  -> merge into accumulation -> decide continuation -> advance addressing

until the continuation decision says stop, the iteration ceiling is reached,
or the caller's context ends.

Continuation is decided, in priority order, by a stop-condition script, a
handler (an authored script or the default handler for the pagination type)
or, when neither exists, by legacy heuristics on the page's record count.

In stop-condition mode the second iteration is checked for two configuration
mistakes: a response identical to the first one (addressing does not vary)
and an empty first response that did not stop the run. Both fail fast with
*errors.ConfigurationError instead of running to the ceiling.

Pages are combined with a smart merge: arrays concatenate, objects merge
recursively and later scalars win. Cursor-based runs return
{"data": accumulation, "nextCursor": lastCursor}; all other runs return the
accumulation itself.
*/
package pagination
