// Package harness runs end-to-end sync scenarios described in YAML.
//
// A scenario seeds the two output files, then drives one or more pipeline
// runs against a scripted remote and a fixed clock. Each run is recorded
// as a trace event (status, cursor, history query bound, reconcile stats,
// fallback report). Per-run expectations and final assertions are checked
// against the trace and the files left on disk, and the whole outcome can
// be compared against a golden snapshot.
//
// Example scenario:
//
//	name: first_run
//	description: Empty workspace, two history samples arrive out of order
//	now: "2026-10-19T12:00:00Z"
//	runs:
//	  - current: {at: "-1m", pm2_5: 12}
//	    history:
//	      - {at: "-1h", pm2_5: 12}
//	      - {at: "-2h", pm2_5: 9}
//	    expect: {status: ok, kept: 2}
//	assertions:
//	  - type: history_equals
//	    readings:
//	      - {at: "-2h", pm2_5: 9}
//	      - {at: "-1h", pm2_5: 12}
//
// Offsets ("at") are Go durations relative to the scenario's now, not to
// the clock after an advance.
package harness
