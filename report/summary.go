package report

import (
	"fmt"
	"io"

	"github.com/yairfalse/purku/types"
)

// WriteSummary renders the human-readable run summary. Failed
// outcomes are always listed separately after the bulk counts so
// failures are never buried by volume.
func WriteSummary(w io.Writer, r *RunReport) {
	fmt.Fprintf(w, "Run %s  domain=%s\n", r.Metadata.RunID, r.Metadata.Domain)
	fmt.Fprintf(w, "Started  %s\n", r.Metadata.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Finished %s\n", r.Metadata.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Scopes requested: %d\n\n", r.Metadata.ScopesRequested)

	fmt.Fprintf(w, "Totals: deleted=%d failed=%d skipped=%d protected=%d\n\n",
		r.Totals.Deleted, r.Totals.Failed, r.Totals.Skipped, r.Totals.Protected)

	for _, sr := range r.PerScope {
		if sr.Skipped {
			fmt.Fprintf(w, "scope %s: SKIPPED (%s)\n", sr.Scope, sr.SkipReason)
			continue
		}
		var t types.Totals
		for _, o := range sr.Outcomes {
			t.Add(o.Status)
		}
		fmt.Fprintf(w, "scope %s: deleted=%d failed=%d skipped=%d protected=%d\n",
			sr.Scope, t.Deleted, t.Failed, t.Skipped, t.Protected)
	}

	failed := r.Failed()
	if len(failed) == 0 {
		fmt.Fprintf(w, "\nNo failures.\n")
		return
	}

	fmt.Fprintf(w, "\nFailures (%d):\n", len(failed))
	for _, o := range failed {
		fmt.Fprintf(w, "  %s %s %s (tier %d, %d attempts): %s\n",
			o.Scope, o.Type, o.ResourceID, o.Tier, o.Attempts, o.Error)
	}
}
