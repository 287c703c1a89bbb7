package prog

// CallCount returns the number of calls in p; a tiny helper so test
// files don't reach into Prog.Calls directly for a single int.
func (p *Prog) CallCount() int {
	return len(p.Calls)
}

// ResourceUses reports how many ResultArgs currently reference r as
// their producer.
func ResourceUses(r *ResultArg) int {
	return len(r.Uses)
}
