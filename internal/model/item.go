package model

import "strings"

// Item is one opaque unit of work, in practice a path to a regular file.
type Item string

// Outcome is the per-item result of one run. Outcomes are kept in the same
// order the items were submitted in.
type Outcome struct {
	Item Item
	Err  error
}

// Failed reports whether the item's processing ended with an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Summary renders the outcome list the way the shell presents it: every
// error message on its own line, or a single success marker when no item
// failed.
func Summary(outcomes []Outcome) string {
	var msgs []string
	for _, o := range outcomes {
		if o.Err != nil {
			msgs = append(msgs, o.Err.Error())
		}
	}
	if len(msgs) == 0 {
		return "Success!"
	}
	return strings.Join(msgs, "\n")
}
