/*
Package dsl provides a Go DSL for building Stepwise definitions in code.

It is the programmatic counterpart of the YAML/JSON files read by the file
adapter: a fluent builder that produces a validated domain.Definition, or a
memory loader holding it.

Example usage:

	b := dsl.New("quiz").Branching("ask").
		Var("answer", domain.ValueInt, 0)

	b.Add("ask").
		Content("Pick a door").
		Audio("doors.wav", 2*time.Second).
		When("answer", domain.Equals, 1, "left").Notify("door_left").
		When("answer", domain.Equals, 2, "right").
		Go("wait")

	b.Add("left").Content("You went left.")
	b.Add("right").Content("You went right.")
	b.Add("wait").Content("Nothing happens.").AudioOnly()

	def, err := b.Definition()
*/
package dsl
