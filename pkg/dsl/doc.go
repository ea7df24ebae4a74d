/*
Package dsl provides a Go DSL for programmatically constructing Lattice machine groups.

It lets developers define hierarchical and parallel machines with a fluent builder instead
of YAML or Markdown documents. This is handy for bundled groups, unit tests, and for
leveraging IDE autocompletion.

Example usage:

	g := dsl.New("door")

	door := g.Machine("door").Initial("closed")
	door.State("closed").
		When("OPEN", "hasKey", "open").
		On("KNOCK", "closed")
	door.State("open").On("CLOSE", "closed")

	light := door.State("open").Machine("light").Initial("off")
	light.State("off").On("SWITCH", "on")
	light.State("on").On("SWITCH", "off")

	def := g.Build()          // domain.GroupDefinition
	loader, _ := g.Loader()   // ports.GroupLoader backed by memory
*/
package dsl
