/*
Package lattice runs groups of hierarchical, concurrent state machines driven by messages.

A group is a set of named machines. Every machine holds exactly one path through its state
tree, and a state may host nested machines that exist only while the state is active. A
message is delivered to every live machine at once: each machine picks at most one
transition from its current state or an ancestor, guards see the vector as it was before
the message, and the selected transitions are applied in a fixed order. Epsilon transitions
then settle within the same dispatch. The result is a ChangeSet naming every machine that
moved.

# Usage

Groups are declared as data (Markdown frontmatter, YAML or JSON documents) or in code with
pkg/dsl. The default engine reads documents from a Loam repository.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/lattice"
	)

	func main() {
		eng, err := lattice.New("./groups")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		group, err := eng.NewGroup(ctx, "sheet")
		if err != nil {
			log.Fatal(err)
		}

		cs, err := group.Dispatch(ctx, "OPEN", map[string]any{"skipOpening": true})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(cs.Changed, cs.Next["openness"])
	}

Running groups are plain values: persist CurrentVector and rebuild the group later with
Engine.Restore. pkg/session does this for long-lived sessions on top of a SnapshotStore.
*/
package lattice
