package validator

import (
	"testing"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/dsl"
	"github.com/aretw0/lattice/pkg/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreachable_BundledGroups(t *testing.T) {
	for _, def := range sheet.All() {
		t.Run(def.Name, func(t *testing.T) {
			chart, err := compiler.Compile(def, sheet.Guards())
			require.NoError(t, err)
			assert.Empty(t, Unreachable(chart))
		})
	}
}

func TestUnreachable_ReportsOrphans(t *testing.T) {
	g := dsl.New("door")
	door := g.Machine("door").Initial("closed")
	door.State("closed").On("OPEN", "open")
	open := door.State("open").On("CLOSE", "closed")
	light := open.Machine("light").Initial("off")
	light.State("off").On("SWITCH", "on")
	light.State("on")
	light.State("broken")

	door.State("locked").Initial("bolted")
	door.State("locked").State("bolted")

	chart, err := compiler.Compile(g.Build(), nil)
	require.NoError(t, err)

	findings := Unreachable(chart)
	require.Len(t, findings, 2)
	assert.Equal(t, Finding{Machine: "door", State: "locked", Message: "state is unreachable"}, findings[0])
	assert.Equal(t, "door/open/light", findings[1].Machine)
	assert.Equal(t, "broken", findings[1].State)
}
