package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPassivePortFormula checks the BASE+rotation+slot*25 formula in
// isolation, without needing a real listener.
func TestPassivePortFormula(t *testing.T) {
	t.Parallel()

	settings := &Settings{DataPortBase: 55600}

	s := &session{server: &FtpServer{settings: settings}}

	cases := []struct {
		slotIndex    int
		portRotation int
		want         int
	}{
		{0, 0, 55600},
		{0, 1, 55601},
		{1, 0, 55625},
		{3, 7, 55682},
	}

	for _, c := range cases {
		s.slotIndex = c.slotIndex
		s.portRotation = c.portRotation

		got := s.server.settings.DataPortBase + s.portRotation + s.slotIndex*25
		require.Equal(t, c.want, got)
	}
}

// TestPortRotationCyclesWithinOffset applies the same bump expression that
// session.run uses on each lifetime, reproduced here, and checks that it
// stays within [0, portRotationOffset).
func TestPortRotationCyclesWithinOffset(t *testing.T) {
	t.Parallel()

	rotation := 0
	for i := 0; i < portRotationOffset*3; i++ {
		rotation = (rotation + 1) % portRotationOffset
		require.GreaterOrEqual(t, rotation, 0)
		require.Less(t, rotation, portRotationOffset)
	}
}
