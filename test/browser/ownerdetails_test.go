package browser_test

import (
	"context"
	"testing"

	"github.com/jackc/petclinic-e2e/smoke"
	"github.com/stretchr/testify/require"
)

// TestOwnerDetails runs every smoke scenario against owner 1 in its own browser context.
func TestOwnerDetails(t *testing.T) {
	t.Parallel()

	for _, scenario := range smoke.Scenarios() {
		t.Run(scenario.Name, func(t *testing.T) {
			t.Parallel()

			serverInstance := startServer(t)
			_, ownerDetails := openOwnerDetails(t, serverInstance)

			require.NoError(t, scenario.Run(context.Background(), ownerDetails, 1))
		})
	}
}
