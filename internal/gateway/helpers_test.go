package gateway

import (
	"testing"
	"time"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
)

// newAdminClientForTest builds a real adminconfig.Client against baseURL.
// adminconfig.Client's zero value is unsafe (its local TTL caches are nil),
// so every test exercising admin config must go through NewClient.
func newAdminClientForTest(t *testing.T, baseURL string) *adminconfig.Client {
	t.Helper()
	return adminconfig.NewClient(baseURL, time.Minute, nil)
}
