package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"inkreel/internal/deps"
	"inkreel/internal/providers"
	"inkreel/internal/providers/openrelay"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries INGEST and the
// localwhisper provider shell out to. RunAll uses this so the requirements
// list lives only in internal/deps.
func CheckSystemDeps() []deps.Status {
	return deps.CheckBinaries(deps.PipelineRequirements())
}

// CheckProviderAPIKey verifies that the <PROVIDER>_API_KEY environment
// variable required by a configured scribe/refine provider is present.
// The key's value is never logged or echoed back.
func CheckProviderAPIKey(name string) Result {
	if providers.APIKeyFor(name) == "" {
		return Result{Name: name + " API key", Detail: fmt.Sprintf("%s_API_KEY is not set", envPrefix(name))}
	}
	return Result{Name: name + " API key", Passed: true, Detail: "present"}
}

// CheckOpenRelayReachable verifies that the configured openrelay model is
// reachable and the API key is accepted. It uses a single attempt (no
// retries) and a 30-second timeout, matching the teacher's LLM health check.
func CheckOpenRelayReachable(ctx context.Context, model string) Result {
	const name = "openrelay"
	apiKey := providers.APIKeyFor(name)
	if apiKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := openrelay.NewClient(openrelay.Config{APIKey: apiKey, Model: model}, openrelay.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (provider API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (provider API unreachable)"
	}
	return err.Error()
}

func envPrefix(name string) string {
	upper := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = append(upper, c)
	}
	return string(upper)
}
