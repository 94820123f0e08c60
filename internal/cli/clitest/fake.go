// Package clitest provides a scripted cli.Runner for tests.
package clitest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call is one recorded invocation
type Call struct {
	Name  string
	Args  []string
	Stdin []byte
}

// String joins the command line with spaces
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Fake answers commands by "<name> <arg0> <arg1>" prefix. Unknown commands fail.
type Fake struct {
	Responses map[string]string
	Errors    map[string]error

	mu    sync.Mutex
	calls []Call
}

func key(name string, args []string) string {
	parts := append([]string{name}, args...)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, " ")
}

// Run implements cli.Runner
func (f *Fake) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: args, Stdin: stdin})
	f.mu.Unlock()

	k := key(name, args)
	if err, ok := f.Errors[k]; ok {
		return nil, err
	}
	if out, ok := f.Responses[k]; ok {
		return []byte(out), nil
	}
	return nil, fmt.Errorf("unexpected command: %s", k)
}

// Calls returns the recorded invocations
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Azure returns a Fake for a signed-in az CLI whose cost query returns body
func Azure(body string) *Fake {
	return &Fake{Responses: map[string]string{
		"az account show":         `{"id":"12345678-1234-1234-1234-123456789012","name":"Dev","isDefault":true}`,
		"az account list":         `[{"id":"12345678-1234-1234-1234-123456789012","name":"Dev","isDefault":true},{"id":"87654321-4321-4321-4321-210987654321","name":"Prod"}]`,
		"az costmanagement query": body,
	}}
}

// CostQuery is a small az costmanagement query result with three billed resources
const CostQuery = `{
  "columns": [
    {"name": "PreTaxCost", "type": "Number"},
    {"name": "ResourceId", "type": "String"},
    {"name": "ResourceType", "type": "String"},
    {"name": "Currency", "type": "String"}
  ],
  "rows": [
    [40.5, "/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/rg-app/providers/Microsoft.Storage/storageAccounts/appdata", "microsoft.storage/storageaccounts", "EUR"],
    [210.25, "/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/rg-app/providers/Microsoft.Compute/virtualMachines/build-agent", "microsoft.compute/virtualmachines", "EUR"],
    [9.25, "/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/rg-app/providers/Microsoft.Network/publicIPAddresses/agent-ip", "microsoft.network/publicipaddresses", "EUR"]
  ]
}`
