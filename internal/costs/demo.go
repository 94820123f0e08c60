package costs

import "azcost/internal/azure"

const demoSubscription = "/subscriptions/12345678-1234-1234-1234-123456789012/resourceGroups/"

// demoRows is the fixed sample dataset used when live data is unavailable
var demoRows = []struct {
	amount float64
	id     string
}{
	{125.50, demoSubscription + "rg-webapp/providers/Microsoft.Web/sites/mywebapp"},
	{89.20, demoSubscription + "rg-storage/providers/Microsoft.Storage/storageAccounts/mystorageaccount"},
	{45.75, demoSubscription + "rg-vm/providers/Microsoft.Compute/virtualMachines/myvm"},
	{32.10, demoSubscription + "rg-db/providers/Microsoft.Sql/servers/mysqlserver"},
	{18.90, demoSubscription + "rg-network/providers/Microsoft.Network/publicIPAddresses/mypublicip"},
	{12.45, demoSubscription + "rg-keyvault/providers/Microsoft.KeyVault/vaults/mykeyvault"},
	{8.75, demoSubscription + "rg-cognitive/providers/Microsoft.CognitiveServices/accounts/mycognitive"},
	{6.20, demoSubscription + "rg-container/providers/Microsoft.ContainerService/managedClusters/myaks"},
}

// DemoRecords returns the demo dataset in the given currency
func DemoRecords(currency string) []CostRecord {
	records := make([]CostRecord, 0, len(demoRows))
	for _, row := range demoRows {
		r, _ := azure.ParseResourceID(row.id)
		records = append(records, CostRecord{
			ResourceName: r.Name,
			ResourceType: r.FullType(),
			Category:     azure.CategoryForType(r.FullType()),
			Amount:       row.amount,
			Currency:     currency,
			ResourceID:   row.id,
		})
	}
	return records
}
