// Package report renders run results for the operator console.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
)

// WriteLedger renders every task of the run, in execution order.
func WriteLedger(w io.Writer, l *ledger.Ledger) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Action", "Object", "Status", "Message", "Details"})
	for seq, task := range l.All() {
		t.AppendRow(table.Row{seq, task.Type, task.Object, task.Status, task.StatusMessage, describePayload(task.Payload)})
	}
	t.Render()
}

// WriteDeleteEligible renders the API keys active in Confluent Cloud but
// missing from the secret store. Owner names are resolved via the lookup,
// which may return false for keys whose account is gone.
func WriteDeleteEligible(w io.Writer, keys []ccloud.APIKey, ownerName func(saID string) (string, bool)) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "No deletion eligible API keys detected.")
		return
	}
	fmt.Fprintln(w, "API keys active in Confluent Cloud but missing from the secret store:")
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"API Key", "Owner", "Owner ID", "Cluster", "Created"})
	for _, key := range keys {
		name, ok := ownerName(key.OwnerID)
		if !ok {
			name = "<unknown>"
		}
		t.AppendRow(table.Row{key.ID, name, key.OwnerID, key.ClusterID, key.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	t.Render()
}

func describePayload(p ledger.Payload) string {
	switch v := p.(type) {
	case ledger.ServiceAccountPayload:
		if v.ResourceID != "" {
			return fmt.Sprintf("%s (%s)", v.Name, v.ResourceID)
		}
		return v.Name
	case ledger.APIKeyPayload:
		if v.KeyID != "" {
			return fmt.Sprintf("%s on %s, key %s", v.SAName, v.ClusterID, v.KeyID)
		}
		return fmt.Sprintf("%s on %s", v.SAName, v.ClusterID)
	case ledger.SecretPayload:
		if v.SecretName != "" {
			return v.SecretName
		}
		return fmt.Sprintf("%s on %s", v.SAName, v.ClusterID)
	case ledger.SecretTagPayload:
		return fmt.Sprintf("%s rest_proxy_access=%t", v.SecretName, v.RestProxyAccess)
	case ledger.RestProxyPayload:
		return fmt.Sprintf("%s (%d new keys, %d synced)", v.SecretName, len(v.NewKeyIDs), len(v.SyncSecretNames))
	default:
		return fmt.Sprintf("%+v", p)
	}
}
