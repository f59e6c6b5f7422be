package reconcile

import (
	"fmt"
	"strings"
)

// keySeparator joins a service account name and a cluster id into the
// composite key api-key and secret reconciliation works on. Account names
// never contain it.
const keySeparator = "~"

// CompositeKey returns the "<saName>~<clusterID>" identity of an API key or
// secret.
func CompositeKey(saName, clusterID string) string {
	return saName + keySeparator + clusterID
}

// SplitKey breaks a composite key back into its parts.
func SplitKey(key string) (saName, clusterID string, err error) {
	parts := strings.SplitN(key, keySeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed composite key %q", key)
	}
	return parts[0], parts[1], nil
}
