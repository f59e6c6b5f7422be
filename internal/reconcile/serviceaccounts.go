package reconcile

import (
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
)

// ServiceAccountCreateTasks diffs declared account names against the
// observed, non-ignored account names and emits one create task per missing
// account.
func ServiceAccountCreateTasks(snap *Snapshot) []ledger.Task {
	declared := Set{}
	for _, def := range snap.Definitions.ServiceAccounts {
		declared.Add(def.Name)
	}
	observed := Set{}
	for _, sa := range snap.Accounts {
		if !snap.Ignored.Has(sa.ResourceID) {
			observed.Add(sa.Name)
		}
	}

	var tasks []ledger.Task
	for _, name := range declared.Diff(observed).Sorted() {
		def := snap.Definitions.Find(name)
		if def == nil {
			continue
		}
		tasks = append(tasks, ledger.New(ledger.TaskCreate, ledger.ServiceAccountPayload{
			Name:        def.Name,
			Description: def.Description,
		}))
	}
	return tasks
}

// ServiceAccountDeleteTasks emits one delete task per observed account that
// is neither declared nor ignore-listed. The diff runs over all observed
// names first, then subtracts the ignored ones, so an ignored account is
// protected even when undeclared.
func ServiceAccountDeleteTasks(snap *Snapshot, cfg config.CCloudConfig) []ledger.Task {
	if !cfg.EnableSACleanup {
		return nil
	}

	declared := Set{}
	for _, def := range snap.Definitions.ServiceAccounts {
		declared.Add(def.Name)
	}
	observed := Set{}
	for _, sa := range snap.Accounts {
		observed.Add(sa.Name)
	}

	doomed := observed.Diff(declared).Diff(snap.IgnoredAccountNames())

	var tasks []ledger.Task
	for _, name := range doomed.Sorted() {
		sa, ok := snap.AccountByName(name)
		if !ok {
			continue
		}
		tasks = append(tasks, ledger.New(ledger.TaskDelete, ledger.ServiceAccountPayload{
			Name:       sa.Name,
			ResourceID: sa.ResourceID,
		}))
	}
	return tasks
}
