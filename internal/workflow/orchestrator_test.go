package workflow_test

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tiagoposse/ccloud-secretsync/internal/ccloud"
	"github.com/tiagoposse/ccloud-secretsync/internal/config"
	"github.com/tiagoposse/ccloud-secretsync/internal/ledger"
	"github.com/tiagoposse/ccloud-secretsync/internal/workflow"
)

func baseConfig() config.Config {
	return config.Config{
		CCloud: config.CCloudConfig{
			RestProxySecretName:       "rest-proxy-users",
			EnableSACleanup:           true,
			EnableAPIKeyCleanup:       true,
			OldAPIKeyDeletionWaitMins: 60,
		},
		SecretStore: config.SecretStoreConfig{
			Enabled:   true,
			Type:      config.StoreAWSSecretsManager,
			Separator: "/",
		},
	}
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx   context.Context
		cloud *fakeCloud
		store *fakeStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		cloud = newFakeCloud()
		cloud.envs = []ccloud.Environment{{ID: "env-1", DisplayName: "production"}}
		cloud.clusters = []ccloud.Cluster{{EnvID: "env-1", ID: "lkc-1", Name: "main"}}
		store = newFakeStore()
	})

	run := func(cfg config.Config, defs config.Definitions, opts workflow.Options) *ledger.Ledger {
		orch := workflow.New(cfg, defs, cloud, cloud, store, opts, logr.Discard())
		led, err := orch.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		return led
	}

	Context("converging an empty organisation onto one declared account", func() {
		defs := config.Definitions{ServiceAccounts: []config.ServiceAccountDef{
			{Name: "svc-a", Description: "app account", ClusterList: []string{"lkc-1"}},
		}}

		It("creates the account, its key and its secret in order", func() {
			led := run(baseConfig(), defs, workflow.Options{})

			tasks := led.All()
			Expect(tasks).To(HaveLen(3))

			Expect(tasks[0].Object).To(Equal(ledger.ObjectServiceAccount))
			Expect(tasks[0].Type).To(Equal(ledger.TaskCreate))
			Expect(tasks[0].Status).To(Equal(ledger.StatusSuccess))
			saPayload := tasks[0].Payload.(ledger.ServiceAccountPayload)
			Expect(saPayload.Name).To(Equal("svc-a"))
			Expect(saPayload.ResourceID).NotTo(BeEmpty())

			Expect(tasks[1].Object).To(Equal(ledger.ObjectAPIKey))
			Expect(tasks[1].Status).To(Equal(ledger.StatusSuccess))
			keyPayload := tasks[1].Payload.(ledger.APIKeyPayload)
			Expect(keyPayload.SAName).To(Equal("svc-a"))
			Expect(keyPayload.ClusterID).To(Equal("lkc-1"))
			Expect(keyPayload.KeyID).NotTo(BeEmpty())

			Expect(tasks[2].Object).To(Equal(ledger.ObjectSecret))
			Expect(tasks[2].Status).To(Equal(ledger.StatusSuccess))
			secretPayload := tasks[2].Payload.(ledger.SecretPayload)
			Expect(secretPayload.SecretName).NotTo(BeEmpty())

			rec, ok := store.records[secretPayload.SecretName]
			Expect(ok).To(BeTrue())
			Expect(rec.APIKeyID).To(Equal(keyPayload.KeyID))
			Expect(rec.Value["password"]).To(HavePrefix("secret-"))
		})

		It("is idempotent once converged", func() {
			run(baseConfig(), defs, workflow.Options{})
			led := run(baseConfig(), defs, workflow.Options{})
			Expect(led.All()).To(BeEmpty())
		})

		It("leaves every task not-started under dry run", func() {
			led := run(baseConfig(), defs, workflow.Options{DryRun: true})

			Expect(led.Len()).To(BeNumerically(">", 0))
			for _, task := range led.All() {
				Expect(task.Status).To(Equal(ledger.StatusNotStarted))
			}
			Expect(cloud.createdAccounts).To(BeEmpty())
			Expect(cloud.createdKeys).To(BeEmpty())
			Expect(store.records).To(BeEmpty())
		})

		It("skips key and secret phases when key creation is disabled", func() {
			led := run(baseConfig(), defs, workflow.Options{DisableAPIKeyCreation: true})

			Expect(cloud.createdAccounts).To(Equal([]string{"svc-a"}))
			Expect(cloud.createdKeys).To(BeEmpty())
			Expect(led.All()).To(HaveLen(1))
		})
	})

	Context("when an effector call fails", func() {
		defs := config.Definitions{ServiceAccounts: []config.ServiceAccountDef{
			{Name: "svc-bad", ClusterList: []string{"lkc-1"}},
			{Name: "svc-good", ClusterList: []string{"lkc-1"}},
		}}

		BeforeEach(func() {
			cloud.failCreateSA["svc-bad"] = errors.New("quota exceeded")
		})

		It("records the failure and still executes sibling tasks", func() {
			led := run(baseConfig(), defs, workflow.Options{})

			Expect(led.Failed()).To(Equal(1))
			Expect(cloud.createdAccounts).To(Equal([]string{"svc-good"}))

			var failed ledger.Task
			for _, task := range led.All() {
				if task.Status == ledger.StatusFailed {
					failed = task
				}
			}
			Expect(failed.Payload.(ledger.ServiceAccountPayload).Name).To(Equal("svc-bad"))
			Expect(failed.StatusMessage).To(ContainSubstring("quota exceeded"))
		})

		It("leaves dependent tasks not-started instead of crashing", func() {
			led := run(baseConfig(), defs, workflow.Options{})

			for _, task := range led.All() {
				if task.Object != ledger.ObjectAPIKey {
					continue
				}
				payload := task.Payload.(ledger.APIKeyPayload)
				if payload.SAName == "svc-bad" {
					Expect(task.Status).To(Equal(ledger.StatusNotStarted))
				} else {
					Expect(task.Status).To(Equal(ledger.StatusSuccess))
				}
			}
			// svc-good made it all the way to the secret store
			Expect(store.records).To(HaveLen(1))
		})
	})

	Context("cleaning up an undeclared account", func() {
		BeforeEach(func() {
			cloud.accounts = []ccloud.ServiceAccount{{ResourceID: "sa-gone", Name: "svc-gone"}}
		})

		It("deletes it when cleanup is enabled", func() {
			led := run(baseConfig(), config.Definitions{}, workflow.Options{})
			Expect(cloud.deletedAccounts).To(Equal([]string{"sa-gone"}))
			Expect(led.Filter(ledger.TaskDelete)).To(HaveLen(1))
		})

		It("keeps it when cleanup is disabled", func() {
			cfg := baseConfig()
			cfg.CCloud.EnableSACleanup = false
			led := run(cfg, config.Definitions{}, workflow.Options{})
			Expect(cloud.deletedAccounts).To(BeEmpty())
			Expect(led.Filter(ledger.TaskDelete)).To(BeEmpty())
		})

		It("protects it when ignore-listed, even with cleanup enabled", func() {
			cfg := baseConfig()
			cfg.CCloud.IgnoreServiceAccounts = []string{"sa-gone"}
			run(cfg, config.Definitions{}, workflow.Options{})
			Expect(cloud.deletedAccounts).To(BeEmpty())
		})
	})

	Context("detecting internal accounts", func() {
		BeforeEach(func() {
			cloud.accounts = []ccloud.ServiceAccount{{ResourceID: "sa-lcc", Name: "Connect.lcc-ab123"}}
		})

		It("never deletes them when detection is on", func() {
			cfg := baseConfig()
			cfg.CCloud.DetectInternalAccounts = true
			run(cfg, config.Definitions{}, workflow.Options{})
			Expect(cloud.deletedAccounts).To(BeEmpty())
		})

		It("deletes them like any orphan when detection is off", func() {
			run(baseConfig(), config.Definitions{}, workflow.Options{})
			Expect(cloud.deletedAccounts).To(Equal([]string{"sa-lcc"}))
		})
	})

	Context("syncing a rest proxy user", func() {
		defs := config.Definitions{ServiceAccounts: []config.ServiceAccountDef{
			{Name: "svc-proxy", ClusterList: []string{"lkc-1"}, IsRestProxyUser: true, RestProxyAccess: true},
		}}

		It("creates the aggregate secret with the new key", func() {
			led := run(baseConfig(), defs, workflow.Options{})

			Expect(store.rpCalls).To(HaveLen(1))
			call := store.rpCalls[0]
			Expect(call.IsNew).To(BeTrue())
			Expect(call.SecretName).To(HaveSuffix("/rest-proxy-users"))
			Expect(call.NewKeys).To(HaveLen(1))
			Expect(call.NewKeys[0].Secret).NotTo(BeEmpty())

			var rpTasks int
			for _, task := range led.All() {
				if task.Object == ledger.ObjectRestProxyUser {
					rpTasks++
					Expect(task.Status).To(Equal(ledger.StatusSuccess))
				}
			}
			Expect(rpTasks).To(Equal(1))
		})

		It("does not upsert again once converged", func() {
			run(baseConfig(), defs, workflow.Options{})
			store.rpCalls = nil

			// second run observes the key and secret from the first
			run(baseConfig(), defs, workflow.Options{})
			Expect(store.rpCalls).To(BeEmpty())
		})
	})
})
