package ledger

// TaskType describes the action a task performs against the provider or the
// secret store.
type TaskType string

const (
	TaskCreate TaskType = "create"
	TaskUpdate TaskType = "update"
	TaskDelete TaskType = "delete"
)

// ObjectType describes the kind of resource a task targets.
type ObjectType string

const (
	ObjectServiceAccount ObjectType = "service-account"
	ObjectAPIKey         ObjectType = "api-key"
	ObjectSecret         ObjectType = "secret"
	ObjectRestProxyUser  ObjectType = "rest-proxy-user"
)

// Status is the execution state of a task. The only legal transitions are
// not-started to success and not-started to failed.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Payload is the typed task payload. Each object type carries its own fixed
// field set so payload-shape mistakes surface at build time.
type Payload interface {
	Kind() ObjectType
}

// ServiceAccountPayload is the payload for service-account tasks. ResourceID
// is empty on create tasks until the effector assigns one.
type ServiceAccountPayload struct {
	Name        string
	Description string
	ResourceID  string
}

func (ServiceAccountPayload) Kind() ObjectType { return ObjectServiceAccount }

// APIKeyPayload is the payload for api-key tasks. KeyID is empty on create
// tasks until the effector assigns one.
type APIKeyPayload struct {
	SAName    string
	SAID      string
	ClusterID string
	EnvID     string
	KeyID     string
}

func (APIKeyPayload) Kind() ObjectType { return ObjectAPIKey }

// SecretPayload is the payload for secret-store tasks.
type SecretPayload struct {
	SAName              string
	ClusterID           string
	EnvID               string
	SecretName          string
	KeyID               string
	NeedRestProxyAccess bool
	IsRestProxyUser     bool
}

func (SecretPayload) Kind() ObjectType { return ObjectSecret }

// SecretTagPayload is the payload for secret tag reconciliation tasks.
type SecretTagPayload struct {
	SecretName      string
	RestProxyAccess bool
}

func (SecretTagPayload) Kind() ObjectType { return ObjectSecret }

// RestProxyPayload is the payload for rest-proxy aggregate secret tasks.
// NewKeyIDs are the API keys created during this run for the target cluster,
// SyncSecretNames are stored secrets flagged as needing a rest-proxy sync.
type RestProxyPayload struct {
	SAName          string
	SecretName      string
	ClusterID       string
	EnvID           string
	NewKeyIDs       []string
	SyncSecretNames []string
}

func (RestProxyPayload) Kind() ObjectType { return ObjectRestProxyUser }

// Task is one unit of convergence work produced by a reconciler and executed
// by the workflow orchestrator.
type Task struct {
	Type          TaskType
	Object        ObjectType
	Status        Status
	StatusMessage string
	Payload       Payload
}

// New returns a not-started task for the given payload.
func New(taskType TaskType, payload Payload) Task {
	return Task{
		Type:          taskType,
		Object:        payload.Kind(),
		Status:        StatusNotStarted,
		StatusMessage: "waiting to start",
		Payload:       payload,
	}
}
