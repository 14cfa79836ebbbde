package job

// Kind identifies the kind of request a job carries to the compiler process.
type Kind string

// Request kinds understood by the compiler process.
const (
	// Fast-lane mutation kinds. These change the worker's view of the
	// project and are dispatched ahead of everything else.
	KindAddUri Kind = "api/addUri"
	KindRemUri Kind = "api/remUri"
	KindAddPkg Kind = "api/addPkg"
	KindRemPkg Kind = "api/remPkg"
	KindAddJar Kind = "api/addJar"
	KindRemJar Kind = "api/remJar"

	// KindCheck asks the worker to re-check the whole project. At most one
	// check is ever queued, and it runs before other normal-lane work.
	KindCheck Kind = "lsp/check"

	// KindShutdown tells the worker to exit. It never travels through the
	// queues; see the scheduler's Terminate.
	KindShutdown Kind = "api/shutdown"

	// General compute kinds, dispatched in submission order.
	KindVersion  Kind = "api/version"
	KindCodelens Kind = "lsp/codelens"
	KindHover    Kind = "lsp/hover"
)

// ShutdownID is the fixed, well-known identifier carried by the shutdown
// job so its completion event can be recognized without a registry lookup.
const ShutdownID = "shutdown"

// Priority reports whether jobs of this kind belong in the fast lane.
func (k Kind) Priority() bool {
	switch k {
	case KindAddUri, KindRemUri, KindAddPkg, KindRemPkg, KindAddJar, KindRemJar:
		return true
	}
	return false
}

// NeedsText reports whether jobs of this kind must carry inline source text
// when handed to the transport.
func (k Kind) NeedsText() bool {
	return k == KindAddUri
}

// NeedsBase64 reports whether jobs of this kind must carry base64-encoded
// file content when handed to the transport.
func (k Kind) NeedsBase64() bool {
	return k == KindAddPkg || k == KindAddJar
}

// Job represents a single request to the compiler process. It is immutable
// once constructed by the caller.
//
// URI is required for every priority kind; this is a contract precondition
// on callers, not validated here.
type Job struct {
	Kind Kind `json:"request"`

	// URI identifies the resource the job operates on, when any.
	URI string `json:"uri,omitempty"`

	// Src is inline source text for KindAddUri. When empty the dispatcher
	// loads it from URI just before handing the job to the transport.
	Src string `json:"src,omitempty"`

	// Base64 is base64-encoded file content for KindAddPkg and KindAddJar.
	// Loaded on demand like Src.
	Base64 string `json:"base64,omitempty"`
}

// Enqueued is a Job enriched with its process-unique identifier, assigned
// by the Registry at submission time.
type Enqueued struct {
	Job

	ID string `json:"id"`
}
