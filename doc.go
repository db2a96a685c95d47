// Package meld provides server-rendered reactive components: the server
// owns component logic and templates, the browser holds each component's
// state between interactions and sends it back with every action.
//
// # Core Concepts
//
// Components embed meld.Base. Exported fields are the component's
// attributes (its state); exported methods are its actions:
//
//	type Counter struct {
//	    meld.Base
//	    Count int
//	}
//
//	func (c *Counter) Add(n int) { c.Count += n }
//
// Components are registered by name and reconstructed on every message from
// the client-held snapshot, so no component state lives on the server:
//
//	reg := meld.NewRegistry()
//	reg.Add("counter", func() meld.Component { return &Counter{} })
//
// # Messages
//
// A client message names a component, carries its id and last snapshot, and
// queues actions. Two action types exist:
//   - syncInput sets an attribute from an input element bound with meld:model
//   - callMethod invokes an action from a call expression such as "add(2)"
//
// Call expressions are parsed leniently. Literal arguments (strings, numbers,
// booleans, None, lists, dicts) keep their type; anything else falls back to
// comma splitting with string arguments. Calls to unknown actions, syncs of
// unknown attributes and argument mismatches are logged and skipped.
//
// # Rendering
//
// After the actions run, the component's template is rendered with its
// attributes, actions and explicit data. The first element of the output is
// the component root. It receives meld:id and meld:data (the JSON snapshot)
// attributes and a trailing Meld.componentInit script. Elements bound with
// meld:model get their value attribute from the current state. Attribute
// order produced by the template is preserved.
//
// Templates come from an Engine. FileEngine renders html/template files from
// an fs.FS; TemplEngine renders templ components.
//
// # Forms
//
// A component implementing FormProvider binds a validated form struct. Form
// fields share names with attributes. Synced fields are rebound and the
// Updated hook can validate them, filling the error map that is part of the
// snapshot:
//
//	func (c *Signup) NewForm() any           { return &SignupForm{} }
//	func (c *Signup) Updated(field string)   { c.Validate(field) }
//
// # Security Model
//
// The snapshot is visible to the client. With WithSigner the dispatcher signs
// every rendered snapshot and rejects messages whose snapshot does not match
// its checksum.
//
// # Transports
//
// The dispatcher is transport agnostic. lib/transport serves it over HTTP
// and WebSocket with chi and gorilla/websocket; adapters/echo mounts it on an
// Echo server.
//
// # Code Generation
//
// The meld CLI scans a package for components and writes a Register function
// for them:
//
//	//go:generate meld generate ./components
package meld
