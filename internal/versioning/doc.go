// Package versioning propagates a release version through the GeoWebCache
// build descriptors, documentation configuration and configuration schema.
//
// Every update goes through a patch.Patcher. The configuration updates collect
// the version tokens they replace and refuse to touch a file whose tokens do
// not agree.
package versioning
