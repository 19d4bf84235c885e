// Package types defines the entities, installation scopes, and standard
// error values shared by the switchyard engine: providers, repositories,
// resources, discoverable items, projects, and change events.
package types
