/*
Package codec converts flow graphs to and from a transport-neutral snapshot document.

The Document is what gets persisted and exported: a versioned list of nodes and
connections made only of plain scalar fields. Connections reference nodes by id.

Decode validates structure (required fields, closed kind set, supported version) and
fails with domain.ErrMalformedSnapshot. It does not check referential integrity:
a connection pointing at a missing node decodes fine and is treated as a dead end
when the flow is previewed.

Supported wire formats are JSON (Marshal/Unmarshal), YAML (MarshalYAML/UnmarshalYAML)
and generic maps as returned by document stores (DecodeMap).
*/
package codec
